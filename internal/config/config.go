package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConfigName is the file Load looks for in the config directory.
const ConfigName = "acemap.cfg.json"

// FeedConfig holds record feed settings.
type FeedConfig struct {
	Type         string        `json:"type" mapstructure:"type"` // "websocket" or "mqtt"
	URL          string        `json:"url" mapstructure:"url"`
	Topic        string        `json:"topic" mapstructure:"topic"`
	BufferSize   int           `json:"bufferSize" mapstructure:"bufferSize"`
	PollInterval time.Duration `json:"pollInterval" mapstructure:"pollInterval"`
	Persist      bool          `json:"persist" mapstructure:"persist"`
	MQTT         MQTTConfig    `json:"mqtt" mapstructure:"mqtt"`
}

// MQTTConfig holds MQTT broker settings for the mqtt feed.
type MQTTConfig struct {
	Broker   string `json:"broker" mapstructure:"broker"`
	Port     int    `json:"port" mapstructure:"port"`
	ClientID string `json:"clientId" mapstructure:"clientId"`
	QoS      int    `json:"qos" mapstructure:"qos"`
}

// StoreConfig holds POI store settings.
type StoreConfig struct {
	Type       string `json:"type" mapstructure:"type"` // "sqlite", "postgres" or "json"
	SQLitePath string `json:"sqlitePath" mapstructure:"sqlitePath"`
	JSONPath   string `json:"jsonPath" mapstructure:"jsonPath"`
}

// DBConfig holds connection settings for a network database.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// InfluxConfig holds InfluxDB settings.
type InfluxConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	Host       string `json:"host" mapstructure:"host"`
	Port       string `json:"port" mapstructure:"port"`
	Protocol   string `json:"protocol" mapstructure:"protocol"`
	Token      string `json:"token" mapstructure:"token"`
	Org        string `json:"org" mapstructure:"org"`
	Bucket     string `json:"bucket" mapstructure:"bucket"`
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// setDefaults registers every default value and environment binding.
func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./acemaplogs")

	// ace_world MySQL database, source of the POI extract
	viper.SetDefault("world.host", "localhost")
	viper.SetDefault("world.port", "3306")
	viper.SetDefault("world.username", "acemu")
	viper.SetDefault("world.password", "")
	viper.SetDefault("world.database", "ace_world")

	viper.SetDefault("store.type", "sqlite")
	viper.SetDefault("store.sqlitePath", "pois.db")
	viper.SetDefault("store.jsonPath", "pois.json")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "acemap")

	viper.SetDefault("etl.protobufPath", "pois_db.binpb")
	viper.SetDefault("etl.jsonPath", "outdoor_pois.json")

	viper.SetDefault("feed.type", "websocket")
	viper.SetDefault("feed.url", "ws://127.0.0.1:8080/feed")
	viper.SetDefault("feed.topic", "ace.ace_shard.biota_properties_int")
	viper.SetDefault("feed.bufferSize", 1000)
	viper.SetDefault("feed.pollInterval", "1s")
	viper.SetDefault("feed.persist", false)
	viper.SetDefault("feed.mqtt.broker", "127.0.0.1")
	viper.SetDefault("feed.mqtt.port", 1883)
	viper.SetDefault("feed.mqtt.clientId", "acemap")
	viper.SetDefault("feed.mqtt.qos", 0)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "acemap")
	viper.SetDefault("influx.bucket", "positions")
	viper.SetDefault("influx.backupPath", "influx_backup.lp.gz")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "acemap")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetEnvPrefix("ACEMAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// the original extract script reads these
	_ = viper.BindEnv("world.username", "ACEMAP_WORLD_USERNAME", "MYSQL_USER")
	_ = viper.BindEnv("world.password", "ACEMAP_WORLD_PASSWORD", "MYSQL_PASS")
	_ = viper.BindEnv("world.host", "ACEMAP_WORLD_HOST", "MYSQL_HOST")
	_ = viper.BindEnv("world.port", "ACEMAP_WORLD_PORT", "MYSQL_PORT")
	_ = viper.BindEnv("world.database", "ACEMAP_WORLD_DATABASE", "MYSQL_DB")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(ConfigName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// LoadDefaults sets default values and environment bindings without a config file.
func LoadDefaults() {
	setDefaults()
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFeedConfig returns the record feed configuration.
func GetFeedConfig() FeedConfig {
	return FeedConfig{
		Type:         viper.GetString("feed.type"),
		URL:          viper.GetString("feed.url"),
		Topic:        viper.GetString("feed.topic"),
		BufferSize:   viper.GetInt("feed.bufferSize"),
		PollInterval: viper.GetDuration("feed.pollInterval"),
		Persist:      viper.GetBool("feed.persist"),
		MQTT: MQTTConfig{
			Broker:   viper.GetString("feed.mqtt.broker"),
			Port:     viper.GetInt("feed.mqtt.port"),
			ClientID: viper.GetString("feed.mqtt.clientId"),
			QoS:      viper.GetInt("feed.mqtt.qos"),
		},
	}
}

// GetStoreConfig returns the POI store configuration.
func GetStoreConfig() StoreConfig {
	return StoreConfig{
		Type:       viper.GetString("store.type"),
		SQLitePath: viper.GetString("store.sqlitePath"),
		JSONPath:   viper.GetString("store.jsonPath"),
	}
}

func getDBConfig(prefix string) DBConfig {
	return DBConfig{
		Host:     viper.GetString(prefix + ".host"),
		Port:     viper.GetString(prefix + ".port"),
		Username: viper.GetString(prefix + ".username"),
		Password: viper.GetString(prefix + ".password"),
		Database: viper.GetString(prefix + ".database"),
	}
}

// GetWorldDBConfig returns the ace_world MySQL connection settings.
func GetWorldDBConfig() DBConfig {
	return getDBConfig("world")
}

// GetPostgresConfig returns the Postgres POI store connection settings.
func GetPostgresConfig() DBConfig {
	return getDBConfig("db")
}

// GetInfluxConfig returns the InfluxDB configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		Host:       viper.GetString("influx.host"),
		Port:       viper.GetString("influx.port"),
		Protocol:   viper.GetString("influx.protocol"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}
