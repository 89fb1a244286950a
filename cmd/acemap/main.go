package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/acetools/acemap/internal/config"
	"github.com/acetools/acemap/internal/logging"
	"github.com/spf13/viper"
)

const AppName = "acemap"

var (
	// SessionStartTime is used to name the log file
	SessionStartTime = time.Now()

	// SlogManager handles all slog-based logging
	SlogManager = logging.NewSlogManager()

	// Logger is the slog logger (convenience reference)
	Logger = slog.Default()

	// LogFile is the session log file, nil until openLogFile
	LogFile *os.File
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// configDir returns the directory holding acemap.cfg.json.
func configDir() string {
	if dir := os.Getenv("ACEMAP_CONFIG_DIR"); dir != "" {
		return dir
	}
	return "."
}

// loadConfig loads the config file, falling back to defaults.
func loadConfig() {
	if err := config.Load(configDir()); err != nil {
		Logger.Debug("Failed to load config, using defaults", "error", err)
		return
	}
	Logger.Debug("Loaded config", "file", viper.ConfigFileUsed())
}

// openLogFile starts file logging for long-running commands.
// Records also go to stderr so stdout stays clean for command output.
func openLogFile() (io.Writer, error) {
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	path := logging.LogFilePath(logsDir, AppName, SessionStartTime)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return nil, fmt.Errorf("failed to create/open log file: %w", err)
	}
	LogFile = f

	if viper.GetBool("graylog.enabled") {
		if err := SlogManager.EnableGraylog(viper.GetString("graylog.address")); err != nil {
			fmt.Fprintln(os.Stderr, "graylog disabled:", err)
		}
	}
	return io.MultiWriter(f, os.Stderr), nil
}

func closeLogFile(ctx context.Context) {
	_ = SlogManager.Close(ctx)
	if LogFile != nil {
		_ = LogFile.Close()
		LogFile = nil
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `usage: %s <command> [args]

commands:
  label <id> <x> <y> <z>            print the map label of a position
  resolve <id> <x> <y> <z>          print the global position as WKT, or "inside"
  distance <id1> <x1> <y1> <z1> <id2> <x2> <y2> <z2>
                                    print the distance between two positions
  mapcoords <lat> <lon>             print the global x/y and landblock of a map coordinate
  poi <name>                        print a stored point of interest
  poidistance <name1> <name2>       print the distance between two stored POIs
  etl                               extract POIs from ace_world into the POI store
  consume                           label records from the configured feed until interrupted

ids are decimal or 0x-prefixed hex
`, AppName)
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		usage(stdout)
		return fmt.Errorf("no command provided")
	}

	loadConfig()

	cmd := strings.ToLower(args[0])
	rest := args[1:]
	switch cmd {
	case "label":
		return cmdLabel(rest, stdout)
	case "resolve":
		return cmdResolve(rest, stdout)
	case "distance":
		return cmdDistance(rest, stdout)
	case "mapcoords":
		return cmdMapCoords(rest, stdout)
	case "poi":
		return cmdPOI(rest, stdout)
	case "poidistance":
		return cmdPOIDistance(rest, stdout)
	case "etl":
		return cmdETL(ctx, stdout)
	case "consume":
		return cmdConsume(ctx)
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	default:
		usage(stdout)
		return fmt.Errorf("unknown command: %s", args[0])
	}
}
