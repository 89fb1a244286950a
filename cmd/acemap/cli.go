package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/acetools/acemap/internal/config"
	"github.com/acetools/acemap/internal/database"
	"github.com/acetools/acemap/internal/etl"
	"github.com/acetools/acemap/internal/geo"
	"github.com/acetools/acemap/internal/logging"
	"github.com/acetools/acemap/internal/poi"
	"github.com/acetools/acemap/pkg/core"
	"github.com/spf13/viper"
)

// parsePosition reads "<id> <x> <y> <z>".
func parsePosition(args []string) (core.LocationID, core.LocalPosition, error) {
	if len(args) != 4 {
		return 0, core.LocalPosition{}, fmt.Errorf("expected <id> <x> <y> <z>, got %d arguments", len(args))
	}
	id, err := geo.ParseLocationID(args[0])
	if err != nil {
		return 0, core.LocalPosition{}, fmt.Errorf("%q: %w", args[0], err)
	}
	pos, err := geo.LocalPositionFromArgs(args[1], args[2], args[3])
	if err != nil {
		return 0, core.LocalPosition{}, err
	}
	return id, pos, nil
}

func formatDistance(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}

func cmdLabel(args []string, out io.Writer) error {
	id, pos, err := parsePosition(args)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, geo.Label(id, pos))
	return nil
}

func cmdResolve(args []string, out io.Writer) error {
	id, pos, err := parsePosition(args)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, geo.GlobalPointWKT(id, pos))
	return nil
}

func cmdDistance(args []string, out io.Writer) error {
	if len(args) != 8 {
		return fmt.Errorf("expected two positions (8 arguments), got %d", len(args))
	}
	id1, p1, err := parsePosition(args[:4])
	if err != nil {
		return err
	}
	id2, p2, err := parsePosition(args[4:])
	if err != nil {
		return err
	}
	fmt.Fprintln(out, formatDistance(geo.Distance(id1, p1, id2, p2)))
	return nil
}

// parseMapComponent reads a signed number or a label component such as
// "41.5N" or "28.7W", where neg is the suffix that flips the sign.
func parseMapComponent(s string, pos, neg byte) (float64, error) {
	s = strings.ToUpper(strings.TrimSpace(strings.TrimSuffix(s, ",")))
	sign := 1.0
	if n := len(s); n > 0 {
		switch s[n-1] {
		case pos:
			s = s[:n-1]
		case neg:
			s = s[:n-1]
			sign = -1
		}
	}
	v, err := geo.ParseCoordinate(s)
	if err != nil {
		return 0, err
	}
	return sign * v, nil
}

// cmdMapCoords prints the global x/y of a map coordinate and, when it lies
// on the outdoor grid, the landblock containing it.
func cmdMapCoords(args []string, out io.Writer) error {
	if len(args) != 2 {
		return fmt.Errorf("expected <lat> <lon>, e.g. 41.5N 35.0E")
	}
	my, err := parseMapComponent(args[0], 'N', 'S')
	if err != nil {
		return fmt.Errorf("%q: %w", args[0], err)
	}
	mx, err := parseMapComponent(args[1], 'E', 'W')
	if err != nil {
		return fmt.Errorf("%q: %w", args[1], err)
	}

	gx, gy := geo.FromMapCoordinate(core.MapCoordinate{X: mx, Y: my})
	cx, cy := math.Floor(gx/geo.BlockLength), math.Floor(gy/geo.BlockLength)
	if cx < 0 || cx > 255 || cy < 0 || cy > 255 {
		fmt.Fprintf(out, "%s %s\n", formatDistance(gx), formatDistance(gy))
		return nil
	}
	fmt.Fprintf(out, "%s %s\t0x%02X%02X\n", formatDistance(gx), formatDistance(gy), int(cx), int(cy))
	return nil
}

// openStore connects to the configured POI store and migrates it.
func openStore() (*database.Manager, error) {
	return openStoreWith(logging.NewZerolog(io.Discard, viper.GetString("logLevel")))
}

// loadJSONIndex builds an index from a pois.json or outdoor_pois.json file.
func loadJSONIndex(path string) (*poi.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open poi json: %w", err)
	}
	defer f.Close()

	pois, err := poi.LoadJSON(f)
	if err != nil {
		return nil, err
	}
	return poi.NewIndex(pois), nil
}

func loadIndex() (*poi.Index, error) {
	if cfg := config.GetStoreConfig(); cfg.Type == "json" {
		return loadJSONIndex(cfg.JSONPath)
	}

	m, err := openStore()
	if err != nil {
		return nil, err
	}
	defer m.Close()
	return poi.NewSQLStore(m.DB).LoadIndex()
}

func cmdPOI(args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("expected <name>")
	}
	idx, err := loadIndex()
	if err != nil {
		return err
	}
	p, err := idx.Get(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\t0x%08X\t%s\t%s\n",
		p.Name, uint32(p.LocationID), geo.Label(p.LocationID, p.Origin), geo.GlobalPointWKT(p.LocationID, p.Origin))
	return nil
}

func cmdPOIDistance(args []string, out io.Writer) error {
	if len(args) != 2 {
		return fmt.Errorf("expected <name1> <name2>")
	}
	idx, err := loadIndex()
	if err != nil {
		return err
	}
	d, err := idx.Distance(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(out, formatDistance(d))
	return nil
}

func cmdETL(ctx context.Context, out io.Writer) error {
	w, err := openLogFile()
	if err != nil {
		return err
	}
	defer closeLogFile(ctx)
	level := viper.GetString("logLevel")
	SlogManager.Setup(w, level, nil)
	Logger = SlogManager.Logger()

	worldCfg := config.GetWorldDBConfig()
	Logger.Info("Connecting to world database", "host", worldCfg.Host, "database", worldCfg.Database)
	world, err := database.GetWorldDB(worldCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to world database: %w", err)
	}
	if sqlDB, err := world.DB(); err == nil {
		defer sqlDB.Close()
	}

	res, err := etl.Run(ctx, etl.Deps{
		World:        world,
		ProtobufPath: viper.GetString("etl.protobufPath"),
		SQLitePath:   config.GetStoreConfig().SQLitePath,
		JSONPath:     viper.GetString("etl.jsonPath"),
		Logger:       logging.NewZerolog(w, level),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "extracted %d POIs, stored %d\n", res.Extracted, res.Stored)
	return nil
}
