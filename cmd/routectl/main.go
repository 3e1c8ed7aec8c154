// routectl runs routing maintenance against the configured store without
// going through the HTTP API.
//
//	routectl [flags] seed FILE.yaml
//	routectl [flags] process | stats | reset-counter | restore-workloads | reset | geocode
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/freedom_case_2/fire-router/internal/app"
	"github.com/freedom_case_2/fire-router/internal/config"
	"github.com/freedom_case_2/fire-router/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

const usage = `Usage:
  routectl [flags] seed FILE.yaml
  routectl [flags] process | stats | reset-counter | restore-workloads | reset | geocode

Flags:
`

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		driver, dsn, sqlitePath, envFile string
		force                            bool
	)
	flags := pflag.NewFlagSet("routectl", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprint(stderr, usage)
		flags.PrintDefaults()
	}
	flags.StringVar(&driver, "driver", "", "store driver: postgres or sqlite (overrides STORE_DRIVER)")
	flags.StringVar(&dsn, "dsn", "", "postgres connection string (overrides DATABASE_URL)")
	flags.StringVar(&sqlitePath, "sqlite-path", "", "sqlite database file (overrides SQLITE_PATH)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before configuration")
	flags.BoolVar(&force, "force", false, "geocode: refresh offices that already have coordinates")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return errors.New("missing command")
	}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	for key, val := range map[string]string{"STORE_DRIVER": driver, "DATABASE_URL": dsn, "SQLITE_PATH": sqlitePath} {
		if val != "" {
			if err := os.Setenv(key, val); err != nil {
				return err
			}
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Str("service", "routectl").Logger()

	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	processing, err := app.NewProcessing(cfg, store, nil, logger)
	if err != nil {
		return err
	}

	cmd, rest := flags.Arg(0), flags.Args()[1:]
	switch cmd {
	case "seed":
		if len(rest) != 1 {
			return errors.New("seed: expected one file argument")
		}
		res, err := seedFromFile(ctx, store, rest[0])
		if err != nil {
			return err
		}
		return writeJSON(stdout, res)
	case "process":
		summary, err := processing.ProcessPending(ctx)
		if err != nil {
			return err
		}
		return writeJSON(stdout, summary)
	case "stats":
		st, err := service.LoadStats(ctx, store)
		if err != nil {
			return err
		}
		return writeJSON(stdout, st)
	case "reset-counter":
		return processing.ResetCounter(ctx)
	case "restore-workloads":
		n, err := processing.RestoreWorkloads(ctx)
		if err != nil {
			return err
		}
		return writeJSON(stdout, map[string]int64{"managers": n})
	case "reset":
		return processing.ResetAll(ctx)
	case "geocode":
		geocoding := app.NewGeocoding(cfg, store, logger)
		if geocoding == nil {
			return errors.New("geocode: NOMINATIM_URL is empty")
		}
		res, err := geocoding.GeocodeOffices(ctx, force)
		if err != nil {
			return err
		}
		return writeJSON(stdout, res)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
