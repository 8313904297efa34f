package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/openblock-labs/hwbridge/internal/api"
	"github.com/openblock-labs/hwbridge/internal/audit"
	"github.com/openblock-labs/hwbridge/internal/bridge"
	"github.com/openblock-labs/hwbridge/internal/catalog"
	"github.com/openblock-labs/hwbridge/internal/infrastructure/config"
	"github.com/openblock-labs/hwbridge/internal/infrastructure/database"
	"github.com/openblock-labs/hwbridge/internal/infrastructure/influxdb"
	"github.com/openblock-labs/hwbridge/internal/infrastructure/logging"
	"github.com/openblock-labs/hwbridge/internal/infrastructure/mqtt"
	"github.com/openblock-labs/hwbridge/internal/pipeline"
	"github.com/openblock-labs/hwbridge/internal/session"
	"github.com/openblock-labs/hwbridge/internal/telemetry"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "hwbridge: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("hwbridge", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Println(Version)
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Logging, Version)
	logger.Info("starting hwbridge", "version", Version)

	cat, err := loadCatalog(cfg, logger)
	if err != nil {
		return err
	}

	registry := session.NewRegistry()
	defer registry.CloseAll()

	// Optional collaborators come up before the server so nothing
	// observable happens without its sinks in place.
	var serverOpts []api.ServerOption
	var telemetryOpts []telemetry.Option
	telemetryOpts = append(telemetryOpts, telemetry.WithLogger(logger.With("component", "telemetry")))

	if cfg.Audit.Enabled {
		db, err := database.Open(cfg.Audit)
		if err != nil {
			return fmt.Errorf("opening audit database: %w", err)
		}
		defer db.Close()

		repo := audit.NewRepository(db)
		if err := repo.Init(ctx); err != nil {
			return fmt.Errorf("initializing audit trail: %w", err)
		}
		serverOpts = append(serverOpts, api.WithAudit(repo))
		logger.Info("audit trail enabled", "path", cfg.Audit.Path)
	}

	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.NewClient(cfg.MQTT, logger.With("component", "mqtt"))
		if err != nil {
			return fmt.Errorf("connecting to mqtt broker: %w", err)
		}
		defer mqttClient.Close()

		serverOpts = append(serverOpts, api.WithEventPublisher(mqttClient))
		telemetryOpts = append(telemetryOpts, telemetry.WithEventPublisher(mqttClient))
	}

	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.NewClient(ctx, cfg.InfluxDB, logger.With("component", "influxdb"))
		if err != nil {
			return fmt.Errorf("connecting to influxdb: %w", err)
		}
		defer influxClient.Close()

		telemetryOpts = append(telemetryOpts, telemetry.WithMetricSink(influxClient))
	}

	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger.With("component", "pipeline")),
	}
	if cfg.Bridge.Enabled {
		mgr := bridge.NewManager(cfg.Bridge, logger.With("component", "bridge"))
		if err := mgr.Start(ctx); err != nil {
			// Hardware is optional in the classroom; the simulator keeps
			// working without it.
			logger.Warn("bridge unavailable, continuing simulated-only", "error", err)
		} else {
			defer mgr.Stop()
			pipelineOpts = append(pipelineOpts, pipeline.WithBridge(mgr))
		}
	}

	lo, hi := cfg.Simulation.TelemetryWindow()
	server := api.NewServer(
		cfg,
		logger,
		Version,
		cat,
		registry,
		pipeline.New(cfg.Simulation, pipelineOpts...),
		telemetry.NewGenerator(lo, hi, telemetryOpts...),
		serverOpts...,
	)

	return server.Start(ctx)
}

// loadConfig resolves the configuration. An explicitly requested file must
// exist; the default path is optional and falls back to built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// loadCatalog resolves the device catalog source.
func loadCatalog(cfg *config.Config, logger *logging.Logger) (*catalog.Catalog, error) {
	if cfg.Catalog.Path == "" {
		return catalog.Builtin(), nil
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	logger.Info("catalog loaded", "path", cfg.Catalog.Path, "devices", cat.Count())
	return cat, nil
}
