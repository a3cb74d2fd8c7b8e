// Home Presence Core - Network Presence Tracking Service
//
// This is the main entry point for the presence daemon. It polls an
// ASUS-WRT router for connected clients, reconciles them against a
// curated device registry, and publishes presence state over MQTT,
// InfluxDB, and a REST API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/home-presence-core/internal/api"
	"github.com/nerrad567/home-presence-core/internal/device"
	"github.com/nerrad567/home-presence-core/internal/infrastructure/config"
	"github.com/nerrad567/home-presence-core/internal/infrastructure/database"
	"github.com/nerrad567/home-presence-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/home-presence-core/internal/infrastructure/logging"
	"github.com/nerrad567/home-presence-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/home-presence-core/internal/owner"
	"github.com/nerrad567/home-presence-core/internal/presence"
	"github.com/nerrad567/home-presence-core/internal/router/asuswrt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Home Presence Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Migrate the schema, adopting tables from earlier releases in place
	if schemaErr := db.EnsureSchema(ctx); schemaErr != nil {
		return fmt.Errorf("ensuring schema: %w", schemaErr)
	}
	log.Info("database schema ready")

	// Initialise registries
	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	owners := owner.NewSQLiteRepository(db.DB)

	// Router client (optional - without it presence endpoints report
	// the router as unconfigured but the registry API still works)
	var routerSource presence.RouterSource
	if cfg.Router.URL != "" {
		routerClient, routerErr := asuswrt.New(asuswrt.Config{
			URL:      cfg.Router.URL,
			Username: cfg.Router.Username,
			Password: cfg.Router.Password,
			Timeout:  cfg.GetRouterTimeout(),
		}, log)
		if routerErr != nil {
			return fmt.Errorf("creating router client: %w", routerErr)
		}
		routerSource = routerClient
		log.Info("router client configured", "url", cfg.Router.URL)
	} else {
		log.Info("router not configured, presence polling disabled")
	}

	presenceService := presence.NewService(routerSource, registry, owners, cfg.Presence.PeopleFile, log)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	var publisher presence.Publisher
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		publisher = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	var recorder presence.Recorder
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		recorder = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the background monitor when a router and interval are configured
	var monitor *presence.Monitor
	if routerSource != nil && cfg.Presence.PollInterval > 0 {
		monitor = presence.NewMonitor(presenceService, registry, publisher, recorder,
			cfg.GetPollInterval(), log)
		go monitor.Run(ctx)
		log.Info("presence monitor scheduled", "interval", cfg.GetPollInterval().String())
	} else {
		log.Info("presence monitor disabled")
	}

	// Start the API server
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		Logger:   log,
		Registry: registry,
		Owners:   owners,
		Presence: presenceService,
		Monitor:  monitor,
		DB:       db,
		MQTT:     mqttClient,
		Influx:   influxClient,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify infrastructure connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Database

	log.Info("Home Presence Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HOMEPRESENCE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HOMEPRESENCE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
