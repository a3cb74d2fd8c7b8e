package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/home-presence-core/internal/device"
	"github.com/nerrad567/home-presence-core/internal/infrastructure/config"
	"github.com/nerrad567/home-presence-core/internal/infrastructure/database"
	"github.com/nerrad567/home-presence-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/home-presence-core/internal/infrastructure/logging"
	"github.com/nerrad567/home-presence-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/home-presence-core/internal/owner"
	"github.com/nerrad567/home-presence-core/internal/presence"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Registry *device.Registry
	Owners   owner.Repository
	Presence *presence.Service
	Monitor  *presence.Monitor // optional, serves cached snapshots
	DB       *database.DB
	MQTT     *mqtt.Client     // optional
	Influx   *influxdb.Client // optional
	Version  string
}

// Server is the HTTP API server for Home Presence Core.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	logger   *logging.Logger
	registry *device.Registry
	owners   owner.Repository
	presence *presence.Service
	monitor  *presence.Monitor
	db       *database.DB
	mqtt     *mqtt.Client
	influx   *influxdb.Client
	version  string
	server   *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, registry, repositories)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Owners == nil {
		return nil, fmt.Errorf("owner repository is required")
	}
	if deps.Presence == nil {
		return nil, fmt.Errorf("presence service is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("database is required")
	}
	// MQTT and InfluxDB are optional - health reporting degrades gracefully

	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger.With("component", "api"),
		registry: deps.Registry,
		owners:   deps.Owners,
		presence: deps.Presence,
		monitor:  deps.Monitor,
		db:       deps.DB,
		mqtt:     deps.MQTT,
		influx:   deps.Influx,
		version:  deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// The listener runs in a background goroutine; stop it with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// handleHealth reports service health and per-component status.
//
// The database is required; MQTT and InfluxDB are optional components
// whose failure degrades status to "degraded" rather than "unhealthy".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	components := make(map[string]string)
	status := "ok"

	if err := s.db.HealthCheck(ctx); err != nil {
		components["database"] = err.Error()
		status = "unhealthy"
	} else {
		components["database"] = "ok"
	}

	if s.mqtt != nil {
		if err := s.mqtt.HealthCheck(ctx); err != nil {
			components["mqtt"] = err.Error()
			if status == "ok" {
				status = "degraded"
			}
		} else {
			components["mqtt"] = "ok"
		}
	}

	if s.influx != nil {
		if err := s.influx.HealthCheck(ctx); err != nil {
			components["influxdb"] = err.Error()
			if status == "ok" {
				status = "degraded"
			}
		} else {
			components["influxdb"] = "ok"
		}
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
