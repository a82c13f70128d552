// StageLink Core - Mixing Console Control Service
//
// This is the main entry point for the StageLink Core application.
// StageLink bridges OSC-speaking digital mixing consoles (Behringer
// X32/X-Air family) to MQTT, REST/WebSocket, and MCP control surfaces:
//   - UDP/OSC transport with request/response correlation
//   - Parameter-change journal (SQLite) and metrics (InfluxDB)
//   - Offline-first operation: the console link needs no internet
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/stagelink-core/migrations"

	"github.com/nerrad567/stagelink-core/internal/api"
	"github.com/nerrad567/stagelink-core/internal/bridges/mixer"
	"github.com/nerrad567/stagelink-core/internal/infrastructure/config"
	"github.com/nerrad567/stagelink-core/internal/infrastructure/database"
	"github.com/nerrad567/stagelink-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/stagelink-core/internal/infrastructure/logging"
	"github.com/nerrad567/stagelink-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/stagelink-core/internal/journal"
	"github.com/nerrad567/stagelink-core/internal/mcp"
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
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting StageLink Core",
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

	// When MCP is enabled, stdout carries the protocol. Logs must not
	// contaminate it.
	if cfg.MCP.Enabled && cfg.Logging.Output != "stderr" {
		cfg.Logging.Output = "stderr"
	}

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

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Parameter journal (optional)
	var journalRepo journal.Repository
	if cfg.Journal.Enabled {
		repo := journal.NewSQLiteRepository(db.DB)
		journalRepo = repo

		pruner := journal.NewPruner(repo, cfg.Journal.GetRetention(), cfg.Journal.GetPruneInterval())
		pruner.SetLogger(log)
		pruner.Start()
		defer pruner.Stop()
		log.Info("parameter journal enabled",
			"retention_days", cfg.Journal.RetentionDays,
			"prune_interval_hours", cfg.Journal.PruneInterval,
		)
	} else {
		log.Info("parameter journal disabled")
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
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
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Console transport
	transport := mixer.NewTransport()
	transport.SetLogger(log)
	defer func() {
		if closeErr := transport.Close(); closeErr != nil {
			log.Error("error closing transport", "error", closeErr)
		}
	}()

	// apiServer is assigned before the bridge starts; the state callbacks
	// only fire once the console link is up.
	var apiServer *api.Server

	bridge, err := mixer.NewBridge(mixer.BridgeOptions{
		Version:        version,
		Console:        transport,
		MQTTClient:     bridgeMQTT(mqttClient, log),
		Connection:     connectionDefaults(cfg.Mixer),
		Journal:        journalRepo,
		Metrics:        bridgeMetrics(influxClient),
		HealthInterval: cfg.Mixer.GetHealthInterval(),
		OnState: func(msg mixer.StateMessage) {
			if apiServer != nil {
				apiServer.Hub().Broadcast(api.EventParameterChanged, msg)
			}
		},
		OnConnectionState: func(state mixer.ConnectionState) {
			if apiServer != nil {
				apiServer.Hub().Broadcast(api.EventConnectionState, map[string]string{
					"state": string(state),
				})
			}
		},
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("creating mixer bridge: %w", err)
	}

	// REST/WebSocket API (optional)
	if cfg.API.Enabled {
		apiServer, err = api.New(api.Deps{
			Config:     cfg.API,
			Logger:     log,
			Console:    transport,
			Controller: bridge,
			Journal:    journalRepo,
			Version:    version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		log.Info("API server started",
			"addr", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
			"tls", cfg.API.TLS.Enabled,
		)
	} else {
		log.Info("API server disabled")
	}

	// Start the bridge (subscribes to MQTT command topics, health loop)
	if startErr := bridge.Start(ctx); startErr != nil {
		return fmt.Errorf("starting mixer bridge: %w", startErr)
	}
	defer func() {
		log.Info("stopping mixer bridge")
		bridge.Stop()
	}()
	log.Info("mixer bridge started")

	// Auto-connect to the console if configured. A console that is off at
	// startup is normal; connect commands can retry later.
	if cfg.Mixer.AutoConnect {
		if connectErr := bridge.ConnectConsole(ctx, mixer.ConnectionConfig{}); connectErr != nil {
			log.Warn("console auto-connect failed",
				"host", cfg.Mixer.Host,
				"error", connectErr,
			)
		} else {
			log.Info("console connected",
				"host", cfg.Mixer.Host,
				"device_type", cfg.Mixer.DeviceType,
			)
		}
	}

	// MCP tool server over stdio (optional)
	if cfg.MCP.Enabled {
		mcpServer, mcpErr := mcp.New(mcp.Deps{
			Logger:     log,
			Console:    transport,
			Controller: bridge,
			Journal:    journalRepo,
			Version:    version,
		})
		if mcpErr != nil {
			return fmt.Errorf("creating MCP server: %w", mcpErr)
		}
		go func() {
			if serveErr := mcpServer.Serve(); serveErr != nil {
				log.Error("MCP server stopped", "error", serveErr)
			}
		}()
		log.Info("MCP tool server enabled")
	}

	// Periodic transport throughput metrics
	if influxClient != nil {
		go reportTransportStats(ctx, transport, influxClient, cfg.Mixer.GetHealthInterval())
	}

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
	// 2. Mixer bridge, then transport
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if enabled)
	// 5. Journal pruner, then database

	log.Info("StageLink Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses STAGELINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("STAGELINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectionDefaults converts the mixer config section into the transport's
// connection settings.
func connectionDefaults(cfg config.MixerConfig) mixer.ConnectionConfig {
	return mixer.ConnectionConfig{
		Host:           cfg.Host,
		Port:           cfg.Port,
		DeviceType:     cfg.DeviceType,
		RequestTimeout: cfg.GetRequestTimeout(),
		RemoteUpdates:  cfg.RemoteUpdates,
		RemoteInterval: cfg.GetRemoteInterval(),
	}
}

// bridgeMetrics returns the bridge's metrics sink, or nil when InfluxDB is
// disabled. The nil check must happen on the concrete type: a nil *Client
// wrapped in the interface would not compare equal to nil inside the bridge.
func bridgeMetrics(client *influxdb.Client) mixer.MetricsWriter {
	if client == nil {
		return nil
	}
	return client
}

// bridgeMQTT wraps the infrastructure MQTT client for the mixer bridge, or
// returns nil when MQTT is disabled.
func bridgeMQTT(client *mqtt.Client, log *logging.Logger) mixer.MQTTClient {
	if client == nil {
		return nil
	}
	return &mqttBridgeAdapter{client: client, log: log}
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the mixer
// bridge's MQTTClient interface. The difference is the Subscribe handler
// signature:
// - Infrastructure mqtt: func(topic string, payload []byte) error
// - Mixer bridge expects: func(topic string, payload []byte)
type mqttBridgeAdapter struct {
	client *mqtt.Client
	log    *logging.Logger
}

// Publish implements mixer.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements mixer.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	// Wrap the void handler to return nil error (bridge handlers don't return errors)
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements mixer.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}

// Disconnect implements mixer.MQTTClient.
// Note: the MQTT client lifecycle is managed by run's defer chain, so this
// is a no-op.
func (a *mqttBridgeAdapter) Disconnect(_ uint) {
	// No-op: MQTT client lifecycle is managed by the defer chain
}

// reportTransportStats writes OSC transport counters to InfluxDB on a fixed
// cadence while the console is connected.
func reportTransportStats(ctx context.Context, transport *mixer.Transport, influxClient *influxdb.Client, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !transport.IsConnected() {
				continue
			}
			stats := transport.Stats()
			profile, err := transport.Profile()
			if err != nil {
				continue
			}
			influxClient.WriteTransportStats(string(profile.Type),
				stats.MessagesTx, stats.MessagesRx,
				stats.RequestsTimedOut, stats.MessagesDropped)
		}
	}
}

// healthCheck verifies the infrastructure connections are healthy. MQTT and
// InfluxDB are optional and skipped when nil.
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

	// Console transport health is connection-driven; a disconnected desk at
	// startup is not a failure.

	return nil
}
