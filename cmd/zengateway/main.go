// ZenControl DALI Gateway
//
// This is the main entry point for the gateway. It bridges ZenControl
// DALI lighting controllers (UDP unicast commands, multicast events)
// to a REST/WebSocket API and an optional MQTT bus, designed for:
//   - Offline-first operation on the local network
//   - Automatic controller and device discovery
//   - Scene activation from wall switches
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	_ "github.com/zencontrol/zengateway/migrations"

	"github.com/zencontrol/zengateway/internal/api"
	"github.com/zencontrol/zengateway/internal/bridges/zen"
	"github.com/zencontrol/zengateway/internal/controller"
	"github.com/zencontrol/zengateway/internal/device"
	"github.com/zencontrol/zengateway/internal/discovery"
	"github.com/zencontrol/zengateway/internal/infrastructure/config"
	"github.com/zencontrol/zengateway/internal/infrastructure/database"
	"github.com/zencontrol/zengateway/internal/infrastructure/influxdb"
	"github.com/zencontrol/zengateway/internal/infrastructure/logging"
	"github.com/zencontrol/zengateway/internal/infrastructure/mqtt"
	"github.com/zencontrol/zengateway/internal/scene"
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
func run(ctx context.Context) error { //nolint:gocognit,cyclop // linear startup wiring
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting ZenControl gateway",
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

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise device registry
	deviceRepo := device.NewSQLiteRepository(db.DB)
	deviceRegistry := device.NewRegistry(deviceRepo)
	deviceRegistry.SetLogger(log)

	if refreshErr := deviceRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", deviceRegistry.Count())

	// Initialise controller registry and seed statically configured controllers
	controllerRegistry := controller.NewRegistry()
	controllerRegistry.SetLogger(log)
	for uid, cc := range cfg.Controllers {
		controllerRegistry.Seed(uid, cc.IPAddress, cc.Name, cc.DiscoveryOn())
	}
	log.Info("controller registry initialised", "configured", controllerRegistry.Count())

	// Watchdog evicts controllers that stop heartbeating
	watchdog := controller.NewWatchdog(controller.WatchdogOptions{
		Registry:      controllerRegistry,
		CheckInterval: cfg.WatchdogCheckInterval(),
		StaleTimeout:  cfg.WatchdogStaleTimeout(),
		Logger:        log,
	})
	go watchdog.Run(ctx)

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

	// Bind the UDP command socket
	udpClient, err := zen.StartClient(zen.ClientConfig{
		ListenPort: cfg.Network.UDPPort,
		Timeout:    cfg.CommandTimeout(),
		Retries:    cfg.Command.Retries,
	})
	if err != nil {
		return fmt.Errorf("starting UDP client: %w", err)
	}
	udpClient.SetLogger(log)
	defer func() {
		log.Info("closing UDP client")
		if closeErr := udpClient.Close(); closeErr != nil {
			log.Error("error closing UDP client", "error", closeErr)
		}
	}()
	log.Info("UDP command client started", "port", cfg.Network.UDPPort)

	// Join the multicast event channel
	listener, err := zen.StartListener(zen.ListenerConfig{
		Group:     cfg.Network.MulticastGroup,
		Port:      cfg.Network.MulticastPort,
		Interface: cfg.Network.Interface,
	})
	if err != nil {
		return fmt.Errorf("starting multicast listener: %w", err)
	}
	listener.SetLogger(log)
	defer func() {
		log.Info("closing multicast listener")
		if closeErr := listener.Close(); closeErr != nil {
			log.Error("error closing multicast listener", "error", closeErr)
		}
	}()
	log.Info("multicast listener started",
		"group", cfg.Network.MulticastGroup,
		"port", cfg.Network.MulticastPort,
	)

	// WebSocket hub is shared between the API server and the bridge
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// The scene engine and discovery manager both depend on the bridge,
	// and the bridge calls back into them. Late-bound links break the
	// construction cycle.
	sceneLink := &sceneActivatorLink{}
	discoveryLink := &discoveryTriggerLink{log: log}

	bridgeOpts := zen.BridgeOptions{
		UDP:                udpClient,
		Events:             listener,
		Controllers:        controllerRegistry,
		Devices:            deviceRegistry,
		WS:                 hub,
		Scenes:             sceneLink,
		OnDiscoveryCommand: discoveryLink.trigger,
		CommandTimeout:     cfg.CommandTimeout(),
		Logger:             log,
	}
	if mqttClient != nil {
		bridgeOpts.MQTT = mqttClient
	}
	if influxClient != nil {
		bridgeOpts.Metrics = influxClient
	}

	bridge, err := zen.NewBridge(bridgeOpts)
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if err := bridge.Start(); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		bridge.Stop()
	}()
	log.Info("ZenControl bridge started")

	// Scene storage and engine
	sceneRepo := scene.NewSQLiteRepository(db.DB)
	engineOpts := scene.EngineOptions{
		Repository: sceneRepo,
		Sender:     bridge,
		WS:         hub,
		Logger:     log,
	}
	if mqttClient != nil {
		engineOpts.MQTT = mqttClient
	}
	sceneEngine, err := scene.NewEngine(engineOpts)
	if err != nil {
		return fmt.Errorf("creating scene engine: %w", err)
	}
	sceneLink.engine.Store(sceneEngine)

	// Discovery manager
	managerOpts := discovery.ManagerOptions{
		Querier:       bridge,
		Controllers:   controllerRegistry,
		Devices:       deviceRegistry,
		WS:            hub,
		Timeout:       cfg.DiscoveryTimeout(),
		RetryInterval: cfg.DiscoveryRetryInterval(),
		Logger:        log,
	}
	if mqttClient != nil {
		managerOpts.MQTT = mqttClient
	}
	discoveryMgr, err := discovery.NewManager(managerOpts)
	if err != nil {
		return fmt.Errorf("creating discovery manager: %w", err)
	}
	defer func() {
		log.Info("stopping discovery manager")
		discoveryMgr.Stop()
	}()
	discoveryLink.manager.Store(discoveryMgr)

	if cfg.Discovery.OnStartup {
		if triggerErr := discoveryMgr.Trigger(false); triggerErr != nil {
			log.Warn("startup discovery failed to start", "error", triggerErr)
		} else {
			log.Info("startup discovery triggered")
		}
	}

	// API server
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log,
		Devices:     deviceRegistry,
		Controllers: controllerRegistry,
		Bridge:      bridge,
		SceneRepo:   sceneRepo,
		SceneEngine: sceneEngine,
		Discovery:   discoveryMgr,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order: API server, discovery,
	// bridge, multicast listener, UDP client, InfluxDB, MQTT, database.

	log.Info("ZenControl gateway stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ZENGW_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ZENGW_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// The MQTT and InfluxDB clients may be nil when disabled.
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

// sceneActivatorLink defers the bridge's scene dependency until the scene
// engine exists. The bridge registers its event handler before the engine
// is constructed, so the field is atomic: an early button event reads nil
// and is silently dropped.
type sceneActivatorLink struct {
	engine atomic.Pointer[scene.Engine]
}

func (l *sceneActivatorLink) ActivateForButton(ctx context.Context, deviceID string, button int) error {
	engine := l.engine.Load()
	if engine == nil {
		return nil
	}
	return engine.ActivateForButton(ctx, deviceID, button)
}

// discoveryTriggerLink defers the bridge's discovery callback until the
// discovery manager exists. Atomic for the same reason as
// sceneActivatorLink.
type discoveryTriggerLink struct {
	manager atomic.Pointer[discovery.Manager]
	log     *logging.Logger
}

func (l *discoveryTriggerLink) trigger(force bool) {
	manager := l.manager.Load()
	if manager == nil {
		return
	}
	if err := manager.Trigger(force); err != nil {
		l.log.Warn("discovery trigger failed", "force", force, "error", err)
	}
}
