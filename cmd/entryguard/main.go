// Entry Guard Core - entry-point coordination controller
//
// This is the main entry point for the Entry Guard Core application.
// It connects to the MQTT broker that carries the field device traffic,
// optionally to the cloud document store, and runs the fixed-period
// control loop that drives the door lock, buzzer, indicators and display.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/nerrad567/entryguard/internal/actuator"
	"github.com/nerrad567/entryguard/internal/api"
	"github.com/nerrad567/entryguard/internal/controller"
	"github.com/nerrad567/entryguard/internal/credential"
	"github.com/nerrad567/entryguard/internal/fielddevice"
	"github.com/nerrad567/entryguard/internal/infrastructure/cloudstore"
	"github.com/nerrad567/entryguard/internal/infrastructure/config"
	"github.com/nerrad567/entryguard/internal/infrastructure/logging"
	"github.com/nerrad567/entryguard/internal/infrastructure/mqtt"
	"github.com/nerrad567/entryguard/internal/metrics"
	"github.com/nerrad567/entryguard/internal/notify"
	"github.com/nerrad567/entryguard/internal/sensor"
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

// configEnvVar overrides the default configuration path when --config is not given.
const configEnvVar = "ENTRYGUARD_CONFIG"

func main() {
	// Cancel on Ctrl+C and SIGTERM so deferred shutdown runs
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command line. It is a function rather than a package
// variable so tests get a fresh flag set each time.
func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "entryguard",
		Short: "Entry Guard Core - door access and hazard coordination",
		Long: `Entry Guard Core runs the control loop for a guarded entry point.

It reads presence, fire and gas sensors and the keypad from the field device,
opens the door for the correct credential or a gas hazard, and publishes
notifications to the MQTT broker and the cloud document store.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), resolveConfigPath(configPath))
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (default $"+configEnvVar+" or "+defaultConfigPath+")")

	return cmd
}

// resolveConfigPath picks the flag value, then ENTRYGUARD_CONFIG, then the default.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: YAML configuration file
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Entry Guard Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version).With("site", cfg.Site.ID)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	sensorSettings, err := sensor.SettingsFromConfig(cfg.Sensors)
	if err != nil {
		return fmt.Errorf("sensor settings: %w", err)
	}

	fsm, err := credential.New(cfg.Controller.Credential, cfg.Controller.LockoutThreshold)
	if err != nil {
		return fmt.Errorf("credential: %w", err)
	}

	// Connect to MQTT broker; retries until reachable or the shutdown signal
	mqttClient, err := mqtt.Connect(ctx, cfg.MQTT, cfg.Site.ID, log.With("component", "mqtt"))
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
		"prefix", mqttClient.Topics().Prefix(),
	)

	checks := map[string]api.HealthChecker{"mqtt": mqttClient}

	// Connect to the cloud store (optional). The dispatcher must see a nil
	// interface, not a nil *cloudstore.Client, when it is disabled.
	var store notify.DocumentStore
	var storeView api.BreakerProvider
	if cfg.CloudStore.Enabled {
		cloudClient, connectErr := connectCloudStore(ctx, cfg.CloudStore, log)
		if connectErr != nil {
			return fmt.Errorf("connecting to cloud store: %w", connectErr)
		}
		defer func() {
			log.Info("closing cloud store client")
			if closeErr := cloudClient.Close(); closeErr != nil {
				log.Error("error closing cloud store", "error", closeErr)
			}
		}()
		store, storeView = cloudClient, cloudClient
		checks["cloudstore"] = cloudClient
	} else {
		log.Info("cloud store disabled")
	}

	topics := mqttClient.Topics()
	dispatcher := notify.NewDispatcher(mqttClient, store, notify.Options{
		NotificationTopic: topics.Notifications(),
		SensorTopic:       topics.Sensors(),
		QoS:               mqttClient.QoS(),
		NotificationPath:  cfg.CloudStore.NotificationPath,
		SensorPath:        cfg.CloudStore.SensorPath,
	})

	commands := &actuator.CommandQueue{}
	messages := &controller.MessageBox{}

	bridge, err := fielddevice.NewBridge(fielddevice.BridgeOptions{
		MQTTClient: mqttClient,
		Topics:     topics,
		QoS:        mqttClient.QoS(),
		StaleAfter: cfg.Sensors.StaleAfter,
		Commands:   commands,
		Messages:   messages,
		Logger:     log.With("component", "fielddevice"),
	})
	if err != nil {
		return fmt.Errorf("creating field device bridge: %w", err)
	}
	if startErr := bridge.Start(ctx); startErr != nil {
		return fmt.Errorf("starting field device bridge: %w", startErr)
	}
	defer func() {
		log.Info("stopping field device bridge")
		bridge.Stop()
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(registry)

	deps := controller.Deps{
		Sampler:    sensor.NewSampler(bridge, sensorSettings, log.With("component", "sensor")),
		Actuators:  actuator.NewDriver(bridge, cfg.Controller.Door.OpenAngle, cfg.Controller.Door.ClosedAngle, log.With("component", "actuator")),
		Display:    bridge,
		Credential: fsm,
		Notifier:   dispatcher,
		Keypad:     bridge,
		Commands:   commands,
		Messages:   messages,
		Metrics:    recorder,
		Logger:     log.With("component", "controller"),
	}

	// The hub exists before the controller so broadcasts have somewhere to go
	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.WebSocket, log)
		go hub.Run(ctx)
		deps.Observer = hub
	}

	ctrl, err := controller.New(deps, controller.SettingsFromConfig(cfg.Controller))
	if err != nil {
		return fmt.Errorf("creating controller: %w", err)
	}

	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:      cfg.API,
			WS:          cfg.WebSocket,
			Logger:      log,
			Status:      ctrl,
			Checks:      checks,
			Gatherer:    registry,
			MQTT:        mqttClient,
			CloudStore:  storeView,
			FieldDevice: bridge,
			Hub:         hub,
			Version:     version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	// The cloud store is best effort; only the broker must be up to start.
	if err := healthCheck(ctx, checks, log, "cloudstore"); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("startup health checks passed")

	log.Info("control loop starting", "cycle_period", cfg.Controller.CyclePeriod)

	// Blocks until the shutdown signal, then drains queued notifications
	ctrl.Run(ctx)

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server (if enabled)
	// 2. Field device bridge
	// 3. Cloud store (if enabled)
	// 4. MQTT

	log.Info("Entry Guard Core stopped")
	return nil
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Components named in degraded are never fatal; their failures are logged.
//
// Returns:
//   - error: every failing required check, joined, or nil if all healthy
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker, log *logging.Logger, degraded ...string) error {
	var errs []error
	for name, c := range checks {
		err := c.HealthCheck(ctx)
		if err == nil {
			continue
		}
		if slices.Contains(degraded, name) {
			log.Warn("component unhealthy, continuing degraded", "component", name, "error", err)
			continue
		}
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	return errors.Join(errs...)
}

// connectCloudStore probes the cloud store and, when it cannot be reached,
// returns an unprobed client so notifications resume once it answers.
//
// A refused token or a bad URL is a configuration error and stays fatal.
//
// Returns:
//   - *cloudstore.Client: Open for writes
//   - error: ErrInvalidURL, ErrAuthRejected or ErrDisabled from cloudstore
func connectCloudStore(ctx context.Context, cfg config.CloudStoreConfig, log *logging.Logger) (*cloudstore.Client, error) {
	client, err := cloudstore.Connect(ctx, cfg)
	switch {
	case err == nil:
		log.Info("cloud store connected", "url", cfg.DatabaseURL)
		return client, nil
	case errors.Is(err, cloudstore.ErrAuthRejected),
		errors.Is(err, cloudstore.ErrInvalidURL),
		errors.Is(err, cloudstore.ErrDisabled):
		return nil, err
	}

	log.Warn("cloud store unreachable, continuing without it until it answers",
		"url", cfg.DatabaseURL,
		"error", err)
	return cloudstore.New(cfg)
}
