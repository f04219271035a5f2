package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Entry Guard Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	CloudStore CloudStoreConfig `yaml:"cloudstore"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	Logging    LoggingConfig    `yaml:"logging"`
	Controller ControllerConfig `yaml:"controller"`
	Sensors    SensorsConfig    `yaml:"sensors"`
}

// SiteConfig identifies the entry point being guarded.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// TopicPrefix namespaces every topic this deployment publishes or
	// subscribes to, e.g. "entryguard/front-door".
	TopicPrefix string `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// CloudStoreConfig contains settings for the remote document store
// (Firebase Realtime Database REST endpoint).
type CloudStoreConfig struct {
	Enabled     bool   `yaml:"enabled"`
	DatabaseURL string `yaml:"database_url"`
	AuthToken   string `yaml:"auth_token"`

	// Timeout bounds a single write, in seconds.
	Timeout int `yaml:"timeout"`

	NotificationPath string `yaml:"notification_path"`
	SensorPath       string `yaml:"sensor_path"`

	Breaker CloudStoreBreakerConfig `yaml:"breaker"`
	Connect CloudStoreConnectConfig `yaml:"connect"`
}

// CloudStoreBreakerConfig configures the circuit breaker in front of the store.
type CloudStoreBreakerConfig struct {
	// ConsecutiveFailures trips the breaker open.
	ConsecutiveFailures int `yaml:"consecutive_failures"`
	// OpenSeconds is how long the breaker stays open before probing again.
	OpenSeconds int `yaml:"open_seconds"`
}

// CloudStoreConnectConfig configures the startup reachability probe.
type CloudStoreConnectConfig struct {
	MaxRetries    int `yaml:"max_retries"`
	MaxElapsedSec int `yaml:"max_elapsed"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ControllerConfig contains the coordination loop settings.
type ControllerConfig struct {
	// CyclePeriod is the fixed period of the control loop.
	CyclePeriod time.Duration `yaml:"cycle_period"`

	// Credential is the single numeric secret that opens the door.
	// Set ENTRYGUARD_CREDENTIAL rather than committing it to a file.
	Credential string `yaml:"credential"`

	// LockoutThreshold is the number of consecutive wrong entries that raise
	// an access-lockout notification.
	LockoutThreshold int `yaml:"lockout_threshold"`

	// NotifyAccessDenied publishes a notification for every wrong entry,
	// not just for lockouts.
	NotifyAccessDenied bool `yaml:"notify_access_denied"`

	Greeting GreetingConfig `yaml:"greeting"`
	Door     DoorConfig     `yaml:"door"`

	// AlarmTone is how long the buzzer sounds when a hazard is raised.
	AlarmTone time.Duration `yaml:"alarm_tone"`

	// RejectMessage is how long "Wrong Password!" stays on the display.
	RejectMessage time.Duration `yaml:"reject_message"`

	// RemoteMessage is how long text received on the display topic is shown.
	RemoteMessage time.Duration `yaml:"remote_message"`

	// TelemetryInterval is how often sensor readings are published.
	// Zero disables telemetry.
	TelemetryInterval time.Duration `yaml:"telemetry_interval"`
}

// GreetingConfig describes the presence greeting script.
type GreetingConfig struct {
	Flashes     int           `yaml:"flashes"`
	FlashPeriod time.Duration `yaml:"flash_period"`
	Beeps       int           `yaml:"beeps"`
	BeepPeriod  time.Duration `yaml:"beep_period"`
	// Hold is how long the greeting text remains after the tones.
	Hold time.Duration `yaml:"hold"`
}

// DoorConfig describes the lock actuation sequence.
type DoorConfig struct {
	OpenAngle   int           `yaml:"open_angle"`
	ClosedAngle int           `yaml:"closed_angle"`
	Dwell       time.Duration `yaml:"dwell"`
	// ClosedMessage is how long "Door Closed." is shown after the dwell.
	ClosedMessage time.Duration `yaml:"closed_message"`
}

// SensorsConfig contains sensor interpretation settings.
type SensorsConfig struct {
	// PresenceThreshold is compared against the raw presence level.
	PresenceThreshold float64 `yaml:"presence_threshold"`

	// PresenceComparison is "gte" (level >= threshold means present) or
	// "lte" (level <= threshold means present).
	PresenceComparison string `yaml:"presence_comparison"`

	// DebounceSamples is the number of consecutive identical reads needed
	// before a boolean input changes. 1 disables debouncing.
	DebounceSamples int `yaml:"debounce_samples"`

	// StaleAfter marks field-device readings older than this as failed reads.
	StaleAfter time.Duration `yaml:"stale_after"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ENTRYGUARD_SECTION_KEY
// For example: ENTRYGUARD_MQTT_HOST, ENTRYGUARD_CREDENTIAL
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with the timings of the reference door unit.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "entry-001",
			Name: "Front Door",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "entryguard-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix: "entryguard",
		},
		CloudStore: CloudStoreConfig{
			Timeout:          5,
			NotificationPath: "/notifications",
			SensorPath:       "/sensors",
			Breaker: CloudStoreBreakerConfig{
				ConsecutiveFailures: 5,
				OpenSeconds:         30,
			},
			Connect: CloudStoreConnectConfig{
				MaxRetries:    5,
				MaxElapsedSec: 30,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/api/v1/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Controller: ControllerConfig{
			CyclePeriod:      100 * time.Millisecond,
			LockoutThreshold: 3,
			Greeting: GreetingConfig{
				Flashes:     10,
				FlashPeriod: 200 * time.Millisecond,
				Beeps:       3,
				BeepPeriod:  400 * time.Millisecond,
				Hold:        time.Second,
			},
			Door: DoorConfig{
				OpenAngle:     90,
				ClosedAngle:   0,
				Dwell:         5 * time.Second,
				ClosedMessage: 2 * time.Second,
			},
			AlarmTone:         time.Second,
			RejectMessage:     2 * time.Second,
			RemoteMessage:     3 * time.Second,
			TelemetryInterval: time.Second,
		},
		Sensors: SensorsConfig{
			PresenceThreshold:  45,
			PresenceComparison: "gte",
			DebounceSamples:    1,
			StaleAfter:         5 * time.Second,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ENTRYGUARD_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("ENTRYGUARD_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ENTRYGUARD_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ENTRYGUARD_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("ENTRYGUARD_MQTT_TOPIC_PREFIX"); v != "" {
		cfg.MQTT.TopicPrefix = v
	}

	// Cloud store
	if v := os.Getenv("ENTRYGUARD_CLOUDSTORE_URL"); v != "" {
		cfg.CloudStore.DatabaseURL = v
	}
	if v := os.Getenv("ENTRYGUARD_CLOUDSTORE_TOKEN"); v != "" {
		cfg.CloudStore.AuthToken = v
	}

	// API
	if v := os.Getenv("ENTRYGUARD_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// Controller - the door credential (IMPORTANT: keep out of config files)
	if v := os.Getenv("ENTRYGUARD_CREDENTIAL"); v != "" {
		cfg.Controller.Credential = v
	}
}

// keypadAlphabet is the set of keys a 4x4 matrix keypad can produce.
const keypadAlphabet = "0123456789ABCD*#"

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required")
	} else if strings.ContainsAny(c.MQTT.TopicPrefix, "#+") {
		errs = append(errs, "mqtt.topic_prefix must not contain wildcards")
	}

	// Cloud store validation
	if c.CloudStore.Enabled {
		if c.CloudStore.DatabaseURL == "" {
			errs = append(errs, "cloudstore.database_url is required when cloudstore is enabled")
		}
		if c.CloudStore.Timeout < 1 {
			errs = append(errs, "cloudstore.timeout must be at least 1 second")
		}
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Controller validation - the credential is REQUIRED.
	// An empty credential would never validate and a credential the keypad
	// cannot type would lock every user out.
	if c.Controller.Credential == "" {
		errs = append(errs, "controller.credential is required (set ENTRYGUARD_CREDENTIAL environment variable)")
	} else if strings.Trim(c.Controller.Credential, keypadAlphabet) != "" {
		errs = append(errs, "controller.credential may only contain keypad characters 0-9, A-D, * and #")
	}
	if c.Controller.LockoutThreshold < 1 {
		errs = append(errs, "controller.lockout_threshold must be at least 1")
	}
	if c.Controller.CyclePeriod <= 0 {
		errs = append(errs, "controller.cycle_period must be positive")
	}
	if c.Controller.Door.Dwell <= 0 {
		errs = append(errs, "controller.door.dwell must be positive")
	}

	// Sensor validation
	switch c.Sensors.PresenceComparison {
	case "gte", "lte":
	default:
		errs = append(errs, "sensors.presence_comparison must be \"gte\" or \"lte\"")
	}
	if c.Sensors.DebounceSamples < 1 {
		errs = append(errs, "sensors.debounce_samples must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
