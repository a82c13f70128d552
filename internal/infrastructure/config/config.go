package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for StageLink Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Mixer    MixerConfig    `yaml:"mixer"`
	Database DatabaseConfig `yaml:"database"`
	Journal  JournalConfig  `yaml:"journal"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	API      APIConfig      `yaml:"api"`
	MCP      MCPConfig      `yaml:"mcp"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// MixerConfig contains the default console target and transport tuning.
type MixerConfig struct {
	// Host is the console's IP address or hostname.
	Host string `yaml:"host"`

	// Port is the console's OSC port. 0 selects the device profile's default.
	Port int `yaml:"port"`

	// DeviceType selects the device profile ("x32", "xr18", "xr16", "xr12").
	// Case-insensitive; aliases like "m32" are accepted.
	DeviceType string `yaml:"device_type"`

	// AutoConnect connects to the console at startup.
	AutoConnect bool `yaml:"auto_connect"`

	// RequestTimeout is the reply wait in seconds. Default: 5.
	RequestTimeout int `yaml:"request_timeout"`

	// RemoteUpdates subscribes to unsolicited parameter updates (/xremote).
	RemoteUpdates bool `yaml:"remote_updates"`

	// RemoteInterval is the subscription renewal period in seconds.
	// The console expires the subscription after ten seconds. Default: 9.
	RemoteInterval int `yaml:"remote_interval"`

	// HealthInterval is the bridge health publish period in seconds.
	// Default: 30.
	HealthInterval int `yaml:"health_interval"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// JournalConfig contains parameter-journal settings.
type JournalConfig struct {
	// Enabled turns the parameter-change journal on.
	Enabled bool `yaml:"enabled"`

	// RetentionDays is how long journal entries are kept. Default: 30.
	RetentionDays int `yaml:"retention_days"`

	// PruneInterval is how often old entries are pruned, in hours. Default: 24.
	PruneInterval int `yaml:"prune_interval"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
	Auth     APIAuthConfig    `yaml:"auth"`
	WS       WebSocketConfig  `yaml:"websocket"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// APIAuthConfig contains API authentication settings.
//
// Clients exchange the API key for a short-lived JWT at /api/v1/auth/token
// and present the JWT as a Bearer token on every other endpoint.
type APIAuthConfig struct {
	// APIKey is the shared secret exchanged for access tokens.
	APIKey string `yaml:"api_key"`

	// JWTSecret signs access tokens (HS256). Minimum 32 characters.
	JWTSecret string `yaml:"jwt_secret"`

	// TokenTTL is the access token lifetime in minutes. Default: 15.
	TokenTTL int `yaml:"token_ttl"`
}

// WebSocketConfig contains WebSocket event-stream settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// MCPConfig contains agent tool server settings.
type MCPConfig struct {
	// Enabled serves MCP tools over stdio. When on, logging should go to
	// stderr because stdout carries the protocol.
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: STAGELINK_SECTION_KEY
// For example: STAGELINK_DATABASE_PATH, STAGELINK_MIXER_HOST
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

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Mixer: MixerConfig{
			Host:           "",
			DeviceType:     "x32",
			RequestTimeout: 5,
			RemoteUpdates:  true,
			RemoteInterval: 9,
			HealthInterval: 30,
		},
		Database: DatabaseConfig{
			Path:        "./data/stagelink.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Journal: JournalConfig{
			Enabled:       true,
			RetentionDays: 30,
			PruneInterval: 24,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "stagelink-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
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
			Auth: APIAuthConfig{
				TokenTTL: 15,
			},
			WS: WebSocketConfig{
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: STAGELINK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Mixer
	if v := os.Getenv("STAGELINK_MIXER_HOST"); v != "" {
		cfg.Mixer.Host = v
	}
	if v := os.Getenv("STAGELINK_MIXER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Mixer.Port = port
		}
	}
	if v := os.Getenv("STAGELINK_MIXER_DEVICE_TYPE"); v != "" {
		cfg.Mixer.DeviceType = v
	}

	// Database
	if v := os.Getenv("STAGELINK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("STAGELINK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("STAGELINK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("STAGELINK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("STAGELINK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// API secrets (always override these in production)
	if v := os.Getenv("STAGELINK_API_KEY"); v != "" {
		cfg.API.Auth.APIKey = v
	}
	if v := os.Getenv("STAGELINK_JWT_SECRET"); v != "" {
		cfg.API.Auth.JWTSecret = v
	}
}

// minJWTSecretLength is the minimum accepted JWT signing secret length.
// Short secrets make forged console-control tokens feasible.
const minJWTSecretLength = 32

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.Mixer.RequestTimeout < 0 {
		errs = append(errs, "mixer.request_timeout must not be negative")
	}
	if c.Mixer.AutoConnect && c.Mixer.Host == "" {
		errs = append(errs, "mixer.host is required when mixer.auto_connect is set")
	}

	if c.Journal.Enabled && c.Journal.RetentionDays < 1 {
		errs = append(errs, "journal.retention_days must be at least 1")
	}

	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}
		if c.API.Auth.APIKey == "" {
			errs = append(errs, "api.auth.api_key is required (set STAGELINK_API_KEY environment variable)")
		}
		if c.API.Auth.JWTSecret == "" {
			errs = append(errs, "api.auth.jwt_secret is required (set STAGELINK_JWT_SECRET environment variable)")
		} else if len(c.API.Auth.JWTSecret) < minJWTSecretLength {
			errs = append(errs, "api.auth.jwt_secret must be at least 32 characters")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetRequestTimeout returns the mixer request timeout as a Duration.
func (c *MixerConfig) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// GetRemoteInterval returns the /xremote renewal period as a Duration.
func (c *MixerConfig) GetRemoteInterval() time.Duration {
	return time.Duration(c.RemoteInterval) * time.Second
}

// GetHealthInterval returns the bridge health publish period as a Duration.
func (c *MixerConfig) GetHealthInterval() time.Duration {
	return time.Duration(c.HealthInterval) * time.Second
}

// GetRetention returns the journal retention window as a Duration.
func (c *JournalConfig) GetRetention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// GetPruneInterval returns the journal prune period as a Duration.
func (c *JournalConfig) GetPruneInterval() time.Duration {
	return time.Duration(c.PruneInterval) * time.Hour
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}

// GetTokenTTL returns the access token lifetime as a Duration.
func (c *APIAuthConfig) GetTokenTTL() time.Duration {
	return time.Duration(c.TokenTTL) * time.Minute
}
