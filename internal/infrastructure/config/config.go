package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the ZenControl gateway.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Gateway     GatewayConfig               `yaml:"gateway"`
	Network     NetworkConfig               `yaml:"network"`
	Controllers map[string]ControllerConfig `yaml:"controllers"`
	Command     CommandConfig               `yaml:"command"`
	Discovery   DiscoveryConfig             `yaml:"discovery"`
	Watchdog    WatchdogConfig              `yaml:"watchdog"`
	Database    DatabaseConfig              `yaml:"database"`
	MQTT        MQTTConfig                  `yaml:"mqtt"`
	API         APIConfig                   `yaml:"api"`
	WebSocket   WebSocketConfig             `yaml:"websocket"`
	InfluxDB    InfluxDBConfig              `yaml:"influxdb"`
	Logging     LoggingConfig               `yaml:"logging"`
	Security    SecurityConfig              `yaml:"security"`
}

// GatewayConfig contains gateway identity information.
type GatewayConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// NetworkConfig contains the ZenControl protocol network settings.
//
// The defaults match the values published by ZenControl controllers:
// events arrive on the 239.255.90.67:5110 multicast channel and commands
// travel over unicast UDP on port 5108.
type NetworkConfig struct {
	// MulticastGroup is the IPv4 multicast group controllers publish events to.
	MulticastGroup string `yaml:"multicast_group"`

	// MulticastPort is the UDP port of the multicast event channel.
	MulticastPort int `yaml:"multicast_port"`

	// UDPPort is the UDP port used for unicast commands and responses.
	UDPPort int `yaml:"udp_port"`

	// Interface optionally pins the multicast listener to a named interface.
	// Empty means the system default.
	Interface string `yaml:"interface"`
}

// ControllerConfig describes a statically configured controller.
// Statically configured controllers are seeded into the registry at startup
// and are exempt from stale eviction.
type ControllerConfig struct {
	IPAddress string `yaml:"ip_address"`
	Name      string `yaml:"name"`

	// DiscoveryEnabled gates whether discovery queries this controller.
	// Omitted means enabled, matching dynamically discovered controllers.
	DiscoveryEnabled *bool `yaml:"discovery_enabled"`
}

// DiscoveryOn reports whether discovery should query this controller,
// defaulting to true when discovery_enabled is omitted.
func (c ControllerConfig) DiscoveryOn() bool {
	return c.DiscoveryEnabled == nil || *c.DiscoveryEnabled
}

// CommandConfig contains UDP command settings.
type CommandConfig struct {
	// Timeout is the per-command response timeout in seconds.
	// Clamped to 0.5–10 during validation.
	Timeout float64 `yaml:"timeout"`

	// Retries is the number of resend attempts after a timeout.
	Retries int `yaml:"retries"`
}

// DiscoveryConfig contains device discovery settings.
type DiscoveryConfig struct {
	// Timeout is how long to collect controller announcements, in seconds.
	// Must be between 5 and 300.
	Timeout int `yaml:"timeout"`

	// RetryInterval is the backoff between inventory query retries, in seconds.
	RetryInterval int `yaml:"retry_interval"`

	// OnStartup triggers a discovery run when the gateway starts.
	OnStartup bool `yaml:"on_startup"`
}

// WatchdogConfig contains controller health monitoring settings.
type WatchdogConfig struct {
	// CheckInterval is how often the watchdog inspects controllers, in seconds.
	CheckInterval int `yaml:"check_interval"`

	// StaleTimeout is how long a controller may go unseen before eviction, in seconds.
	StaleTimeout int `yaml:"stale_timeout"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
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

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
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
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
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

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT   JWTConfig   `yaml:"jwt"`
	Admin AdminConfig `yaml:"admin"`
}

// JWTConfig contains JWT signing settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// AdminConfig contains the single admin credential for the REST API.
// PasswordHash is an Argon2id PHC string produced by the auth package.
type AdminConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

// Default network values for ZenControl controllers.
const (
	DefaultMulticastGroup = "239.255.90.67"
	DefaultMulticastPort  = 5110
	DefaultUDPPort        = 5108

	// Discovery timeout bounds (seconds).
	DefaultDiscoveryTimeout = 30
	minDiscoveryTimeout     = 5
	maxDiscoveryTimeout     = 300

	// Command timeout bounds (seconds).
	defaultCommandTimeout = 2.0
	minCommandTimeout     = 0.5
	maxCommandTimeout     = 10.0
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ZENGW_SECTION_KEY
// For example: ZENGW_DATABASE_PATH, ZENGW_MQTT_HOST
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
		Gateway: GatewayConfig{
			ID:   "zengw-001",
			Name: "ZenControl Gateway",
		},
		Network: NetworkConfig{
			MulticastGroup: DefaultMulticastGroup,
			MulticastPort:  DefaultMulticastPort,
			UDPPort:        DefaultUDPPort,
		},
		Command: CommandConfig{
			Timeout: defaultCommandTimeout,
			Retries: 1,
		},
		Discovery: DiscoveryConfig{
			Timeout:       DefaultDiscoveryTimeout,
			RetryInterval: 5,
			OnStartup:     true,
		},
		Watchdog: WatchdogConfig{
			CheckInterval: 60,
			StaleTimeout:  120,
		},
		Database: DatabaseConfig{
			Path:        "./data/zengateway.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "zengateway",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
			Admin: AdminConfig{
				Username: "admin",
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ZENGW_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Network
	if v := os.Getenv("ZENGW_MULTICAST_GROUP"); v != "" {
		cfg.Network.MulticastGroup = v
	}
	if v := os.Getenv("ZENGW_MULTICAST_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Network.MulticastPort = port
		}
	}
	if v := os.Getenv("ZENGW_UDP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Network.UDPPort = port
		}
	}

	// Database
	if v := os.Getenv("ZENGW_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("ZENGW_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ZENGW_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ZENGW_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("ZENGW_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("ZENGW_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security - JWT secret (always override in production)
	if v := os.Getenv("ZENGW_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Gateway.ID == "" {
		errs = append(errs, "gateway.id is required")
	}

	// Network validation
	ip := net.ParseIP(c.Network.MulticastGroup)
	if ip == nil || !ip.IsMulticast() {
		errs = append(errs, "network.multicast_group must be a valid multicast address")
	}
	if c.Network.MulticastPort < 1 || c.Network.MulticastPort > 65535 {
		errs = append(errs, "network.multicast_port must be between 1 and 65535")
	}
	if c.Network.UDPPort < 1 || c.Network.UDPPort > 65535 {
		errs = append(errs, "network.udp_port must be between 1 and 65535")
	}
	if c.Network.UDPPort == c.Network.MulticastPort {
		errs = append(errs, "network.udp_port must differ from network.multicast_port")
	}

	// Command validation
	if c.Command.Timeout < minCommandTimeout || c.Command.Timeout > maxCommandTimeout {
		errs = append(errs, fmt.Sprintf("command.timeout must be between %.1f and %.0f seconds", minCommandTimeout, maxCommandTimeout))
	}
	if c.Command.Retries < 0 {
		errs = append(errs, "command.retries must not be negative")
	}

	// Discovery validation
	if c.Discovery.Timeout < minDiscoveryTimeout || c.Discovery.Timeout > maxDiscoveryTimeout {
		errs = append(errs, fmt.Sprintf("discovery.timeout must be between %d and %d seconds", minDiscoveryTimeout, maxDiscoveryTimeout))
	}

	// Watchdog validation
	if c.Watchdog.CheckInterval < 1 {
		errs = append(errs, "watchdog.check_interval must be at least 1 second")
	}
	if c.Watchdog.StaleTimeout < c.Watchdog.CheckInterval {
		errs = append(errs, "watchdog.stale_timeout must be at least watchdog.check_interval")
	}

	// Controller validation
	for id, ctrl := range c.Controllers {
		if net.ParseIP(ctrl.IPAddress) == nil {
			errs = append(errs, fmt.Sprintf("controllers.%s.ip_address is not a valid IP address", id))
		}
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Security validation - JWT secret is REQUIRED.
	// The API controls physical lighting; a forged token means control of
	// the building, so weak secrets are rejected outright.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set ZENGW_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// CommandTimeout returns the per-command timeout as a Duration.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Command.Timeout * float64(time.Second))
}

// DiscoveryTimeout returns the discovery collection window as a Duration.
func (c *Config) DiscoveryTimeout() time.Duration {
	return time.Duration(c.Discovery.Timeout) * time.Second
}

// DiscoveryRetryInterval returns the inventory query retry backoff as a Duration.
func (c *Config) DiscoveryRetryInterval() time.Duration {
	return time.Duration(c.Discovery.RetryInterval) * time.Second
}

// WatchdogCheckInterval returns the watchdog check interval as a Duration.
func (c *Config) WatchdogCheckInterval() time.Duration {
	return time.Duration(c.Watchdog.CheckInterval) * time.Second
}

// WatchdogStaleTimeout returns the controller stale timeout as a Duration.
func (c *Config) WatchdogStaleTimeout() time.Duration {
	return time.Duration(c.Watchdog.StaleTimeout) * time.Second
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
