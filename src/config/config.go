package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"oi-signal-engine/src/models"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "OI"

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config from a YAML file, then applies OI_* environment overrides.
func NewConfig(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a Config from raw YAML.
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	presetDefaults(&modelConfig)
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.ApplyDefaults()

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Default returns a validated configuration with every default filled in.
func Default() *Config {
	c := &Config{MConfig: &models.MConfig{}}
	presetDefaults(c.MConfig)
	c.ApplyDefaults()
	return c
}

// -----------------------------------------------------------------------------

// ApplyEnv overlays OI_* environment variables.
func (c *Config) ApplyEnv() error {
	var env models.MEnvOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}

	if env.LogLevel != "" {
		c.LogLevel = env.LogLevel
	}
	if env.DBType != "" {
		c.Storage.DBType = env.DBType
	}
	if env.DBPath != "" {
		c.Storage.DBPath = env.DBPath
	}
	if env.DBConnectionString != "" {
		c.Storage.DBConnectionString = env.DBConnectionString
	}
	if env.RedisAddr != "" {
		c.Publishers.Redis.Addr = env.RedisAddr
	}
	if env.RedisPassword != "" {
		c.Publishers.Redis.Password = env.RedisPassword
	}
	if len(env.KafkaBrokers) > 0 {
		c.Publishers.Kafka.Brokers = env.KafkaBrokers
	}
	if env.Port != 0 {
		c.Port = env.Port
	}
	return nil
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort < 0 || c.GrpcPort > 65535 {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("unknown timezone '%s': %w", c.Timezone, err)
	}

	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database type '%s'", c.Storage.DBType)
	}

	if len(c.Exchanges) == 0 {
		return fmt.Errorf("at least one exchange window must be configured")
	}
	seen := make(map[string]bool)
	for i, w := range c.Exchanges {
		if w.Name == "" {
			return fmt.Errorf("exchange %d must have a name", i)
		}
		if seen[w.Name] {
			return fmt.Errorf("exchange '%s' configured twice", w.Name)
		}
		seen[w.Name] = true

		open, err := ParseClock(w.Open)
		if err != nil {
			return fmt.Errorf("exchange '%s' open: %w", w.Name, err)
		}
		closeAt, err := ParseClock(w.Close)
		if err != nil {
			return fmt.Errorf("exchange '%s' close: %w", w.Name, err)
		}
		if closeAt < open {
			return fmt.Errorf("exchange '%s' closes (%s) before it opens (%s)", w.Name, w.Close, w.Open)
		}
	}

	e := c.Engine
	if len(e.SupportedUnderlyings) == 0 {
		return fmt.Errorf("at least one supported underlying must be configured")
	}
	if e.MinIV <= 0 || e.StrongOIChangePct <= 0 || e.MediumOIChangePct <= 0 {
		return fmt.Errorf("signal thresholds must be greater than 0")
	}
	if e.MediumOIChangePct > e.StrongOIChangePct {
		return fmt.Errorf("medium_oi_change_pct (%.2f) cannot exceed strong_oi_change_pct (%.2f)", e.MediumOIChangePct, e.StrongOIChangePct)
	}
	if e.MinOIAbsolute < 0 {
		return fmt.Errorf("min_oi_absolute cannot be negative")
	}
	if e.AnalysisWindowSeconds <= 0 || e.ClosedMarketPollSeconds <= 0 || e.ErrorBackoffSeconds <= 0 {
		return fmt.Errorf("loop intervals must be greater than 0")
	}
	if e.DependencyTimeoutSeconds <= 0 {
		return fmt.Errorf("dependency timeout must be greater than 0")
	}
	if e.LookbackMinutes <= 0 || e.MaxSamples < 2 {
		return fmt.Errorf("lookback must be positive and max_samples at least 2")
	}
	if e.TickQueryRate < 0 {
		return fmt.Errorf("tick_query_rate cannot be negative")
	}

	if c.Publishers.Redis.Enabled && c.Publishers.Redis.Addr == "" {
		return fmt.Errorf("redis publisher enabled without an address")
	}
	if c.Publishers.Kafka.Enabled && len(c.Publishers.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka publisher enabled without brokers")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// ParseClock turns "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day '%s' (want HH:MM)", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
