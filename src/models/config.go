package models

import "time"

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	LogLevel   string            `yaml:"log_level"`
	GrpcHost   string            `yaml:"grpc_host"`
	GrpcPort   int               `yaml:"grpc_port"`
	Timezone   string            `yaml:"timezone"`
	Logging    MLoggingConfig    `yaml:"logging"`
	Storage    MStorageConfig    `yaml:"storage"`
	Exchanges  []MExchangeWindow `yaml:"exchanges"`
	Calendar   MCalendarConfig   `yaml:"calendar"`
	Engine     MEngineConfig     `yaml:"engine"`
	Publishers MPublishersConfig `yaml:"publishers"`
}

type MLoggingConfig struct {
	Format     string `yaml:"format"` // console | json
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // sqlite | postgres | memory
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	Schema             string `yaml:"schema"`
	RetentionDays      int    `yaml:"retention_days"`
}

// MExchangeWindow is one exchange session, local time in the configured timezone.
type MExchangeWindow struct {
	Name  string `yaml:"name"`
	Open  string `yaml:"open"`  // HH:MM
	Close string `yaml:"close"` // HH:MM
}

type MCalendarConfig struct {
	HolidayMIC string `yaml:"holiday_mic"`
}

type MEngineConfig struct {
	SupportedUnderlyings      []string `yaml:"supported_underlyings"`
	AutoStart                 bool     `yaml:"auto_start"`
	MinIV                     float64  `yaml:"min_iv"`
	StrongOIChangePct         float64  `yaml:"strong_oi_change_pct"`
	MediumOIChangePct         float64  `yaml:"medium_oi_change_pct"`
	MinOIAbsolute             int64    `yaml:"min_oi_absolute"`
	AnalysisWindowSeconds     int      `yaml:"analysis_window_seconds"`
	ClosedMarketPollSeconds   int      `yaml:"closed_market_poll_seconds"`
	ErrorBackoffSeconds       int      `yaml:"error_backoff_seconds"`
	ConfigErrorBackoffSeconds int      `yaml:"config_error_backoff_seconds"`
	DependencyTimeoutSeconds  int      `yaml:"dependency_timeout_seconds"`
	LookbackMinutes           int      `yaml:"lookback_minutes"`
	MaxSamples                int      `yaml:"max_samples"`
	CurrentSignalsLimit       int      `yaml:"current_signals_limit"`
	AnalysisConcurrency       int      `yaml:"analysis_concurrency"`
	TickQueryRate             float64  `yaml:"tick_query_rate"`
	MaxFutures                int      `yaml:"max_futures"`
	MaxOptionsPerSide         int      `yaml:"max_options_per_side"`
	AggregateFromStore        bool     `yaml:"aggregate_from_store"`
}

type MPublishersConfig struct {
	Redis MRedisConfig `yaml:"redis"`
	Kafka MKafkaConfig `yaml:"kafka"`
}

type MRedisConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	Channel   string `yaml:"channel"`
	RecentKey string `yaml:"recent_key"`
	RecentMax int    `yaml:"recent_max"`
}

type MKafkaConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Brokers        []string `yaml:"brokers"`
	SignalsTopic   string   `yaml:"signals_topic"`
	AnalyticsTopic string   `yaml:"analytics_topic"`
}

// MEnvOverrides holds the settings that may come from the environment (prefix OI_).
type MEnvOverrides struct {
	LogLevel           string   `envconfig:"LOG_LEVEL"`
	DBType             string   `envconfig:"DB_TYPE"`
	DBPath             string   `envconfig:"DB_PATH"`
	DBConnectionString string   `envconfig:"DB_CONNECTION_STRING"`
	RedisAddr          string   `envconfig:"REDIS_ADDR"`
	RedisPassword      string   `envconfig:"REDIS_PASSWORD"`
	KafkaBrokers       []string `envconfig:"KAFKA_BROKERS"`
	Port               int      `envconfig:"PORT"`
}

// -----------------------------------------------------------------------------

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (e MEngineConfig) AnalysisInterval() time.Duration { return seconds(e.AnalysisWindowSeconds) }

func (e MEngineConfig) ClosedMarketPoll() time.Duration { return seconds(e.ClosedMarketPollSeconds) }

func (e MEngineConfig) ErrorBackoff() time.Duration { return seconds(e.ErrorBackoffSeconds) }

func (e MEngineConfig) ConfigErrorBackoff() time.Duration {
	return seconds(e.ConfigErrorBackoffSeconds)
}

func (e MEngineConfig) DependencyTimeout() time.Duration {
	return seconds(e.DependencyTimeoutSeconds)
}

func (e MEngineConfig) Lookback() time.Duration {
	return time.Duration(e.LookbackMinutes) * time.Minute
}
