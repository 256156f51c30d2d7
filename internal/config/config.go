package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the fraud detection service
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Cloud     CloudConfig     `mapstructure:"cloud"`
	Inference InferenceConfig `mapstructure:"inference"`
	ModelOps  ModelOpsConfig  `mapstructure:"modelops"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Security  SecurityConfig  `mapstructure:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	MetricsPort     int           `mapstructure:"metrics_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL-compatible store configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// Enabled reports whether database credentials are present. Absent
// credentials disable persistence rather than failing startup.
func (c DatabaseConfig) Enabled() bool {
	return c.Host != "" && c.User != ""
}

// RedisConfig holds the optional user-history cache configuration
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	HistoryTTL   time.Duration `mapstructure:"history_ttl"`
}

// Enabled reports whether a history cache is configured.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// KafkaConfig holds the optional alert event stream configuration
type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	AlertsTopic string   `mapstructure:"alerts_topic"`
}

// Enabled reports whether alert publishing is configured.
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// CloudConfig holds shared cloud API credentials used for request signing
type CloudConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ProjectID       string `mapstructure:"project_id"`
}

// Enabled reports whether cloud credentials are present. Absence forces
// the heuristic fallback everywhere.
func (c CloudConfig) Enabled() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// InferenceConfig holds the AI scoring endpoint configuration
type InferenceConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	ModelID        string        `mapstructure:"model_id"`
	Service        string        `mapstructure:"service"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	Temperature    float64       `mapstructure:"temperature"`
	TopP           float64       `mapstructure:"top_p"`
}

// ModelOpsConfig holds the training/deployment platform configuration
type ModelOpsConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	Service        string        `mapstructure:"service"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ScoringConfig holds heuristic scoring configuration
type ScoringConfig struct {
	RiskyMerchants      []string `mapstructure:"risky_merchants"`
	SuspiciousCountries []string `mapstructure:"suspicious_countries"`
	OffHoursStart       int      `mapstructure:"off_hours_start"`
	OffHoursEnd         int      `mapstructure:"off_hours_end"`
	SimulatedFraudFloor int      `mapstructure:"simulated_fraud_floor"`
}

// SimulatorConfig holds the initial simulator settings
type SimulatorConfig struct {
	TransactionsPerMinute int     `mapstructure:"transactions_per_minute"`
	FraudRate             float64 `mapstructure:"fraud_rate"`
	AutoStart             bool    `mapstructure:"auto_start"`
	ScenarioHighAmount    bool    `mapstructure:"scenario_high_amount"`
	ScenarioRiskyMerchant bool    `mapstructure:"scenario_risky_merchant"`
	ScenarioUnusualTime   bool    `mapstructure:"scenario_unusual_time"`
	ScenarioVelocitySpike bool    `mapstructure:"scenario_velocity_spike"`
	ScenarioLocation      bool    `mapstructure:"scenario_location_anomaly"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load loads configuration from environment and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("FRAUD_SERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/fraud-service")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, use defaults + env
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8086)
	v.SetDefault("server.metrics_port", 9096)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults (empty host disables persistence)
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "fraud_guardian")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")

	// Redis defaults (empty host disables the history cache)
	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "1s")
	v.SetDefault("redis.write_timeout", "1s")
	v.SetDefault("redis.history_ttl", "24h")

	// Kafka defaults (no brokers disables alert publishing)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.alerts_topic", "fraud.alerts")

	// Cloud credential defaults
	v.SetDefault("cloud.region", "ap-southeast-1")
	v.SetDefault("cloud.access_key_id", "")
	v.SetDefault("cloud.secret_access_key", "")
	v.SetDefault("cloud.project_id", "")

	// Inference defaults
	v.SetDefault("inference.endpoint", "")
	v.SetDefault("inference.model_id", "fraud-detection-v1")
	v.SetDefault("inference.service", "pangu")
	v.SetDefault("inference.request_timeout", "5s")
	v.SetDefault("inference.max_tokens", 2000)
	v.SetDefault("inference.temperature", 0.3)
	v.SetDefault("inference.top_p", 0.9)

	// ModelOps defaults
	v.SetDefault("modelops.endpoint", "")
	v.SetDefault("modelops.service", "modelarts")
	v.SetDefault("modelops.request_timeout", "10s")

	// Heuristic scoring defaults
	v.SetDefault("scoring.risky_merchants", []string{
		"crypto-exchange", "online-gaming", "gift-card", "wire-transfer",
	})
	v.SetDefault("scoring.suspicious_countries", []string{
		"Nigeria", "Russia", "Tor Network",
	})
	v.SetDefault("scoring.off_hours_start", 2)
	v.SetDefault("scoring.off_hours_end", 6)
	v.SetDefault("scoring.simulated_fraud_floor", 70)

	// Simulator defaults
	v.SetDefault("simulator.transactions_per_minute", 30)
	v.SetDefault("simulator.fraud_rate", 0.08)
	v.SetDefault("simulator.auto_start", false)
	v.SetDefault("simulator.scenario_high_amount", true)
	v.SetDefault("simulator.scenario_risky_merchant", true)
	v.SetDefault("simulator.scenario_unusual_time", true)
	v.SetDefault("simulator.scenario_velocity_spike", true)
	v.SetDefault("simulator.scenario_location_anomaly", true)

	// Telemetry defaults
	v.SetDefault("telemetry.service_name", "fraud-service")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.debug", false)

	// Security defaults
	v.SetDefault("security.allowed_origins", []string{"*"})
}
