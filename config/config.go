package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds all configuration for the connector service
type Config struct {
	Database    DatabaseConfig
	Telegram    TelegramConfig
	Session     SessionConfig
	Listener    ListenerConfig
	Kafka       KafkaConfig
	S3          S3Config
	Logging     LoggingConfig
	Service     ServiceConfig
	Diagnostics DiagnosticsConfig
	Transformer TransformerConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

// TelegramConfig holds MTProto transport configuration
type TelegramConfig struct {
	// TestDC switches clients to Telegram test servers.
	TestDC bool
	// TestCode is returned with challenges when TestDC is enabled.
	TestCode       string
	ConnectTimeout time.Duration
	RateLimit      int
	DeviceModel    string
}

// SessionConfig holds session store configuration
type SessionConfig struct {
	Backend string // postgres, file or memory
	Dir     string
}

// ListenerConfig holds realtime listener configuration
type ListenerConfig struct {
	PollInterval  time.Duration
	BackfillLimit int
	MaxMessages   int
	// AutoRepublish sends the rewritten text of fresh messages to the pair's destination.
	AutoRepublish bool
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled                  bool
	Brokers                  []string
	GroupID                  string
	TopicProcessed           string
	TopicChannelPairsChanged string
}

// S3Config holds S3/MinIO configuration for the message archive
type S3Config struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// ServiceConfig holds service configuration
type ServiceConfig struct {
	Name          string
	Port          string
	AllowedOrigin string
	JWTSecret     string
}

// DiagnosticsConfig holds connectivity diagnostics configuration
type DiagnosticsConfig struct {
	ProtocolHostURL  string
	ConnectorURL     string
	Origin           string
	HostTimeout      time.Duration
	DatastoreTimeout time.Duration
	DeployTimeout    time.Duration
	CORSTimeout      time.Duration
}

// TransformerConfig holds message transformer configuration
type TransformerConfig struct {
	CompetitorsFile string
}

// Result is fx.Out struct for providing config dependencies
type Result struct {
	fx.Out

	Config            *Config
	DatabaseConfig    *DatabaseConfig
	TelegramConfig    *TelegramConfig
	SessionConfig     *SessionConfig
	ListenerConfig    *ListenerConfig
	KafkaConfig       *KafkaConfig
	S3Config          *S3Config
	LoggingConfig     *LoggingConfig
	ServiceConfig     *ServiceConfig
	DiagnosticsConfig *DiagnosticsConfig
	TransformerConfig *TransformerConfig
}

// Out returns fx-compatible config result
func Out() (Result, error) {
	cfg, err := Load()
	if err != nil {
		return Result{}, err
	}

	return Result{
		Config:            cfg,
		DatabaseConfig:    &cfg.Database,
		TelegramConfig:    &cfg.Telegram,
		SessionConfig:     &cfg.Session,
		ListenerConfig:    &cfg.Listener,
		KafkaConfig:       &cfg.Kafka,
		S3Config:          &cfg.S3,
		LoggingConfig:     &cfg.Logging,
		ServiceConfig:     &cfg.Service,
		DiagnosticsConfig: &cfg.Diagnostics,
		TransformerConfig: &cfg.Transformer,
	}, nil
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	port := getEnv("SERVICE_PORT", "8085")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:           getEnv("DATABASE_HOST", "localhost"),
			Port:           getEnv("DATABASE_PORT", "5432"),
			User:           getEnv("DATABASE_USER", "connector_user"),
			Password:       getEnv("DATABASE_PASSWORD", "connector_pass"),
			DBName:         getEnv("DATABASE_NAME", "connector_db"),
			SSLMode:        getEnv("DATABASE_SSLMODE", "disable"),
			MigrationsPath: getEnv("DATABASE_MIGRATIONS_PATH", "file://migrations"),
		},
		Telegram: TelegramConfig{
			TestDC:         getEnvBool("TELEGRAM_TEST_DC", false),
			TestCode:       getEnv("TELEGRAM_TEST_CODE", ""),
			ConnectTimeout: getEnvDuration("TELEGRAM_CONNECT_TIMEOUT", 60*time.Second),
			RateLimit:      getEnvInt("TELEGRAM_RATE_LIMIT", 10),
			DeviceModel:    getEnv("TELEGRAM_DEVICE_MODEL", "connector-service"),
		},
		Session: SessionConfig{
			Backend: getEnv("SESSION_BACKEND", "postgres"),
			Dir:     getEnv("SESSION_DIR", "./sessions"),
		},
		Listener: ListenerConfig{
			PollInterval:  getEnvDuration("LISTENER_POLL_INTERVAL", 30*time.Second),
			BackfillLimit: getEnvInt("LISTENER_BACKFILL_LIMIT", 20),
			MaxMessages:   getEnvInt("LISTENER_MAX_MESSAGES", 100),
			AutoRepublish: getEnvBool("LISTENER_AUTO_REPUBLISH", false),
		},
		Kafka: KafkaConfig{
			Enabled:                  getEnvBool("KAFKA_ENABLED", false),
			Brokers:                  strings.Split(getEnv("KAFKA_BROKERS", "localhost:9093"), ","),
			GroupID:                  getEnv("KAFKA_GROUP_ID", "connector-service-group"),
			TopicProcessed:           getEnv("KAFKA_TOPIC_MESSAGES_PROCESSED", "messages.processed"),
			TopicChannelPairsChanged: getEnv("KAFKA_TOPIC_CHANNEL_PAIRS_CHANGED", "channel_pairs.changed"),
		},
		S3: S3Config{
			Enabled:   getEnvBool("S3_ENABLED", false),
			Endpoint:  getEnv("S3_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Bucket:    getEnv("S3_BUCKET", "connector-messages"),
			UseSSL:    getEnvBool("S3_USE_SSL", false),
			PublicURL: getEnv("S3_PUBLIC_URL", "http://localhost:9000"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Service: ServiceConfig{
			Name:          getEnv("SERVICE_NAME", "connector-service"),
			Port:          port,
			AllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "*"),
			JWTSecret:     getEnv("AUTH_JWT_SECRET", ""),
		},
		Diagnostics: DiagnosticsConfig{
			ProtocolHostURL:  getEnv("DIAGNOSTICS_PROTOCOL_HOST_URL", "https://telegram.org"),
			ConnectorURL:     getEnv("DIAGNOSTICS_CONNECTOR_URL", "http://localhost:"+port+"/api/v1/telegram"),
			Origin:           getEnv("DIAGNOSTICS_ORIGIN", "http://localhost:3000"),
			HostTimeout:      getEnvDuration("DIAGNOSTICS_HOST_TIMEOUT", 5*time.Second),
			DatastoreTimeout: getEnvDuration("DIAGNOSTICS_DATASTORE_TIMEOUT", 5*time.Second),
			DeployTimeout:    getEnvDuration("DIAGNOSTICS_DEPLOY_TIMEOUT", 15*time.Second),
			CORSTimeout:      getEnvDuration("DIAGNOSTICS_CORS_TIMEOUT", 10*time.Second),
		},
		Transformer: TransformerConfig{
			CompetitorsFile: getEnv("COMPETITORS_FILE", "./competitors.yaml"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case "postgres", "file", "memory":
	default:
		return fmt.Errorf("SESSION_BACKEND must be one of postgres, file, memory")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DATABASE_HOST is required")
	}

	if c.Database.DBName == "" {
		return fmt.Errorf("DATABASE_NAME is required")
	}

	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Brokers[0] == "") {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}

	if c.Listener.PollInterval <= 0 {
		return fmt.Errorf("LISTENER_POLL_INTERVAL must be positive")
	}

	if c.Listener.MaxMessages <= 0 {
		return fmt.Errorf("LISTENER_MAX_MESSAGES must be positive")
	}

	if c.Telegram.RateLimit <= 0 {
		return fmt.Errorf("TELEGRAM_RATE_LIMIT must be positive")
	}

	return nil
}

// GetDSN returns database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvDuration gets environment variable as duration with default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

// getEnvInt gets environment variable as int with default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvBool gets environment variable as bool with default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
