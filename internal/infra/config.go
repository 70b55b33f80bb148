package infra

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL   string `env:"DATABASE_URL"`
	PGHost        string `env:"PGHOST" envDefault:"localhost"`
	PGPort        int    `env:"PGPORT" envDefault:"5432"`
	PGUser        string `env:"PGUSER" envDefault:"futsal"`
	PGPassword    string `env:"PGPASSWORD" envDefault:"futsal"`
	PGDatabase    string `env:"PGDATABASE" envDefault:"futsal"`
	PGMaxConns    int32  `env:"PG_MAX_CONNS" envDefault:"20"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`

	// JWT
	JWTSecret      string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTUserExpiry  time.Duration `env:"JWT_USER_EXPIRY" envDefault:"720h"`
	JWTStaffExpiry time.Duration `env:"JWT_STAFF_EXPIRY" envDefault:"12h"`

	// Server
	APIPort         int           `env:"API_PORT" envDefault:"3100"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// Kafka
	KafkaBrokers       []string      `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	KafkaEnabled       bool          `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaWriteTimeout  time.Duration `env:"KAFKA_WRITE_TIMEOUT" envDefault:"10s"`
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Public rate limiting (per client IP)
	PublicRateLimit float64 `env:"PUBLIC_RATE_LIMIT" envDefault:"20"`
	PublicRateBurst int     `env:"PUBLIC_RATE_BURST" envDefault:"40"`

	// Push delivery (SNS)
	PushEnabled     bool          `env:"PUSH_ENABLED" envDefault:"false"`
	AWSRegion       string        `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpointURL  string        `env:"AWS_ENDPOINT_URL"`
	AWSAccessKeyID  string        `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey    string        `env:"AWS_SECRET_ACCESS_KEY"`
	SNSPlatformARN  string        `env:"SNS_PLATFORM_APPLICATION_ARN"`
	PushTimeout     time.Duration `env:"PUSH_TIMEOUT" envDefault:"10s"`
	PushConcurrency int           `env:"PUSH_CONCURRENCY" envDefault:"16"`

	// Scheduler
	ReminderInterval    time.Duration `env:"REMINDER_INTERVAL" envDefault:"1m"`
	ReminderLead        time.Duration `env:"REMINDER_LEAD" envDefault:"15m"`
	LiveRefreshInterval time.Duration `env:"LIVE_REFRESH_INTERVAL" envDefault:"2m"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for insecure or incomplete configuration.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass the secret checks (local dev only).
func (c *Config) Validate() error {
	if c.PushEnabled && c.SNSPlatformARN == "" {
		return fmt.Errorf("PUSH_ENABLED requires SNS_PLATFORM_APPLICATION_ARN")
	}
	if c.PushTimeout <= 0 || c.PushConcurrency <= 0 {
		return fmt.Errorf("PUSH_TIMEOUT and PUSH_CONCURRENCY must be positive")
	}
	if c.AllowInsecureDefaults {
		return nil
	}
	if c.JWTSecret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET is too short (%d chars); minimum 32 characters required", len(c.JWTSecret))
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}
