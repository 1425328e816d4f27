package infra

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Password input policy for user create/update/reset endpoints.
const (
	PasswordModePreHashed = "prehashed" // client sends "saltBase64:hashBase64"
	PasswordModePlaintext = "plaintext" // server hashes before storing
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"arena"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"arena"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"arena"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	// Connection pool sizing
	DBMaxConns        int32         `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns        int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	DBConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"5m"`

	// JWT
	JWTSecret       string `env:"JWT_SECRET"`
	JWTPlayerExpiry string `env:"JWT_PLAYER_EXPIRY" envDefault:"24h"`
	JWTAdminExpiry  string `env:"JWT_ADMIN_EXPIRY" envDefault:"2h"`

	// Server
	APIPort int `env:"API_PORT" envDefault:"8080"`

	// Password input policy
	PasswordInputMode string `env:"PASSWORD_INPUT_MODE" envDefault:"prehashed"`

	// SMTP (OTP delivery)
	SMTPHost     string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"true"`
	SMTPSender   string `env:"SMTP_SENDER" envDefault:"no-reply@arena.local"`

	// Kafka (audit event stream)
	KafkaBrokers    string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled    bool   `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaAuditTopic string `env:"KAFKA_AUDIT_TOPIC" envDefault:"arena.auth.audit"`

	// CORS
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

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

// Validate checks configuration the process must not start without. The
// missing-secret check cannot be bypassed: a token signed with an empty key
// is worthless.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set; refusing to start")
	}
	switch c.PasswordInputMode {
	case PasswordModePreHashed, PasswordModePlaintext:
	default:
		return fmt.Errorf("PASSWORD_INPUT_MODE must be %q or %q, got %q",
			PasswordModePreHashed, PasswordModePlaintext, c.PasswordInputMode)
	}
	if c.DBMaxConns < 1 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("invalid pool sizing: DB_MIN_CONNS=%d DB_MAX_CONNS=%d", c.DBMinConns, c.DBMaxConns)
	}
	if c.AllowInsecureDefaults {
		return nil
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
