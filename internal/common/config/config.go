// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	HTTP          HTTPConfig         `mapstructure:"http"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Integrations  IntegrationConfig  `mapstructure:"integrations"`
	Triggers      TriggersConfig     `mapstructure:"triggers"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NotificationConfig holds the dispatcher and channel adapter settings.
type NotificationConfig struct {
	// AdapterTimeout bounds a single adapter call, in milliseconds. One slow
	// transport must not stall a bulk batch.
	AdapterTimeout int `mapstructure:"adapter_timeout"`

	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		Provider  string `mapstructure:"provider"` // "ses" or "smtp"
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`

	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
}

// IntegrationConfig holds settings for the transport providers.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`

	SMTP struct {
		Host        string `mapstructure:"host"`
		Port        int    `mapstructure:"port"`
		Username    string `mapstructure:"username"`
		Password    string `mapstructure:"password"`
		UseTLS      bool   `mapstructure:"use_tls"`
		DefaultFrom string `mapstructure:"default_from"`
	} `mapstructure:"smtp"`
}

// TriggersConfig holds settings for the trigger evaluator.
type TriggersConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	DailySchedule  string `mapstructure:"daily_schedule"`  // cron spec
	WeeklySchedule string `mapstructure:"weekly_schedule"` // cron spec
	DedupeTTLHours int    `mapstructure:"dedupe_ttl_hours"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
