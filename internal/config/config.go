package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"frs/internal/mail"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string `envconfig:"SERVER_PORT" default:"8080"`
	MySQLDSN    string `envconfig:"MYSQL_DSN" default:"user:password@tcp(localhost:3306)/frs?charset=utf8mb4&parseTime=True&loc=Local"`
	RedisAddr   string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB     int    `envconfig:"REDIS_DB" default:"0"`
	RedisPass   string `envconfig:"REDIS_PASSWORD"`
	JWTSecret   string `envconfig:"JWT_SECRET" default:"change-me"`
	SwaggerHost string `envconfig:"SWAGGER_HOST"`
	ResetDB     bool   `envconfig:"RESET_DB" default:"false"`

	// BaseURL is the public address used to build confirmation links.
	BaseURL string `envconfig:"BASE_URL" default:"http://localhost:8080"`

	Mail   MailConfig
	Engine EngineConfig
}

// MailConfig configures how confirmation emails leave the system.
type MailConfig struct {
	// Transport is one of "log", "smtp" or "queue".
	Transport string `envconfig:"MAIL_TRANSPORT" default:"log"`
	From      string `envconfig:"MAIL_FROM" default:"no-reply@frs.local"`
	SMTPHost  string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort  int    `envconfig:"SMTP_PORT" default:"1025"`
	SMTPUser  string `envconfig:"SMTP_USERNAME"`
	SMTPPass  string `envconfig:"SMTP_PASSWORD"`
	// SMTPTimeout bounds one whole relay conversation.
	SMTPTimeout time.Duration `envconfig:"SMTP_TIMEOUT" default:"15s"`
	Queue       string        `envconfig:"MAIL_QUEUE" default:"default"`
}

// SMTP returns the relay settings for mail.NewSMTPSender.
func (m MailConfig) SMTP() mail.SMTPConfig {
	return mail.SMTPConfig{
		Host:     m.SMTPHost,
		Port:     m.SMTPPort,
		Username: m.SMTPUser,
		Password: m.SMTPPass,
		From:     m.From,
		Timeout:  m.SMTPTimeout,
	}
}

// EngineConfig points at the external recognition engine.
type EngineConfig struct {
	URL     string        `envconfig:"FRS_ENGINE_URL" default:"http://localhost:3000"`
	Timeout time.Duration `envconfig:"FRS_ENGINE_TIMEOUT" default:"30s"`
}

// Load builds Config from environment with sensible defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}
