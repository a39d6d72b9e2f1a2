package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/mufaro-dev/wabank/core/database"
	"github.com/mufaro-dev/wabank/core/logger"
)

// ServerConfig holds HTTP ingress settings.
type ServerConfig struct {
	Listen string `yaml:"listen" envconfig:"SERVER_LISTEN"`
	// PublicURL is the externally reachable base URL used to build the
	// payment gateway result URL, e.g. https://bank.example.com
	PublicURL string `yaml:"public_url" envconfig:"SYSTEM_URL"`
}

// PaynowConfig holds payment gateway credentials and endpoints.
type PaynowConfig struct {
	IntegrationID  string `yaml:"integration_id" envconfig:"PAYNOW_ID"`
	IntegrationKey string `yaml:"integration_key" envconfig:"PAYNOW_KEY"`
	InitiateURL    string `yaml:"initiate_url" envconfig:"PAYNOW_INITIATE_URL"`
	MerchantEmail  string `yaml:"merchant_email" envconfig:"PAYNOW_MERCHANT_EMAIL"`
	// FakePaid forces callback status to paid; sandbox integrations never
	// deliver a real "paid" status.
	FakePaid bool `yaml:"fake_paid" envconfig:"PAYNOW_FAKE_PAID"`
}

// WhatsAppConfig holds Twilio WhatsApp sender credentials.
type WhatsAppConfig struct {
	AccountSID string `yaml:"account_sid" envconfig:"TWILIO_ID"`
	AuthToken  string `yaml:"auth_token" envconfig:"TWILIO_KEY"`
	// SenderID is the WhatsApp-enabled number messages are sent from,
	// in E.164 form with a leading plus.
	SenderID string `yaml:"sender_id" envconfig:"WA_ID"`
}

const (
	// SessionBackendMemory keeps sessions in a process-local map.
	SessionBackendMemory = "memory"
	// SessionBackendRedis keeps sessions in Redis.
	SessionBackendRedis = "redis"
)

// SessionConfig selects and configures the session store backend.
type SessionConfig struct {
	Backend       string        `yaml:"backend" envconfig:"SESSION_BACKEND"`
	TTL           time.Duration `yaml:"ttl" envconfig:"SESSION_TTL"`
	RedisAddr     string        `yaml:"redis_addr" envconfig:"SESSION_REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" envconfig:"SESSION_REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" envconfig:"SESSION_REDIS_DB"`
}

// DialogConfig carries conversation texts that vary per deployment.
type DialogConfig struct {
	SupportContact string `yaml:"support_contact" envconfig:"SUPPORT_CONTACT"`
}

// Config aggregates the application configuration.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Database database.Config `yaml:"database"`
	Logging  logger.Config   `yaml:"logging"`
	Paynow   PaynowConfig    `yaml:"paynow"`
	WhatsApp WhatsAppConfig  `yaml:"whatsapp"`
	Session  SessionConfig   `yaml:"session"`
	Dialog   DialogConfig    `yaml:"dialog"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Server.Listen) == "" {
		cfg.Server.Listen = ":8080"
	}
	if strings.TrimSpace(cfg.Server.PublicURL) == "" {
		return fmt.Errorf("server.public_url is required")
	}
	cfg.Server.PublicURL = strings.TrimRight(cfg.Server.PublicURL, "/")

	if cfg.Paynow.IntegrationID == "" || cfg.Paynow.IntegrationKey == "" {
		return fmt.Errorf("paynow.integration_id and paynow.integration_key are required")
	}
	if strings.TrimSpace(cfg.Paynow.InitiateURL) == "" {
		cfg.Paynow.InitiateURL = "https://www.paynow.co.zw/interface/remotetransaction"
	}
	if strings.TrimSpace(cfg.Paynow.MerchantEmail) == "" {
		cfg.Paynow.MerchantEmail = "payments@example.com"
	}

	if cfg.WhatsApp.AccountSID == "" || cfg.WhatsApp.AuthToken == "" {
		return fmt.Errorf("whatsapp.account_sid and whatsapp.auth_token are required")
	}
	if strings.TrimSpace(cfg.WhatsApp.SenderID) == "" {
		return fmt.Errorf("whatsapp.sender_id is required")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	if backend == "" {
		backend = SessionBackendMemory
	}
	switch backend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if strings.TrimSpace(cfg.Session.RedisAddr) == "" {
			return fmt.Errorf("session.redis_addr is required when session.backend is 'redis'")
		}
	default:
		return fmt.Errorf("invalid session.backend %q; allowed: memory, redis", cfg.Session.Backend)
	}
	cfg.Session.Backend = backend
	if cfg.Session.TTL <= 0 {
		cfg.Session.TTL = 30 * time.Minute
	}

	if strings.TrimSpace(cfg.Dialog.SupportContact) == "" {
		cfg.Dialog.SupportContact = "support@example.com"
	}
	return nil
}
