package config

import (
	"fmt"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/amyusif/madpc-notify/internal/domain"
)

// SMS vendor keys accepted by SMS_PROVIDER. "none" selects the simulated
// vendor, which never touches the network.
const (
	SMSVendorNone    = "none"
	SMSVendorArkesel = "arkesel"
	SMSVendorMNotify = "mnotify"
)

type Config struct {
	DatabaseDSN     string `env:"DATABASE_DSN,required=true"`
	RedisURL        string `env:"REDIS_URL,required=true"`
	APIPort         int    `env:"API_PORT,default=8080"`
	LogLevel        string `env:"LOG_LEVEL,default=info"`
	LedgerEnabled   bool   `env:"LEDGER_ENABLED,default=true"`
	RateLimitPerSec int    `env:"RATE_LIMIT_PER_SEC,default=0"`

	EmailFrom   string `env:"EMAIL_FROM"`
	EmailAPIKey string `env:"EMAIL_API_KEY"`
	EmailAPIURL string `env:"EMAIL_API_URL,default=https://api.resend.com/emails"`

	SMSProvider     string `env:"SMS_PROVIDER,default=none"`
	ArkeselAPIKey   string `env:"ARKESEL_API_KEY"`
	ArkeselSenderID string `env:"ARKESEL_SENDER_ID"`
	MNotifyAPIKey   string `env:"MNOTIFY_API_KEY"`
	MNotifySenderID string `env:"MNOTIFY_SENDER_ID"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.SMSProvider = strings.ToLower(strings.TrimSpace(cfg.SMSProvider))
	if err := cfg.validateSMSVendor(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateSMSVendor enforces that a configured (non-default) vendor has its
// credentials present. Missing credentials are fatal here at startup, never
// a per-recipient failure.
func (c *Config) validateSMSVendor() error {
	switch c.SMSProvider {
	case SMSVendorNone:
		return nil
	case SMSVendorArkesel:
		if strings.TrimSpace(c.ArkeselAPIKey) == "" || strings.TrimSpace(c.ArkeselSenderID) == "" {
			return fmt.Errorf("%w: sms vendor %q requires ARKESEL_API_KEY and ARKESEL_SENDER_ID", domain.ErrProviderMisconfigured, c.SMSProvider)
		}
		return nil
	case SMSVendorMNotify:
		if strings.TrimSpace(c.MNotifyAPIKey) == "" || strings.TrimSpace(c.MNotifySenderID) == "" {
			return fmt.Errorf("%w: sms vendor %q requires MNOTIFY_API_KEY and MNOTIFY_SENDER_ID", domain.ErrProviderMisconfigured, c.SMSProvider)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown sms vendor %q", domain.ErrProviderMisconfigured, c.SMSProvider)
	}
}

// EmailConfigured reports whether the transactional email provider has both
// a from-address and an API credential.
func (c *Config) EmailConfigured() bool {
	return strings.TrimSpace(c.EmailFrom) != "" && strings.TrimSpace(c.EmailAPIKey) != ""
}
