package provider

import (
	"fmt"
	"strings"

	"github.com/amyusif/madpc-notify/internal/config"
	"go.uber.org/zap"
)

// NewSMSProvider selects the SMS vendor adapter once per deployment from
// configuration. Credential completeness is already enforced by config.Load,
// so a misconfigured vendor never reaches a send attempt.
func NewSMSProvider(cfg *config.Config, logger *zap.Logger) (ChannelProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	switch cfg.SMSProvider {
	case config.SMSVendorNone:
		return NewSimulatedSMSProvider(logger), nil
	case config.SMSVendorArkesel:
		return NewArkeselSMSProvider(cfg.ArkeselAPIKey, cfg.ArkeselSenderID)
	case config.SMSVendorMNotify:
		return NewMNotifySMSProvider(cfg.MNotifyAPIKey, cfg.MNotifySenderID)
	default:
		return nil, fmt.Errorf("unknown sms vendor %q", cfg.SMSProvider)
	}
}

// vendorPhoneNumber strips the leading plus from an already normalized
// international number; both supported gateways want digits only.
func vendorPhoneNumber(phone string) string {
	return strings.TrimPrefix(strings.TrimSpace(phone), "+")
}

// smsText is the text actually handed to an SMS gateway. Subject and body
// are joined so a recipient without email still sees the headline; length
// and encoding limits are the vendor's to enforce and report.
func smsText(subject, body string) string {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	if subject == "" {
		return body
	}
	return subject + ": " + body
}
