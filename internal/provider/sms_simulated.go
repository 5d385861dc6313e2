package provider

import (
	"context"
	"fmt"

	"github.com/amyusif/madpc-notify/internal/domain"
	"go.uber.org/zap"
)

// SimulatedSMSProvider is the default SMS adapter when no vendor is
// configured. It logs the intent and reports the attempt as accepted without
// contacting any network, which keeps deployments without SMS credentials
// usable. The log entry makes simulated sends distinguishable from real ones.
type SimulatedSMSProvider struct {
	logger *zap.Logger
}

func NewSimulatedSMSProvider(logger *zap.Logger) *SimulatedSMSProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulatedSMSProvider{logger: logger}
}

func (p *SimulatedSMSProvider) Channel() domain.Channel { return domain.ChannelSMS }

func (p *SimulatedSMSProvider) Send(_ context.Context, msg domain.Message, rcpt domain.Recipient) (*SendResult, error) {
	if rcpt.Phone == "" {
		return nil, fmt.Errorf("recipient %s has no phone number", rcpt.ID)
	}

	p.logger.Info("simulated sms send (no vendor configured)",
		zap.String("recipientId", rcpt.ID),
		zap.String("phone", rcpt.Phone),
		zap.String("subject", msg.Subject),
	)

	return &SendResult{Body: "simulated"}, nil
}
