package provider

import (
	"context"

	"github.com/amyusif/madpc-notify/internal/domain"
)

// ChannelProvider is the outbound delivery port for one channel. A nil error
// means the provider accepted the message for the recipient; any error is a
// per-attempt failure, never a call-level one.
type ChannelProvider interface {
	Channel() domain.Channel
	Send(ctx context.Context, msg domain.Message, rcpt domain.Recipient) (*SendResult, error)
}

// SendResult stores provider call metadata for audit and logging.
type SendResult struct {
	StatusCode int
	Body       string
	MessageID  string
}
