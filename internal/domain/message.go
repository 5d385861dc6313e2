package domain

import (
	"fmt"
	"strings"
	"time"
)

// Channel represents the delivery channel.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS:
		return true
	}
	return false
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// ParseChannels parses and deduplicates a list of channel names.
func ParseChannels(values []string) ([]Channel, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: at least one channel is required", ErrValidation)
	}

	seen := make(map[Channel]bool, len(values))
	channels := make([]Channel, 0, len(values))
	for _, value := range values {
		ch, err := ParseChannelFromString(value)
		if err != nil {
			return nil, err
		}
		if seen[ch] {
			continue
		}
		seen[ch] = true
		channels = append(channels, ch)
	}

	return channels, nil
}

// Message is one logical unit of outbound communication. It is constructed
// once per dispatch call and never mutated after dispatch begins.
type Message struct {
	Subject     string
	Body        string
	Channels    []Channel
	ScheduledAt *time.Time
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrValidation)
	}
	if strings.TrimSpace(m.Body) == "" {
		return fmt.Errorf("%w: message body is required", ErrValidation)
	}
	if len(m.Channels) == 0 {
		return fmt.Errorf("%w: at least one channel is required", ErrValidation)
	}
	for _, ch := range m.Channels {
		if !ch.IsValid() {
			return fmt.Errorf("%w: invalid channel %q", ErrValidation, ch)
		}
	}
	return nil
}

// HasChannel reports whether the message requests delivery over ch.
func (m Message) HasChannel(ch Channel) bool {
	for _, c := range m.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// Recipient is a resolved contact target. Address fields are already trimmed
// and, for Phone, normalized to international form.
type Recipient struct {
	ID    string
	Name  string
	Email string
	Phone string
}

// EligibleFor reports whether the recipient has a usable address for ch.
func (r Recipient) EligibleFor(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return r.Email != ""
	case ChannelSMS:
		return r.Phone != ""
	}
	return false
}
