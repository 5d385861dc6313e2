package repository

import (
	"strings"
	"time"

	"github.com/amyusif/madpc-notify/internal/domain"
)

// MessageModel is the persistence model for the messages table, one row per
// dispatch call when the ledger is enabled.
type MessageModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Subject     string `gorm:"type:varchar(255);not null"`
	Body        string `gorm:"type:text;not null"`
	Channels    string `gorm:"type:varchar(32);not null"`
	ScheduledAt *time.Time
	CreatedAt   time.Time
}

func (MessageModel) TableName() string {
	return "messages"
}

// DeliveryAttemptModel is the persistence model for delivery_attempts. Rows
// are keyed uniquely by (message_id, recipient_id, channel), so concurrent
// outcome writes for different attempts never contend.
type DeliveryAttemptModel struct {
	ID          string  `gorm:"type:uuid;primaryKey"`
	MessageID   string  `gorm:"type:uuid;not null;uniqueIndex:idx_attempts_message_recipient_channel,priority:1"`
	RecipientID string  `gorm:"type:varchar(64);not null;uniqueIndex:idx_attempts_message_recipient_channel,priority:2"`
	Channel     string  `gorm:"type:varchar(10);not null;uniqueIndex:idx_attempts_message_recipient_channel,priority:3"`
	Address     string  `gorm:"type:varchar(255);not null"`
	Status      string  `gorm:"type:varchar(16);not null"`
	Error       *string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (DeliveryAttemptModel) TableName() string {
	return "delivery_attempts"
}

// MessageRecord is the ledger read model returned to callers.
type MessageRecord struct {
	ID          string
	Subject     string
	Body        string
	Channels    []domain.Channel
	ScheduledAt *time.Time
	CreatedAt   time.Time
}

func channelsToColumn(channels []domain.Channel) string {
	names := make([]string, 0, len(channels))
	for _, ch := range channels {
		names = append(names, ch.String())
	}
	return strings.Join(names, ",")
}

func channelsFromColumn(value string) []domain.Channel {
	parts := strings.Split(value, ",")
	channels := make([]domain.Channel, 0, len(parts))
	for _, part := range parts {
		ch, err := domain.ParseChannelFromString(part)
		if err != nil {
			continue
		}
		channels = append(channels, ch)
	}
	return channels
}

func messageRecordFromModel(m *MessageModel) *MessageRecord {
	if m == nil {
		return nil
	}

	return &MessageRecord{
		ID:          m.ID,
		Subject:     m.Subject,
		Body:        m.Body,
		Channels:    channelsFromColumn(m.Channels),
		ScheduledAt: m.ScheduledAt,
		CreatedAt:   m.CreatedAt,
	}
}

func attemptModelToDomain(m *DeliveryAttemptModel) domain.DeliveryAttempt {
	status, err := domain.ParseAttemptStatusFromString(m.Status)
	if err != nil {
		status = domain.AttemptFailed
	}

	return domain.DeliveryAttempt{
		RecipientID: m.RecipientID,
		Channel:     domain.Channel(m.Channel),
		Address:     m.Address,
		Status:      status,
		Error:       m.Error,
	}
}
