package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amyusif/madpc-notify/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerRepository persists the dispatch audit trail: one message record per
// dispatch call plus one attempt record per (recipient, channel) pair. The
// coordinator treats every write as best-effort.
type LedgerRepository interface {
	CreateMessage(ctx context.Context, msg domain.Message) (string, error)
	CreatePendingAttempts(ctx context.Context, messageID string, attempts []domain.DeliveryAttempt) error
	RecordOutcome(ctx context.Context, messageID string, attempt domain.DeliveryAttempt) error
	GetMessage(ctx context.Context, id string) (*MessageRecord, error)
	GetAttempts(ctx context.Context, messageID string) ([]domain.DeliveryAttempt, error)
}

type GormLedgerRepo struct {
	db *gorm.DB
}

func NewGormLedgerRepo(db *gorm.DB) *GormLedgerRepo {
	return &GormLedgerRepo{db: db}
}

func (r *GormLedgerRepo) CreateMessage(ctx context.Context, msg domain.Message) (string, error) {
	model := MessageModel{
		ID:          uuid.NewString(),
		Subject:     msg.Subject,
		Body:        msg.Body,
		Channels:    channelsToColumn(msg.Channels),
		ScheduledAt: msg.ScheduledAt,
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return "", err
	}

	return model.ID, nil
}

func (r *GormLedgerRepo) CreatePendingAttempts(ctx context.Context, messageID string, attempts []domain.DeliveryAttempt) error {
	if len(attempts) == 0 {
		return nil
	}

	models := make([]DeliveryAttemptModel, 0, len(attempts))
	for _, attempt := range attempts {
		models = append(models, DeliveryAttemptModel{
			ID:          uuid.NewString(),
			MessageID:   messageID,
			RecipientID: attempt.RecipientID,
			Channel:     attempt.Channel.String(),
			Address:     attempt.Address,
			Status:      domain.AttemptPending.String(),
		})
	}

	return r.db.WithContext(ctx).CreateInBatches(&models, 100).Error
}

// RecordOutcome upserts the terminal state of one attempt, keyed by
// (message_id, recipient_id, channel). The stub row normally already exists;
// the upsert covers the case where stub creation failed earlier.
func (r *GormLedgerRepo) RecordOutcome(ctx context.Context, messageID string, attempt domain.DeliveryAttempt) error {
	model := DeliveryAttemptModel{
		ID:          uuid.NewString(),
		MessageID:   messageID,
		RecipientID: attempt.RecipientID,
		Channel:     attempt.Channel.String(),
		Address:     attempt.Address,
		Status:      attempt.Status.String(),
		Error:       attempt.Error,
		UpdatedAt:   time.Now().UTC(),
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "message_id"},
				{Name: "recipient_id"},
				{Name: "channel"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"status", "error", "updated_at"}),
		}).
		Create(&model).Error
}

func (r *GormLedgerRepo) GetMessage(ctx context.Context, id string) (*MessageRecord, error) {
	var model MessageModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return messageRecordFromModel(&model), nil
}

func (r *GormLedgerRepo) GetAttempts(ctx context.Context, messageID string) ([]domain.DeliveryAttempt, error) {
	var models []DeliveryAttemptModel
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("channel ASC, recipient_id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	attempts := make([]domain.DeliveryAttempt, 0, len(models))
	for i := range models {
		attempts = append(attempts, attemptModelToDomain(&models[i]))
	}

	return attempts, nil
}
