package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/amyusif/madpc-notify/internal/domain"
	"github.com/amyusif/madpc-notify/internal/repository"
)

// MessageAudit is the ledger view of one past dispatch: the stored message,
// its attempts, and a report recomputed from those attempts.
type MessageAudit struct {
	Message  repository.MessageRecord
	Attempts []domain.DeliveryAttempt
	Report   domain.DispatchReport
}

// GetMessageAudit reads a dispatched message back from the ledger. Without a
// configured ledger there is nothing to read, so every id is not found.
func (s *DispatchService) GetMessageAudit(ctx context.Context, id string) (*MessageAudit, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: message id is required", domain.ErrValidation)
	}
	if s.ledger == nil {
		return nil, domain.ErrNotFound
	}

	record, err := s.ledger.GetMessage(ctx, trimmed)
	if err != nil {
		return nil, err
	}

	attempts, err := s.ledger.GetAttempts(ctx, trimmed)
	if err != nil {
		return nil, err
	}

	report := domain.BuildReport(attempts)
	report.MessageID = &record.ID

	return &MessageAudit{
		Message:  *record,
		Attempts: attempts,
		Report:   report,
	}, nil
}
