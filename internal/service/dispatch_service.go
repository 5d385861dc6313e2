package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amyusif/madpc-notify/internal/directory"
	"github.com/amyusif/madpc-notify/internal/domain"
	"github.com/amyusif/madpc-notify/internal/observability"
	"github.com/amyusif/madpc-notify/internal/provider"
	"github.com/amyusif/madpc-notify/internal/ratelimit"
	"github.com/amyusif/madpc-notify/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RecipientResolver is the resolution port consumed by the coordinator.
type RecipientResolver interface {
	Resolve(ctx context.Context, ids []string, channels []domain.Channel) (*directory.Resolution, error)
}

// DispatchRequest is one dispatch call as seen by the coordinator.
type DispatchRequest struct {
	PersonnelIDs []string
	Subject      string
	Body         string
	Channels     []domain.Channel
	ScheduledAt  *time.Time
}

// DispatchService fans one message out across channels and recipients,
// collects per-attempt outcomes, and aggregates them into a report. Ledger
// and rate limiter are optional; a nil ledger just means no audit trail.
type DispatchService struct {
	resolver  RecipientResolver
	providers map[domain.Channel]provider.ChannelProvider
	ledger    repository.LedgerRepository
	limiter   ratelimit.RateLimiter
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewDispatchService(
	resolver RecipientResolver,
	providers []provider.ChannelProvider,
	ledger repository.LedgerRepository,
	limiter ratelimit.RateLimiter,
	logger *zap.Logger,
) (*DispatchService, error) {
	if resolver == nil {
		return nil, fmt.Errorf("recipient resolver is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	byChannel := make(map[domain.Channel]provider.ChannelProvider, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		if _, exists := byChannel[p.Channel()]; exists {
			return nil, fmt.Errorf("duplicate provider for channel %s", p.Channel())
		}
		byChannel[p.Channel()] = p
	}

	return &DispatchService{
		resolver:  resolver,
		providers: byChannel,
		ledger:    ledger,
		limiter:   limiter,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (s *DispatchService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Dispatch validates the request, resolves recipients, and issues one
// provider send per eligible (recipient, channel) pair concurrently. Only
// validation, resolution, and provider misconfiguration abort the call;
// every provider failure downstream is accounted per attempt, so an
// all-failed dispatch still returns a report rather than an error.
func (s *DispatchService) Dispatch(ctx context.Context, req DispatchRequest) (*domain.DispatchReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if len(req.PersonnelIDs) == 0 {
		return nil, fmt.Errorf("%w: personnelIds is required", domain.ErrValidation)
	}

	msg := domain.Message{
		Subject:     strings.TrimSpace(req.Subject),
		Body:        strings.TrimSpace(req.Body),
		Channels:    req.Channels,
		ScheduledAt: req.ScheduledAt,
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	for _, ch := range msg.Channels {
		if _, ok := s.providers[ch]; !ok {
			return nil, fmt.Errorf("%w: no provider configured for channel %s", domain.ErrProviderMisconfigured, ch)
		}
	}

	resolution, err := s.resolver.Resolve(ctx, req.PersonnelIDs, msg.Channels)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		for _, skipped := range resolution.Skipped {
			s.metrics.IncRecipientSkipped(skipped.Reason)
		}
	}

	attempts := planAttempts(msg, resolution.Recipients)
	messageID := s.recordPending(ctx, msg, attempts)

	g, groupCtx := errgroup.WithContext(ctx)
	for i := range attempts {
		attempt := &attempts[i]
		rcpt := recipientByID(resolution.Recipients, attempt.RecipientID)

		g.Go(func() error {
			s.sendOne(groupCtx, msg, rcpt, attempt)
			if messageID != "" {
				if err := s.ledger.RecordOutcome(groupCtx, messageID, *attempt); err != nil {
					s.logger.Warn("ledger outcome write failed",
						zap.String("messageId", messageID),
						zap.String("recipientId", attempt.RecipientID),
						zap.String("channel", attempt.Channel.String()),
						zap.Error(err),
					)
				}
			}
			// Attempt outcomes are never call-level errors.
			return nil
		})
	}
	_ = g.Wait()

	report := domain.BuildReport(attempts)
	report.Skipped = resolution.Skipped
	if messageID != "" {
		report.MessageID = &messageID
	}

	s.logger.Info("dispatch completed",
		zap.Int("recipients", len(resolution.Recipients)),
		zap.Int("skipped", len(resolution.Skipped)),
		zap.Int("sent", report.Total.Sent),
		zap.Int("failed", report.Total.Failed),
	)

	return &report, nil
}

// sendOne performs a single provider call and writes the terminal state into
// the attempt in place. Each attempt owns its slot, so no locking is needed.
func (s *DispatchService) sendOne(ctx context.Context, msg domain.Message, rcpt domain.Recipient, attempt *domain.DeliveryAttempt) {
	channelName := strings.ToLower(attempt.Channel.String())

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, channelName); err != nil {
			s.markFailed(attempt, fmt.Errorf("rate limiter wait failed: %w", err))
			if s.metrics != nil {
				s.metrics.IncDeliveryFailed(channelName, "rate_limiter")
			}
			return
		}
	}

	sendStart := s.now()
	_, err := s.providers[attempt.Channel].Send(ctx, msg, rcpt)
	if s.metrics != nil {
		s.metrics.ObserveDeliveryDuration(channelName, s.now().Sub(sendStart))
	}

	if err != nil {
		s.markFailed(attempt, err)
		if s.metrics != nil {
			s.metrics.IncDeliveryFailed(channelName, "provider_error")
		}
		s.logger.Warn("delivery attempt failed",
			zap.String("recipientId", attempt.RecipientID),
			zap.String("channel", channelName),
			zap.Error(err),
		)
		return
	}

	attempt.Status = domain.AttemptSent
	if s.metrics != nil {
		s.metrics.IncDeliverySent(channelName)
	}
}

func (s *DispatchService) markFailed(attempt *domain.DeliveryAttempt, err error) {
	attempt.Status = domain.AttemptFailed
	text := err.Error()
	attempt.Error = &text
}

// recordPending writes the message record and one pending stub per planned
// attempt before any send, so the trail exists even if the process dies
// mid-dispatch. Ledger failures are logged and swallowed; a missing audit
// trail never blocks delivery.
func (s *DispatchService) recordPending(ctx context.Context, msg domain.Message, attempts []domain.DeliveryAttempt) string {
	if s.ledger == nil {
		return ""
	}

	messageID, err := s.ledger.CreateMessage(ctx, msg)
	if err != nil {
		s.logger.Warn("ledger message write failed", zap.Error(err))
		return ""
	}

	if err := s.ledger.CreatePendingAttempts(ctx, messageID, attempts); err != nil {
		s.logger.Warn("ledger pending attempts write failed",
			zap.String("messageId", messageID),
			zap.Error(err),
		)
	}

	return messageID
}

// planAttempts produces exactly one attempt per (recipient, channel) pair
// where the recipient has an address for that channel.
func planAttempts(msg domain.Message, recipients []domain.Recipient) []domain.DeliveryAttempt {
	attempts := make([]domain.DeliveryAttempt, 0, len(recipients)*len(msg.Channels))
	for _, ch := range msg.Channels {
		for _, rcpt := range recipients {
			if !rcpt.EligibleFor(ch) {
				continue
			}

			address := rcpt.Email
			if ch == domain.ChannelSMS {
				address = rcpt.Phone
			}

			attempts = append(attempts, domain.DeliveryAttempt{
				RecipientID: rcpt.ID,
				Channel:     ch,
				Address:     address,
				Status:      domain.AttemptPending,
			})
		}
	}
	return attempts
}

func recipientByID(recipients []domain.Recipient, id string) domain.Recipient {
	for _, rcpt := range recipients {
		if rcpt.ID == id {
			return rcpt
		}
	}
	return domain.Recipient{ID: id}
}
