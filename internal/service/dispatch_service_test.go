package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/amyusif/madpc-notify/internal/directory"
	"github.com/amyusif/madpc-notify/internal/domain"
	"github.com/amyusif/madpc-notify/internal/provider"
	"github.com/amyusif/madpc-notify/internal/repository"
	"go.uber.org/zap"
)

type fakeResolver struct {
	resolveFn func(ctx context.Context, ids []string, channels []domain.Channel) (*directory.Resolution, error)
}

func (f *fakeResolver) Resolve(ctx context.Context, ids []string, channels []domain.Channel) (*directory.Resolution, error) {
	return f.resolveFn(ctx, ids, channels)
}

type fakeProvider struct {
	channel domain.Channel
	sendFn  func(ctx context.Context, msg domain.Message, rcpt domain.Recipient) (*provider.SendResult, error)

	mu    sync.Mutex
	sends []string
}

func (f *fakeProvider) Channel() domain.Channel { return f.channel }

func (f *fakeProvider) Send(ctx context.Context, msg domain.Message, rcpt domain.Recipient) (*provider.SendResult, error) {
	f.mu.Lock()
	f.sends = append(f.sends, rcpt.ID)
	f.mu.Unlock()

	if f.sendFn == nil {
		return &provider.SendResult{StatusCode: 200}, nil
	}
	return f.sendFn(ctx, msg, rcpt)
}

func (f *fakeProvider) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

type fakeLedger struct {
	createMessageFn func(ctx context.Context, msg domain.Message) (string, error)
	pendingFn       func(ctx context.Context, messageID string, attempts []domain.DeliveryAttempt) error
	outcomeFn       func(ctx context.Context, messageID string, attempt domain.DeliveryAttempt) error
	getMessageFn    func(ctx context.Context, id string) (*repository.MessageRecord, error)
	getAttemptsFn   func(ctx context.Context, messageID string) ([]domain.DeliveryAttempt, error)

	mu       sync.Mutex
	outcomes []domain.DeliveryAttempt
}

func (f *fakeLedger) CreateMessage(ctx context.Context, msg domain.Message) (string, error) {
	if f.createMessageFn == nil {
		return "msg-1", nil
	}
	return f.createMessageFn(ctx, msg)
}

func (f *fakeLedger) CreatePendingAttempts(ctx context.Context, messageID string, attempts []domain.DeliveryAttempt) error {
	if f.pendingFn == nil {
		return nil
	}
	return f.pendingFn(ctx, messageID, attempts)
}

func (f *fakeLedger) RecordOutcome(ctx context.Context, messageID string, attempt domain.DeliveryAttempt) error {
	f.mu.Lock()
	f.outcomes = append(f.outcomes, attempt)
	f.mu.Unlock()

	if f.outcomeFn == nil {
		return nil
	}
	return f.outcomeFn(ctx, messageID, attempt)
}

func (f *fakeLedger) GetMessage(ctx context.Context, id string) (*repository.MessageRecord, error) {
	if f.getMessageFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.getMessageFn(ctx, id)
}

func (f *fakeLedger) GetAttempts(ctx context.Context, messageID string) ([]domain.DeliveryAttempt, error) {
	if f.getAttemptsFn == nil {
		return nil, nil
	}
	return f.getAttemptsFn(ctx, messageID)
}

func (f *fakeLedger) outcomeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.outcomes)
}

func staticResolver(recipients []domain.Recipient, skipped []domain.SkippedRecipient) *fakeResolver {
	return &fakeResolver{
		resolveFn: func(_ context.Context, _ []string, _ []domain.Channel) (*directory.Resolution, error) {
			return &directory.Resolution{Recipients: recipients, Skipped: skipped}, nil
		},
	}
}

func TestDispatchHappyPath(t *testing.T) {
	t.Parallel()

	recipients := []domain.Recipient{
		{ID: "p1", Name: "Kwame Mensah", Email: "kwame@madpc.gov.gh", Phone: "+233201111111"},
		{ID: "p2", Name: "Ama Owusu", Email: "ama@madpc.gov.gh", Phone: "+233202222222"},
	}
	email := &fakeProvider{channel: domain.ChannelEmail}
	sms := &fakeProvider{channel: domain.ChannelSMS}
	ledger := &fakeLedger{}

	svc, err := NewDispatchService(staticResolver(recipients, nil), []provider.ChannelProvider{email, sms}, ledger, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatchService: %v", err)
	}

	report, err := svc.Dispatch(context.Background(), DispatchRequest{
		PersonnelIDs: []string{"p1", "p2"},
		Subject:      "Duty roster",
		Body:         "Report by 0600.",
		Channels:     []domain.Channel{domain.ChannelEmail, domain.ChannelSMS},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if report.Email.Sent != 2 || report.SMS.Sent != 2 || report.Total.Sent != 4 || report.Total.Failed != 0 {
		t.Errorf("report = email %+v sms %+v total %+v", report.Email, report.SMS, report.Total)
	}
	if report.MessageID == nil || *report.MessageID != "msg-1" {
		t.Errorf("messageId = %v, want msg-1", report.MessageID)
	}
	if email.sendCount() != 2 || sms.sendCount() != 2 {
		t.Errorf("sends = email %d sms %d, want 2 each", email.sendCount(), sms.sendCount())
	}
	if ledger.outcomeCount() != 4 {
		t.Errorf("ledger outcomes = %d, want 4", ledger.outcomeCount())
	}
}

func TestDispatchPartialFailureIsNotCallFailure(t *testing.T) {
	t.Parallel()

	recipients := []domain.Recipient{
		{ID: "p1", Email: "a@madpc.gov.gh"},
		{ID: "p2", Email: "b@madpc.gov.gh"},
		{ID: "p3", Email: "c@madpc.gov.gh"},
	}
	email := &fakeProvider{
		channel: domain.ChannelEmail,
		sendFn: func(_ context.Context, _ domain.Message, rcpt domain.Recipient) (*provider.SendResult, error) {
			if rcpt.ID == "p2" {
				return nil, &provider.ProviderError{StatusCode: 502, Message: "upstream unavailable"}
			}
			return &provider.SendResult{StatusCode: 200}, nil
		},
	}

	svc, err := NewDispatchService(staticResolver(recipients, nil), []provider.ChannelProvider{email}, nil, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatchService: %v", err)
	}

	report, err := svc.Dispatch(context.Background(), DispatchRequest{
		PersonnelIDs: []string{"p1", "p2", "p3"},
		Subject:      "s",
		Body:         "m",
		Channels:     []domain.Channel{domain.ChannelEmail},
	})
	if err != nil {
		t.Fatalf("Dispatch returned error on partial failure: %v", err)
	}

	if report.Email.Sent != 2 || report.Email.Failed != 1 {
		t.Errorf("email = %+v, want 2 sent 1 failed", report.Email)
	}
	if email.sendCount() != 3 {
		t.Errorf("sends = %d, want all 3 attempted", email.sendCount())
	}
}

// Two recipients, each usable on one channel only: p1 has email but no
// phone, p2 has phone but no email. Dispatching both channels yields one
// email attempt and one sms attempt, nothing doubled.
func TestDispatchMixedEligibility(t *testing.T) {
	t.Parallel()

	recipients := []domain.Recipient{
		{ID: "p1", Email: "p1@madpc.gov.gh"},
		{ID: "p2", Phone: "+233201234567"},
	}
	email := &fakeProvider{channel: domain.ChannelEmail}
	sms := &fakeProvider{channel: domain.ChannelSMS}

	svc, err := NewDispatchService(staticResolver(recipients, nil), []provider.ChannelProvider{email, sms}, nil, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatchService: %v", err)
	}

	report, err := svc.Dispatch(context.Background(), DispatchRequest{
		PersonnelIDs: []string{"p1", "p2"},
		Subject:      "s",
		Body:         "m",
		Channels:     []domain.Channel{domain.ChannelEmail, domain.ChannelSMS},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if report.Email.Sent != 1 || report.Email.Failed != 0 {
		t.Errorf("email = %+v, want 1 sent", report.Email)
	}
	if report.SMS.Sent != 1 || report.SMS.Failed != 0 {
		t.Errorf("sms = %+v, want 1 sent", report.SMS)
	}
	if report.Total.Sent != 2 {
		t.Errorf("total sent = %d, want 2", report.Total.Sent)
	}
	if email.sendCount() != 1 || sms.sendCount() != 1 {
		t.Errorf("sends = email %d sms %d, want 1 each", email.sendCount(), sms.sendCount())
	}
}

func TestDispatchValidation(t *testing.T) {
	t.Parallel()

	email := &fakeProvider{channel: domain.ChannelEmail}
	svc, err := NewDispatchService(staticResolver(nil, nil), []provider.ChannelProvider{email}, nil, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatchService: %v", err)
	}

	testCases := []struct {
		name string
		req  DispatchRequest
	}{
		{
			name: "no personnel ids",
			req:  DispatchRequest{Subject: "s", Body: "m", Channels: []domain.Channel{domain.ChannelEmail}},
		},
		{
			name: "no subject",
			req:  DispatchRequest{PersonnelIDs: []string{"p1"}, Body: "m", Channels: []domain.Channel{domain.ChannelEmail}},
		},
		{
			name: "no body",
			req:  DispatchRequest{PersonnelIDs: []string{"p1"}, Subject: "s", Channels: []domain.Channel{domain.ChannelEmail}},
		},
		{
			name: "no channels",
			req:  DispatchRequest{PersonnelIDs: []string{"p1"}, Subject: "s", Body: "m"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if _, err := svc.Dispatch(context.Background(), tc.req); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestDispatchMissingProvider(t *testing.T) {
	t.Parallel()

	email := &fakeProvider{channel: domain.ChannelEmail}
	svc, err := NewDispatchService(staticResolver(nil, nil), []provider.ChannelProvider{email}, nil, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatchService: %v", err)
	}

	_, err = svc.Dispatch(context.Background(), DispatchRequest{
		PersonnelIDs: []string{"p1"},
		Subject:      "s",
		Body:         "m",
		Channels:     []domain.Channel{domain.ChannelSMS},
	})
	if !errors.Is(err, domain.ErrProviderMisconfigured) {
		t.Fatalf("error = %v, want ErrProviderMisconfigured", err)
	}
	if email.sendCount() != 0 {
		t.Errorf("sends = %d, want 0 before misconfiguration check", email.sendCount())
	}
}

func TestDispatchResolverErrorsPropagate(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{
		resolveFn: func(_ context.Context, _ []string, _ []domain.Channel) (*directory.Resolution, error) {
			return nil, domain.ErrNoValidRecipients
		},
	}
	email := &fakeProvider{channel: domain.ChannelEmail}
	svc, err := NewDispatchService(resolver, []provider.ChannelProvider{email}, nil, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatchService: %v", err)
	}

	_, err = svc.Dispatch(context.Background(), DispatchRequest{
		PersonnelIDs: []string{"p1"},
		Subject:      "s",
		Body:         "m",
		Channels:     []domain.Channel{domain.ChannelEmail},
	})
	if !errors.Is(err, domain.ErrNoValidRecipients) {
		t.Fatalf("error = %v, want ErrNoValidRecipients", err)
	}
}

func TestDispatchLedgerFailuresAreSwallowed(t *testing.T) {
	t.Parallel()

	recipients := []domain.Recipient{{ID: "p1", Email: "p1@madpc.gov.gh"}}
	email := &fakeProvider{channel: domain.ChannelEmail}
	ledger := &fakeLedger{
		createMessageFn: func(_ context.Context, _ domain.Message) (string, error) {
			return "", fmt.Errorf("connection refused")
		},
	}

	svc, err := NewDispatchService(staticResolver(recipients, nil), []provider.ChannelProvider{email}, ledger, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatchService: %v", err)
	}

	report, err := svc.Dispatch(context.Background(), DispatchRequest{
		PersonnelIDs: []string{"p1"},
		Subject:      "s",
		Body:         "m",
		Channels:     []domain.Channel{domain.ChannelEmail},
	})
	if err != nil {
		t.Fatalf("Dispatch failed on ledger error: %v", err)
	}

	if report.MessageID != nil {
		t.Errorf("messageId = %v, want nil after failed ledger write", report.MessageID)
	}
	if report.Email.Sent != 1 {
		t.Errorf("email sent = %d, want 1", report.Email.Sent)
	}
}

func TestDispatchWithoutLedgerHasNoMessageID(t *testing.T) {
	t.Parallel()

	recipients := []domain.Recipient{{ID: "p1", Email: "p1@madpc.gov.gh"}}
	email := &fakeProvider{channel: domain.ChannelEmail}

	svc, err := NewDispatchService(staticResolver(recipients, nil), []provider.ChannelProvider{email}, nil, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatchService: %v", err)
	}

	report, err := svc.Dispatch(context.Background(), DispatchRequest{
		PersonnelIDs: []string{"p1"},
		Subject:      "s",
		Body:         "m",
		Channels:     []domain.Channel{domain.ChannelEmail},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if report.MessageID != nil {
		t.Errorf("messageId = %v, want nil without a ledger", report.MessageID)
	}
	if report.Total.Sent != 1 {
		t.Errorf("total sent = %d, want 1", report.Total.Sent)
	}
}

func TestDispatchReportsSkippedRecipients(t *testing.T) {
	t.Parallel()

	recipients := []domain.Recipient{{ID: "p1", Email: "p1@madpc.gov.gh"}}
	skipped := []domain.SkippedRecipient{{ID: "p9", Reason: directory.SkipReasonNotInDirectory}}
	email := &fakeProvider{channel: domain.ChannelEmail}

	svc, err := NewDispatchService(staticResolver(recipients, skipped), []provider.ChannelProvider{email}, nil, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatchService: %v", err)
	}

	report, err := svc.Dispatch(context.Background(), DispatchRequest{
		PersonnelIDs: []string{"p1", "p9"},
		Subject:      "s",
		Body:         "m",
		Channels:     []domain.Channel{domain.ChannelEmail},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if len(report.Skipped) != 1 || report.Skipped[0].ID != "p9" {
		t.Errorf("skipped = %+v, want one entry for p9", report.Skipped)
	}
}

func TestNewDispatchServiceRejectsDuplicateProviders(t *testing.T) {
	t.Parallel()

	a := &fakeProvider{channel: domain.ChannelEmail}
	b := &fakeProvider{channel: domain.ChannelEmail}

	if _, err := NewDispatchService(staticResolver(nil, nil), []provider.ChannelProvider{a, b}, nil, nil, zap.NewNop()); err == nil {
		t.Fatal("expected error for duplicate channel providers")
	}
}

func TestGetMessageAuditRebuildsReport(t *testing.T) {
	t.Parallel()

	errText := "provider error: status=502"
	ledger := &fakeLedger{
		getMessageFn: func(_ context.Context, id string) (*repository.MessageRecord, error) {
			return &repository.MessageRecord{ID: id, Subject: "s", Body: "m", Channels: []domain.Channel{domain.ChannelEmail}}, nil
		},
		getAttemptsFn: func(_ context.Context, _ string) ([]domain.DeliveryAttempt, error) {
			return []domain.DeliveryAttempt{
				{RecipientID: "p1", Channel: domain.ChannelEmail, Status: domain.AttemptSent},
				{RecipientID: "p2", Channel: domain.ChannelEmail, Status: domain.AttemptFailed, Error: &errText},
			}, nil
		},
	}
	email := &fakeProvider{channel: domain.ChannelEmail}

	svc, err := NewDispatchService(staticResolver(nil, nil), []provider.ChannelProvider{email}, ledger, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatchService: %v", err)
	}

	audit, err := svc.GetMessageAudit(context.Background(), "msg-1")
	if err != nil {
		t.Fatalf("GetMessageAudit: %v", err)
	}

	if audit.Report.Email.Sent != 1 || audit.Report.Email.Failed != 1 {
		t.Errorf("report email = %+v, want 1 sent 1 failed", audit.Report.Email)
	}
	if audit.Report.MessageID == nil || *audit.Report.MessageID != "msg-1" {
		t.Errorf("report messageId = %v, want msg-1", audit.Report.MessageID)
	}
}

func TestGetMessageAuditWithoutLedger(t *testing.T) {
	t.Parallel()

	email := &fakeProvider{channel: domain.ChannelEmail}
	svc, err := NewDispatchService(staticResolver(nil, nil), []provider.ChannelProvider{email}, nil, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatchService: %v", err)
	}

	if _, err := svc.GetMessageAudit(context.Background(), "msg-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}
