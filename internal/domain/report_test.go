package domain

import (
	"math/rand"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestBuildReportSumsPerChannel(t *testing.T) {
	t.Parallel()

	attempts := []DeliveryAttempt{
		{RecipientID: "p1", Channel: ChannelEmail, Status: AttemptSent},
		{RecipientID: "p2", Channel: ChannelEmail, Status: AttemptFailed, Error: strPtr("mailbox full")},
		{RecipientID: "p1", Channel: ChannelSMS, Status: AttemptSent},
		{RecipientID: "p3", Channel: ChannelSMS, Status: AttemptSent},
	}

	report := BuildReport(attempts)

	if report.Email.Sent != 1 || report.Email.Failed != 1 {
		t.Fatalf("email = %+v, want {Sent:1 Failed:1}", report.Email)
	}
	if report.SMS.Sent != 2 || report.SMS.Failed != 0 {
		t.Fatalf("sms = %+v, want {Sent:2 Failed:0}", report.SMS)
	}
	if report.Total.Sent != 3 || report.Total.Failed != 1 {
		t.Fatalf("total = %+v, want {Sent:3 Failed:1}", report.Total)
	}
	if got, want := report.Total.Total(), len(attempts); got != want {
		t.Fatalf("total attempts = %d, want %d", got, want)
	}
}

func TestBuildReportIgnoresPending(t *testing.T) {
	t.Parallel()

	report := BuildReport([]DeliveryAttempt{
		{RecipientID: "p1", Channel: ChannelEmail, Status: AttemptPending},
		{RecipientID: "p2", Channel: ChannelEmail, Status: AttemptSent},
	})

	if report.Email.Sent != 1 || report.Email.Failed != 0 {
		t.Fatalf("email = %+v, want {Sent:1 Failed:0}", report.Email)
	}
}

func TestBuildReportOrderIndependent(t *testing.T) {
	t.Parallel()

	attempts := []DeliveryAttempt{
		{RecipientID: "p1", Channel: ChannelEmail, Status: AttemptSent},
		{RecipientID: "p2", Channel: ChannelEmail, Status: AttemptFailed},
		{RecipientID: "p3", Channel: ChannelSMS, Status: AttemptFailed},
		{RecipientID: "p4", Channel: ChannelSMS, Status: AttemptSent},
		{RecipientID: "p5", Channel: ChannelSMS, Status: AttemptSent},
	}

	want := BuildReport(attempts)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := make([]DeliveryAttempt, len(attempts))
		copy(shuffled, attempts)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		got := BuildReport(shuffled)
		if got.Email != want.Email || got.SMS != want.SMS || got.Total != want.Total {
			t.Fatalf("report after shuffle = %+v, want %+v", got, want)
		}
	}
}
