package domain

import (
	"fmt"
	"strings"
)

// AttemptStatus is the lifecycle state of a single delivery attempt.
// Transitions: PENDING -> SENT | FAILED, terminal, no automatic retry.
type AttemptStatus string

const (
	AttemptPending AttemptStatus = "PENDING"
	AttemptSent    AttemptStatus = "SENT"
	AttemptFailed  AttemptStatus = "FAILED"
)

func (s AttemptStatus) String() string { return string(s) }

func (s AttemptStatus) IsValid() bool {
	switch s {
	case AttemptPending, AttemptSent, AttemptFailed:
		return true
	}
	return false
}

func ParseAttemptStatusFromString(s string) (AttemptStatus, error) {
	st := AttemptStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid attempt status %q", ErrValidation, s)
	}
	return st, nil
}

// DeliveryAttempt records the outcome of one (recipient, channel) send.
// Exactly one is produced per eligible pair per dispatch call.
type DeliveryAttempt struct {
	RecipientID string
	Channel     Channel
	Address     string
	Status      AttemptStatus
	Error       *string
}

// SkippedRecipient explains why a requested id was excluded before dispatch.
type SkippedRecipient struct {
	ID     string
	Reason string
}
