package domain

import "errors"

var (
	// ErrValidation marks caller-supplied input that fails shape validation.
	ErrValidation = errors.New("validation error")
	// ErrNoValidRecipients means resolution left zero deliverable recipients.
	ErrNoValidRecipients = errors.New("no valid recipients")
	// ErrProviderMisconfigured means a selected channel vendor lacks required credentials.
	ErrProviderMisconfigured = errors.New("provider misconfigured")
	// ErrNotFound marks a missing persisted record.
	ErrNotFound = errors.New("not found")
)
