package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/amyusif/madpc-notify/internal/domain"
	"go.uber.org/zap"
)

// Skip reasons reported back to the caller for ids excluded before dispatch.
const (
	SkipReasonNotInDirectory = "not found in directory"
	SkipReasonNoEmail        = "no email address on record"
	SkipReasonNoPhone        = "no usable phone number on record"
	SkipReasonNoAddress      = "no usable contact address for requested channels"
)

// RecipientResolver filters directory records down to deliverable recipients
// for a given channel set.
type RecipientResolver struct {
	directory ContactDirectory
	logger    *zap.Logger
}

// Resolution is the resolver output: recipients eligible for at least one
// requested channel, plus the ids that were dropped and why.
type Resolution struct {
	Recipients []domain.Recipient
	Skipped    []domain.SkippedRecipient
}

func NewRecipientResolver(directory ContactDirectory, logger *zap.Logger) (*RecipientResolver, error) {
	if directory == nil {
		return nil, fmt.Errorf("contact directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RecipientResolver{
		directory: directory,
		logger:    logger,
	}, nil
}

// Resolve looks up the given ids in one batched directory call, trims and
// normalizes addresses, and keeps a record iff it has a usable address for
// at least one requested channel. Ids are deduplicated by id only; two
// distinct ids sharing an email or phone both stay. An empty kept set is
// ErrNoValidRecipients.
func (r *RecipientResolver) Resolve(ctx context.Context, ids []string, channels []domain.Channel) (*Resolution, error) {
	unique := dedupeIDs(ids)
	if len(unique) == 0 {
		return nil, fmt.Errorf("%w: no recipient ids supplied", domain.ErrValidation)
	}

	contacts, err := r.directory.Lookup(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("directory lookup failed: %w", err)
	}

	byID := make(map[string]Contact, len(contacts))
	for _, contact := range contacts {
		byID[contact.ID] = contact
	}

	wantEmail := containsChannel(channels, domain.ChannelEmail)
	wantSMS := containsChannel(channels, domain.ChannelSMS)

	resolution := &Resolution{}
	for _, id := range unique {
		contact, ok := byID[id]
		if !ok {
			resolution.Skipped = append(resolution.Skipped, domain.SkippedRecipient{
				ID:     id,
				Reason: SkipReasonNotInDirectory,
			})
			continue
		}

		rcpt := domain.Recipient{
			ID:    contact.ID,
			Name:  strings.TrimSpace(contact.Name),
			Email: strings.TrimSpace(contact.Email),
		}

		if phone := strings.TrimSpace(contact.Phone); phone != "" {
			normalized, normErr := domain.NormalizePhone(phone)
			if normErr != nil {
				r.logger.Warn("dropping unnormalizable phone",
					zap.String("personnelId", contact.ID),
					zap.Error(normErr),
				)
			} else {
				rcpt.Phone = normalized
			}
		}

		keep := (wantEmail && rcpt.Email != "") || (wantSMS && rcpt.Phone != "")
		if keep {
			resolution.Recipients = append(resolution.Recipients, rcpt)
			continue
		}

		resolution.Skipped = append(resolution.Skipped, domain.SkippedRecipient{
			ID:     id,
			Reason: skipReason(wantEmail, wantSMS),
		})
	}

	if len(resolution.Recipients) == 0 {
		return nil, fmt.Errorf("%w: none of %d requested recipients has a usable address", domain.ErrNoValidRecipients, len(unique))
	}

	return resolution, nil
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		unique = append(unique, trimmed)
	}
	return unique
}

func containsChannel(channels []domain.Channel, ch domain.Channel) bool {
	for _, c := range channels {
		if c == ch {
			return true
		}
	}
	return false
}

func skipReason(wantEmail, wantSMS bool) string {
	switch {
	case wantEmail && !wantSMS:
		return SkipReasonNoEmail
	case wantSMS && !wantEmail:
		return SkipReasonNoPhone
	default:
		return SkipReasonNoAddress
	}
}
