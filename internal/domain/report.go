package domain

// ChannelCounts aggregates attempt outcomes for one channel.
type ChannelCounts struct {
	Sent   int
	Failed int
}

func (c ChannelCounts) Total() int { return c.Sent + c.Failed }

// DispatchReport is the aggregate result of one dispatch call. It is always
// recomputed from the attempt set and never persisted on its own.
type DispatchReport struct {
	MessageID *string
	Email     ChannelCounts
	SMS       ChannelCounts
	Total     ChannelCounts
	Skipped   []SkippedRecipient
}

// BuildReport sums delivery attempts into a report. The sum is commutative,
// so the order attempts completed in does not affect the result. Attempts
// still in PENDING state are not counted.
func BuildReport(attempts []DeliveryAttempt) DispatchReport {
	var report DispatchReport
	for _, attempt := range attempts {
		var bucket *ChannelCounts
		switch attempt.Channel {
		case ChannelEmail:
			bucket = &report.Email
		case ChannelSMS:
			bucket = &report.SMS
		default:
			continue
		}

		switch attempt.Status {
		case AttemptSent:
			bucket.Sent++
			report.Total.Sent++
		case AttemptFailed:
			bucket.Failed++
			report.Total.Failed++
		}
	}
	return report
}
