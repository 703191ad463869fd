package browse

import "github.com/shubhamrasal/peekq/internal/models"

// Reconcile drops active entries whose sequence number is already shown as dead-lettered.
// Peeking the queue and its dead-letter sub-queue are separate round trips, so a message
// can briefly show up in both. deadLetter is never modified.
func Reconcile(active, deadLetter []models.MessageSummary) []models.MessageSummary {
	if len(active) == 0 || len(deadLetter) == 0 {
		return active
	}

	dead := make(map[int64]struct{}, len(deadLetter))
	for _, m := range deadLetter {
		dead[m.SequenceNumber] = struct{}{}
	}

	kept := make([]models.MessageSummary, 0, len(active))
	for _, m := range active {
		if _, ok := dead[m.SequenceNumber]; ok {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}
