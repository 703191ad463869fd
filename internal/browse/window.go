package browse

import (
	"cmp"
	"slices"

	"github.com/shubhamrasal/peekq/internal/models"
)

// MergeWindow folds incoming summaries into existing and keeps the windowSize newest,
// ordered ascending by (EnqueuedTime, SequenceNumber). A later entry for the same
// sequence number replaces an earlier one. Neither input is modified.
func MergeWindow(existing, incoming []models.MessageSummary, windowSize int) []models.MessageSummary {
	if windowSize <= 0 {
		return []models.MessageSummary{}
	}

	bySeq := make(map[int64]models.MessageSummary, len(existing)+len(incoming))
	for _, m := range existing {
		bySeq[m.SequenceNumber] = m
	}
	for _, m := range incoming {
		bySeq[m.SequenceNumber] = m
	}

	merged := make([]models.MessageSummary, 0, len(bySeq))
	for _, m := range bySeq {
		merged = append(merged, m)
	}
	slices.SortFunc(merged, compareOldestFirst)

	if len(merged) > windowSize {
		merged = slices.Clone(merged[len(merged)-windowSize:])
	}
	return merged
}

// compareOldestFirst orders by enqueued time, ties broken by sequence number.
// Sequence numbers are unique within a window so the order is total.
func compareOldestFirst(a, b models.MessageSummary) int {
	if c := a.EnqueuedTime.Compare(b.EnqueuedTime); c != 0 {
		return c
	}
	return cmp.Compare(a.SequenceNumber, b.SequenceNumber)
}
