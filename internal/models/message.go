package models

import (
	"math"
	"strconv"
	"time"
)

// MessageSummary is the peek projection of a broker message shown in a window row.
// SequenceNumber is the identity key; empty strings mean the field was absent.
type MessageSummary struct {
	SequenceNumber int64
	EnqueuedTime   time.Time
	MessageID      string
	Subject        string
	CorrelationID  string
}

// MessageDetail holds detailed message information for display
type MessageDetail struct {
	SequenceNumber int64
	Subject        string
	EnqueuedTime   time.Time
	MessageID      string
	CorrelationID  string
	Headers        map[string][]string
	Payload        string
	Size           int
	DeadLetter     bool
}

// Anchor is the lower-bound sequence hint passed to peek.
// The zero value means "start from the oldest available message".
type Anchor struct {
	seq int64
	set bool
}

// StartAnchor returns the anchor that peeks from the oldest message.
func StartAnchor() Anchor {
	return Anchor{}
}

// AnchorAt returns an anchor at the given sequence number.
func AnchorAt(seq int64) Anchor {
	return Anchor{seq: seq, set: true}
}

// Sequence returns the anchor's sequence number and whether one is set.
func (a Anchor) Sequence() (int64, bool) {
	return a.seq, a.set
}

// IsStart reports whether the anchor means "from the oldest message".
func (a Anchor) IsStart() bool {
	return !a.set
}

// After returns the anchor one past seq, saturating at math.MaxInt64.
func After(seq int64) Anchor {
	if seq == math.MaxInt64 {
		return AnchorAt(math.MaxInt64)
	}
	return AnchorAt(seq + 1)
}

func (a Anchor) String() string {
	if !a.set {
		return "start"
	}
	return strconv.FormatInt(a.seq, 10)
}

// Counts holds authoritative runtime counts for a target; nil means unknown.
type Counts struct {
	Active     *int64
	DeadLetter *int64
}

// KnownCounts builds Counts with both values known.
func KnownCounts(active, deadLetter int64) Counts {
	return Counts{Active: &active, DeadLetter: &deadLetter}
}
