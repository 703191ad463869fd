package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/nats-io/nats.go"

	"github.com/shubhamrasal/peekq/internal/models"
)

const (
	headerMessageID     = "Nats-Msg-Id"
	headerCorrelationID = "Correlation-Id"

	// maxConsecutiveMisses stops a walk over sequences that vanish between StreamInfo and GetMsg
	maxConsecutiveMisses = 64

	// maxScannedSequences bounds the GetMsg calls of one filtered walk on streams without direct get
	maxScannedSequences = 4096
)

// streamCursor describes where and how to walk a stream for one peek
type streamCursor struct {
	stream  string
	floor   uint64   // lowest sequence that may be returned
	filters []string // subject filters, empty for all
	missing bool     // a missing stream reads as empty instead of failing
}

// PeekActive returns up to maxCount messages of the target that have not been consumed,
// starting at from. Nothing is acknowledged.
func (c *Client) PeekActive(ctx context.Context, target models.Target, maxCount int, from models.Anchor) ([]models.MessageSummary, error) {
	cursor, err := c.activeCursor(ctx, target)
	if err != nil {
		return nil, err
	}
	return c.peek(ctx, cursor, maxCount, from)
}

// PeekDeadLetter returns up to maxCount messages from the target's dead-letter stream
func (c *Client) PeekDeadLetter(ctx context.Context, target models.Target, maxCount int, from models.Anchor) ([]models.MessageSummary, error) {
	cursor := streamCursor{stream: c.DeadLetterStream(target), missing: true}
	return c.peek(ctx, cursor, maxCount, from)
}

func (c *Client) activeCursor(ctx context.Context, target models.Target) (streamCursor, error) {
	switch target.Kind {
	case models.KindQueue:
		return streamCursor{stream: target.Name}, nil
	case models.KindSubscription:
		info, err := c.js.ConsumerInfo(target.Topic, target.Name, nats.Context(ctx))
		if err != nil {
			return streamCursor{}, fmt.Errorf("failed to get consumer info: %w", err)
		}
		return streamCursor{
			stream:  target.Topic,
			floor:   info.AckFloor.Stream + 1,
			filters: consumerFilters(info),
		}, nil
	default:
		return streamCursor{}, fmt.Errorf("no target selected")
	}
}

// peek walks stream sequences from the anchor and collects summaries.
// Deleted sequences are skipped using the stream's deleted list.
func (c *Client) peek(ctx context.Context, cursor streamCursor, maxCount int, from models.Anchor) ([]models.MessageSummary, error) {
	if maxCount <= 0 {
		return nil, nil
	}

	info, err := c.js.StreamInfo(cursor.stream, &nats.StreamInfoRequest{DeletedDetails: true}, nats.Context(ctx))
	if err != nil {
		if cursor.missing && errors.Is(err, nats.ErrStreamNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get stream info: %w", err)
	}

	state := info.State
	if state.Msgs == 0 {
		return []models.MessageSummary{}, nil
	}

	start := max(state.FirstSeq, cursor.floor)
	if seq, ok := from.Sequence(); ok && seq > 0 && uint64(seq) > start {
		start = uint64(seq)
	}

	if info.Config.AllowDirect && len(cursor.filters) > 0 {
		return c.peekBySubject(ctx, cursor, start, state.LastSeq, maxCount)
	}

	deleted := make(map[uint64]struct{}, len(state.Deleted))
	for _, seq := range state.Deleted {
		deleted[seq] = struct{}{}
	}

	messages := []models.MessageSummary{}
	misses, scanned := 0, 0
	for seq := start; seq <= state.LastSeq && len(messages) < maxCount; seq++ {
		if _, gone := deleted[seq]; gone {
			continue
		}
		if misses >= maxConsecutiveMisses {
			c.logger.Debug().Str("stream", cursor.stream).Uint64("seq", seq).Msg("too many missing sequences, returning a short page")
			break
		}
		if scanned >= maxScannedSequences {
			c.logger.Debug().Str("stream", cursor.stream).Uint64("seq", seq).Msg("scan budget spent on unmatched subjects, returning a short page")
			break
		}
		scanned++
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msg, err := c.js.GetMsg(cursor.stream, seq, nats.Context(ctx))
		if err != nil {
			if errors.Is(err, nats.ErrMsgNotFound) {
				// removed after StreamInfo, skip it
				misses++
				continue
			}
			return nil, fmt.Errorf("failed to get message %d: %w", seq, err)
		}
		misses = 0

		if !matchesAny(cursor.filters, msg.Subject) {
			continue
		}
		messages = append(messages, summarize(msg))
	}

	return messages, nil
}

// peekBySubject jumps from one matching message to the next with direct gets, so subjects
// outside the filters cost nothing. next holds the upcoming match of each filter.
func (c *Client) peekBySubject(ctx context.Context, cursor streamCursor, start, last uint64, maxCount int) ([]models.MessageSummary, error) {
	next := make([]*nats.RawStreamMsg, len(cursor.filters))
	lookup := func(i int, from uint64) error {
		next[i] = nil
		if from > last {
			return nil
		}
		msg, err := c.getNext(ctx, cursor.stream, from, cursor.filters[i])
		if err != nil {
			if errors.Is(err, nats.ErrMsgNotFound) {
				return nil
			}
			return fmt.Errorf("failed to get next message on %s: %w", cursor.filters[i], err)
		}
		if msg.Sequence <= last {
			next[i] = msg
		}
		return nil
	}
	for i := range cursor.filters {
		if err := lookup(i, start); err != nil {
			return nil, err
		}
	}

	messages := []models.MessageSummary{}
	for len(messages) < maxCount {
		best := -1
		for i, m := range next {
			if m != nil && (best < 0 || m.Sequence < next[best].Sequence) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		seq := next[best].Sequence
		messages = append(messages, summarize(next[best]))
		if len(messages) == maxCount {
			break
		}
		// overlapping filters can point at the same message
		for i, m := range next {
			if m != nil && m.Sequence == seq {
				if err := lookup(i, seq+1); err != nil {
					return nil, err
				}
			}
		}
	}
	return messages, nil
}

// directGetNext returns the first message at or after seq whose subject matches subject
func (c *Client) directGetNext(ctx context.Context, stream string, seq uint64, subject string) (*nats.RawStreamMsg, error) {
	return c.js.GetMsg(stream, seq, nats.DirectGetNext(subject), nats.Context(ctx))
}

func summarize(msg *nats.RawStreamMsg) models.MessageSummary {
	return models.MessageSummary{
		SequenceNumber: toInt64(msg.Sequence),
		EnqueuedTime:   msg.Time,
		MessageID:      msg.Header.Get(headerMessageID),
		Subject:        msg.Subject,
		CorrelationID:  msg.Header.Get(headerCorrelationID),
	}
}

func toInt64(seq uint64) int64 {
	if seq > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(seq)
}

// GetMessageDetail returns detailed information about a message
func (c *Client) GetMessageDetail(ctx context.Context, target models.Target, sub models.SubQueue, seq int64) (*models.MessageDetail, error) {
	stream := target.Stream()
	if sub == models.SubQueueDeadLetter {
		stream = c.DeadLetterStream(target)
	}
	if seq <= 0 {
		return nil, fmt.Errorf("invalid sequence %d", seq)
	}

	msg, err := c.js.GetMsg(stream, uint64(seq), nats.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	// Try to format payload as JSON if possible
	payload := string(msg.Data)
	var prettyJSON interface{}
	if json.Unmarshal(msg.Data, &prettyJSON) == nil {
		formatted, err := json.MarshalIndent(prettyJSON, "", "  ")
		if err == nil {
			payload = string(formatted)
		}
	}

	summary := summarize(msg)
	return &models.MessageDetail{
		SequenceNumber: summary.SequenceNumber,
		Subject:        msg.Subject,
		EnqueuedTime:   msg.Time,
		MessageID:      summary.MessageID,
		CorrelationID:  summary.CorrelationID,
		Headers:        msg.Header,
		Payload:        payload,
		Size:           len(msg.Data),
		DeadLetter:     sub == models.SubQueueDeadLetter,
	}, nil
}
