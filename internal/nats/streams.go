package nats

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/nats-io/nats.go"

	"github.com/shubhamrasal/peekq/internal/models"
)

// ListEntities returns every queue (stream) and subscription (consumer) with counts.
// Dead-letter streams are folded into the entity they belong to.
func (c *Client) ListEntities(ctx context.Context) ([]models.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var streams []*nats.StreamInfo
	for info := range c.js.StreamsInfo(nats.Context(ctx)) {
		if c.IsDeadLetterStream(info.Config.Name) {
			continue
		}
		streams = append(streams, info)
	}

	var entities []models.Entity
	for _, info := range streams {
		target := models.QueueTarget(info.Config.Name)
		entities = append(entities, models.Entity{
			Target:          target,
			ActiveCount:     toInt64(info.State.Msgs),
			DeadLetterCount: c.deadLetterCount(ctx, target),
			FilterSubject:   subjectsLabel(info.Config.Subjects),
		})
		entities = append(entities, c.listSubscriptions(ctx, info.Config.Name)...)
	}

	sort.Slice(entities, func(i, j int) bool {
		return entities[i].Target.String() < entities[j].Target.String()
	})

	return entities, nil
}

// RuntimeCounts returns the authoritative active and dead-letter counts for target
func (c *Client) RuntimeCounts(ctx context.Context, target models.Target) (models.Counts, error) {
	var active int64
	switch target.Kind {
	case models.KindQueue:
		info, err := c.js.StreamInfo(target.Name, nats.Context(ctx))
		if err != nil {
			return models.Counts{}, fmt.Errorf("failed to get stream info: %w", err)
		}
		active = toInt64(info.State.Msgs)
	case models.KindSubscription:
		n, err := c.subscriptionActive(ctx, target)
		if err != nil {
			return models.Counts{}, err
		}
		active = n
	default:
		return models.Counts{}, nil
	}

	deadLetter, err := c.streamMessages(ctx, c.DeadLetterStream(target))
	if err != nil {
		return models.Counts{}, err
	}
	return models.KnownCounts(active, deadLetter), nil
}

// streamMessages returns the message count of a stream, 0 when it does not exist
func (c *Client) streamMessages(ctx context.Context, name string) (int64, error) {
	info, err := c.js.StreamInfo(name, nats.Context(ctx))
	if err != nil {
		if errors.Is(err, nats.ErrStreamNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get stream info: %w", err)
	}
	return toInt64(info.State.Msgs), nil
}

// deadLetterCount is streamMessages for listings, where a failure shows as 0
func (c *Client) deadLetterCount(ctx context.Context, target models.Target) int64 {
	n, err := c.streamMessages(ctx, c.DeadLetterStream(target))
	if err != nil {
		c.logger.Debug().Err(err).Str("target", target.String()).Msg("dead-letter count unavailable")
		return 0
	}
	return n
}

func subjectsLabel(subjects []string) string {
	switch len(subjects) {
	case 0:
		return ""
	case 1:
		return subjects[0]
	default:
		return fmt.Sprintf("%s (+%d)", subjects[0], len(subjects)-1)
	}
}
