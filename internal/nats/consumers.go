package nats

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/shubhamrasal/peekq/internal/models"
)

// listSubscriptions returns an entity for every consumer of a stream
func (c *Client) listSubscriptions(ctx context.Context, streamName string) []models.Entity {
	var entities []models.Entity

	for info := range c.js.ConsumersInfo(streamName, nats.Context(ctx)) {
		target := models.SubscriptionTarget(streamName, info.Name)
		entities = append(entities, models.Entity{
			Target:          target,
			ActiveCount:     consumerActive(info),
			DeadLetterCount: c.deadLetterCount(ctx, target),
			FilterSubject:   filterLabel(info),
		})
	}

	return entities
}

// consumerActive is the number of messages the consumer still has to finish
func consumerActive(info *nats.ConsumerInfo) int64 {
	return toInt64(info.NumPending) + int64(info.NumAckPending)
}

func consumerFilters(info *nats.ConsumerInfo) []string {
	if len(info.Config.FilterSubjects) > 0 {
		return info.Config.FilterSubjects
	}
	if info.Config.FilterSubject != "" {
		return []string{info.Config.FilterSubject}
	}
	return nil
}

func filterLabel(info *nats.ConsumerInfo) string {
	filters := consumerFilters(info)
	switch len(filters) {
	case 0:
		return ">"
	case 1:
		return filters[0]
	default:
		return fmt.Sprintf("%s (+%d)", filters[0], len(filters)-1)
	}
}

// subscriptionActive returns NumPending + NumAckPending of the target's consumer
func (c *Client) subscriptionActive(ctx context.Context, target models.Target) (int64, error) {
	info, err := c.js.ConsumerInfo(target.Topic, target.Name, nats.Context(ctx))
	if err != nil {
		if errors.Is(err, nats.ErrConsumerNotFound) {
			return 0, fmt.Errorf("subscription %s not found: %w", target, err)
		}
		return 0, fmt.Errorf("failed to get consumer info: %w", err)
	}
	return consumerActive(info), nil
}
