package models

import (
	"fmt"
	"strings"
)

// DefaultDeadLetterSuffix is appended to an entity name to form its dead-letter stream
const DefaultDeadLetterSuffix = "_DLQ"

// TargetKind tells queues and topic subscriptions apart
type TargetKind int

const (
	KindNone TargetKind = iota
	KindQueue
	KindSubscription
)

// Target selects which entity a browsing session peeks and counts.
// A queue maps to a JetStream stream, a subscription to a stream seen through one consumer.
type Target struct {
	Kind  TargetKind
	Topic string // stream name for subscriptions
	Name  string // queue stream name, or consumer name for subscriptions
}

// QueueTarget returns the target for a queue
func QueueTarget(name string) Target {
	return Target{Kind: KindQueue, Name: name}
}

// SubscriptionTarget returns the target for a topic subscription
func SubscriptionTarget(topic, name string) Target {
	return Target{Kind: KindSubscription, Topic: topic, Name: name}
}

// IsZero reports whether no entity is selected
func (t Target) IsZero() bool {
	return t.Kind == KindNone
}

// Stream returns the stream that holds the target's active messages
func (t Target) Stream() string {
	if t.Kind == KindSubscription {
		return t.Topic
	}
	return t.Name
}

func (t Target) String() string {
	switch t.Kind {
	case KindQueue:
		return t.Name
	case KindSubscription:
		return t.Topic + "/" + t.Name
	default:
		return ""
	}
}

// ParseTarget parses "queue" or "topic/subscription"
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Target{}, fmt.Errorf("empty target")
	}
	topic, sub, found := strings.Cut(s, "/")
	if !found {
		return QueueTarget(s), nil
	}
	if topic == "" || sub == "" || strings.Contains(sub, "/") {
		return Target{}, fmt.Errorf("invalid target %q (use: queue or topic/subscription)", s)
	}
	return SubscriptionTarget(topic, sub), nil
}

// DeadLetterName returns the name of the stream holding the target's dead-lettered messages
func DeadLetterName(t Target, suffix string) string {
	if suffix == "" {
		suffix = DefaultDeadLetterSuffix
	}
	switch t.Kind {
	case KindSubscription:
		return t.Topic + "_" + t.Name + suffix
	case KindQueue:
		return t.Name + suffix
	default:
		return ""
	}
}

// SubQueue selects the main queue or its dead-letter sub-queue
type SubQueue int

const (
	SubQueueActive SubQueue = iota
	SubQueueDeadLetter
)

func (s SubQueue) String() string {
	if s == SubQueueDeadLetter {
		return "dead-letter"
	}
	return "active"
}

// Entity represents a browsable queue or subscription with its counts
type Entity struct {
	Target          Target
	ActiveCount     int64
	DeadLetterCount int64
	FilterSubject   string
}
