package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultQueueKey = "queue:click_events"
	dequeueTimeout  = 5 * time.Second
)

// ClickEvent is the raw payload handed off by the redirect path. Enrichment
// happens later in the worker, never on the request path.
type ClickEvent struct {
	Slug      string    `json:"slug"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Referer   string    `json:"referer,omitempty"`
	ClickedAt time.Time `json:"clicked_at"`
}

// ClickQueue is a Redis-list-backed job queue with at-least-once delivery.
// Consumers must tolerate duplicate events.
type ClickQueue struct {
	rdb *redis.Client
	key string
}

func NewClickQueue(rdb *redis.Client) *ClickQueue {
	return &ClickQueue{
		rdb: rdb,
		key: defaultQueueKey,
	}
}

func (q *ClickQueue) Enqueue(ctx context.Context, ev ClickEvent) error {
	const op = "queue.ClickQueue.Enqueue"

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal click event: %w", op, err)
	}

	if err := q.rdb.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("%s: failed to enqueue click event: %w", op, err)
	}

	return nil
}

// Dequeue blocks for up to a few seconds waiting for the next event.
// A nil event with a nil error means the wait timed out; callers should
// simply retry.
func (q *ClickQueue) Dequeue(ctx context.Context) (*ClickEvent, error) {
	const op = "queue.ClickQueue.Dequeue"

	res, err := q.rdb.BRPop(ctx, dequeueTimeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("%s: failed to dequeue click event: %w", op, err)
	}

	// BRPOP returns [key, value].
	var ev ClickEvent
	if err := json.Unmarshal([]byte(res[1]), &ev); err != nil {
		return nil, fmt.Errorf("%s: failed to unmarshal click event: %w", op, err)
	}

	return &ev, nil
}
