// Package events publishes compile lifecycle events over Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CompileCompletedChannel carries one event per settled compile run.
const CompileCompletedChannel = "compile_completed"

// CompileCompletedEvent describes the outcome of a compile run.
type CompileCompletedEvent struct {
	RunID     string `json:"run_id"`
	Project   string `json:"project"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Timestamp int64  `json:"time"`
}

// Publisher publishes events to Redis.
type Publisher struct {
	redis *redis.Client
}

// NewPublisher creates a publisher over an existing Redis client.
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{redis: client}
}

// PublishCompileCompleted publishes a completion event.
func (p *Publisher) PublishCompileCompleted(ctx context.Context, ev CompileCompletedEvent) error {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().Unix()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal compile event: %w", err)
	}

	if err := p.redis.Publish(ctx, CompileCompletedChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish compile event: %w", err)
	}
	return nil
}
