// internal/history/publisher.go
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list the historian drains.
const DefaultQueueName = "lobbyrelay_room_events"

// ListPusher is the slice of the Redis client the publisher needs.
type ListPusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Publisher queues records in memory and pushes them to a Redis list from its own
// goroutine, so Record never blocks the caller.
type Publisher struct {
	client  ListPusher
	queue   string
	records chan Record
	logger  *logrus.Logger
	done    chan struct{}
}

// NewPublisher creates a Publisher buffering up to size records. Call Run to start pushing.
func NewPublisher(client ListPusher, queue string, size int, logger *logrus.Logger) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	if size <= 0 {
		size = 256
	}
	return &Publisher{
		client:  client,
		queue:   queue,
		records: make(chan Record, size),
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Record enqueues rec, dropping it when the buffer is full.
func (p *Publisher) Record(rec Record) {
	select {
	case p.records <- rec:
	default:
		p.logger.Warnf("history: buffer full, dropped %s record for room %s", rec.Kind, rec.RoomID)
	}
}

// Run pushes queued records until ctx is cancelled, then flushes what is left.
func (p *Publisher) Run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case rec := <-p.records:
			p.push(ctx, rec)
		case <-ctx.Done():
			p.drain()
			return
		}
	}
}

// Done is closed once Run has returned.
func (p *Publisher) Done() <-chan struct{} {
	return p.done
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case rec := <-p.records:
			p.push(ctx, rec)
		default:
			return
		}
	}
}

func (p *Publisher) push(ctx context.Context, rec Record) {
	if err := Publish(ctx, p.client, p.queue, rec); err != nil {
		p.logger.Warnf("history: %v", err)
	}
}

// Publish serializes rec to JSON and appends it to the given Redis list.
func Publish(ctx context.Context, client ListPusher, queue string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}
	if err := client.RPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queue, err)
	}
	return nil
}
