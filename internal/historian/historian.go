// Package historian drains room history records from Redis and persists them to
// Postgres in batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jason-s-yu/lobbyrelay/internal/history"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// maxPopTimeout caps a single BLPOP so shutdown and flush deadlines are noticed.
const maxPopTimeout = 3 * time.Second

// ListPopper is the slice of the Redis client the historian needs.
type ListPopper interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// Service pops records from the queue, batches them and flushes each batch to the store.
type Service struct {
	redis      ListPopper
	store      Store
	queue      string
	batchSize  int
	flushDelay time.Duration
	logger     *logrus.Logger

	batch     []history.Record
	lastFlush time.Time
}

// NewService creates a historian. Batches are flushed at batchSize records or after
// flushDelay, whichever comes first.
func NewService(rdb ListPopper, store Store, queue string, batchSize int, flushDelay time.Duration, logger *logrus.Logger) *Service {
	if queue == "" {
		queue = history.DefaultQueueName
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	if flushDelay <= 0 {
		flushDelay = time.Second
	}
	return &Service{
		redis:      rdb,
		store:      store,
		queue:      queue,
		batchSize:  batchSize,
		flushDelay: flushDelay,
		logger:     logger,
		batch:      make([]history.Record, 0, batchSize),
	}
}

// Run consumes the queue until ctx is cancelled, then flushes the pending batch.
func (s *Service) Run(ctx context.Context) {
	s.logger.Infof("historian consuming %s", s.queue)
	s.lastFlush = time.Now()

	for {
		if ctx.Err() != nil {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			s.flush(flushCtx)
			cancel()
			s.logger.Info("historian stopped")
			return
		}

		rec, ok := s.pop(ctx)
		if ok {
			s.batch = append(s.batch, rec)
		}
		if len(s.batch) >= s.batchSize || time.Since(s.lastFlush) >= s.flushDelay {
			s.flush(ctx)
		}
	}
}

// pop waits for one record. ok is false on timeout, shutdown or a bad payload.
func (s *Service) pop(ctx context.Context) (history.Record, bool) {
	timeout := s.flushDelay
	if timeout > maxPopTimeout {
		timeout = maxPopTimeout
	}

	res, err := s.redis.BLPop(ctx, timeout, s.queue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			s.logger.Errorf("BLPop: %v", err)
			// back off so a dead Redis does not spin the loop
			select {
			case <-time.After(timeout):
			case <-ctx.Done():
			}
		}
		return history.Record{}, false
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return history.Record{}, false
	}

	var rec history.Record
	if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
		s.logger.Warnf("invalid history record: %v", err)
		return history.Record{}, false
	}
	return rec, true
}

// flush writes the pending batch in one transaction. A failed batch is logged and
// dropped.
func (s *Service) flush(ctx context.Context) {
	s.lastFlush = time.Now()
	if len(s.batch) == 0 {
		return
	}

	if err := s.store.InsertBatch(ctx, s.batch); err != nil {
		s.logger.Errorf("flush of %d records failed: %v", len(s.batch), err)
	} else {
		s.logger.Debugf("flushed %d records", len(s.batch))
	}
	s.batch = s.batch[:0]
}
