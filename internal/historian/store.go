// internal/historian/store.go
package historian

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/lobbyrelay/internal/history"
)

// Store persists batches of history records.
type Store interface {
	InsertBatch(ctx context.Context, records []history.Record) error
}

// PGStore writes records to the room_events table.
type PGStore struct {
	pool *pgxpool.Pool
}

// ConnectDB opens a pgx pool and checks that the database answers.
func ConnectDB(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return pool, nil
}

// NewPGStore wraps an open pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const insertRoomEventQ = `
	INSERT INTO room_events (id, room_id, kind, players, detail, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO NOTHING
`

// InsertBatch inserts every record in one transaction. Records already stored are
// skipped, so a batch can be retried.
func (s *PGStore) InsertBatch(ctx context.Context, records []history.Record) error {
	if len(records) == 0 {
		return nil
	}
	return beginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range records {
			args, err := roomEventArgs(rec)
			if err != nil {
				return err
			}
			batch.Queue(insertRoomEventQ, args...)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert room_events: %w", err)
		}
		return nil
	})
}

// roomEventArgs maps a record onto the room_events columns.
func roomEventArgs(rec history.Record) ([]interface{}, error) {
	detail := rec.Detail
	if detail == nil {
		detail = map[string]interface{}{}
	}
	jsonDetail, err := json.Marshal(detail)
	if err != nil {
		return nil, fmt.Errorf("marshal detail of record %s: %w", rec.ID, err)
	}
	players := make([]int64, len(rec.Players))
	for i, id := range rec.Players {
		players[i] = int64(id)
	}
	return []interface{}{
		rec.ID,
		int64(rec.RoomID),
		string(rec.Kind),
		players,
		jsonDetail,
		time.UnixMilli(rec.Timestamp).UTC(),
	}, nil
}

// beginTxFunc is a helper that starts a transaction using the provided pool,
// calls the function f with the transaction, and commits or rollbacks as needed.
func beginTxFunc(ctx context.Context, pool *pgxpool.Pool, txOptions pgx.TxOptions, f func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx rollback error: %v; original error: %w", rbErr, err)
		}
		return err
	}
	return tx.Commit(ctx)
}
