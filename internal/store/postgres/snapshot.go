// Package postgres persists board snapshots.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkboard/inkboard/internal/shape"
	"github.com/inkboard/inkboard/internal/typeid"
)

var ErrNoSnapshot = errors.New("postgres: no snapshot")

const schema = `
CREATE TABLE IF NOT EXISTS board_snapshots (
	id         TEXT PRIMARY KEY,
	board_id   TEXT        NOT NULL,
	version    BIGINT      NOT NULL,
	shapes     JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (board_id, version)
)`

// Snapshot is one saved version of a board.
type Snapshot struct {
	ID        string        `json:"id"`
	BoardID   string        `json:"boardId"`
	Version   int64         `json:"version"`
	Shapes    []shape.Shape `json:"-"`
	CreatedAt time.Time     `json:"createdAt"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	type alias Snapshot
	return json.Marshal(struct {
		alias
		Shapes []shape.Record `json:"shapes"`
	}{alias(s), shape.Records(s.Shapes)})
}

type SnapshotRepo struct {
	pool *pgxpool.Pool
}

// Open connects, pings and ensures the schema exists.
func Open(ctx context.Context, dsn string, maxConns int32) (*SnapshotRepo, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.Open: parse config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.Open: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.Open: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.Open: migrate: %w", err)
	}

	return NewSnapshotRepo(pool), nil
}

func NewSnapshotRepo(pool *pgxpool.Pool) *SnapshotRepo {
	return &SnapshotRepo{pool: pool}
}

func (r *SnapshotRepo) Close() {
	r.pool.Close()
}

// Latest returns the highest version saved for a board.
func (r *SnapshotRepo) Latest(ctx context.Context, boardID string) (Snapshot, error) {
	var (
		snap Snapshot
		raw  []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, board_id, version, shapes, created_at
		 FROM board_snapshots WHERE board_id = $1
		 ORDER BY version DESC LIMIT 1`,
		boardID,
	).Scan(&snap.ID, &snap.BoardID, &snap.Version, &raw, &snap.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("snapshotRepo.Latest %s: %w", boardID, ErrNoSnapshot)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshotRepo.Latest: %w", err)
	}

	snap.Shapes, err = decodeShapes(raw)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshotRepo.Latest: %w", err)
	}
	return snap, nil
}

// Save writes the next version of a board.
func (r *SnapshotRepo) Save(ctx context.Context, boardID string, shapes []shape.Shape) (Snapshot, error) {
	raw, err := encodeShapes(shapes)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshotRepo.Save: %w", err)
	}

	snap := Snapshot{ID: typeid.NewSnapshotID(), BoardID: boardID, Shapes: shapes}
	err = r.pool.QueryRow(ctx,
		`INSERT INTO board_snapshots (id, board_id, version, shapes)
		 VALUES ($1, $2, COALESCE((SELECT MAX(version) FROM board_snapshots WHERE board_id = $2), 0) + 1, $3)
		 RETURNING version, created_at`,
		snap.ID, boardID, raw,
	).Scan(&snap.Version, &snap.CreatedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshotRepo.Save: %w", err)
	}
	return snap, nil
}

func encodeShapes(shapes []shape.Shape) ([]byte, error) {
	data, err := json.Marshal(shape.Records(shapes))
	if err != nil {
		return nil, fmt.Errorf("marshal shapes: %w", err)
	}
	return data, nil
}

func decodeShapes(raw []byte) ([]shape.Shape, error) {
	var records []shape.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("unmarshal shapes: %w", err)
	}
	return shape.Unwrap(records), nil
}
