package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"sketch-guess-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// DrawingArchive is the durable copy of every drawing, stored as JSONB. The
// Redis store is the hot path; this is what survives a cache flush.
type DrawingArchive struct {
	pool *pgxpool.Pool
}

func NewDrawingArchive(pool *pgxpool.Pool) *DrawingArchive {
	return &DrawingArchive{pool: pool}
}

func (a *DrawingArchive) LoadDrawing(ctx context.Context, id string) (domain.Drawing, error) {
	var raw []byte
	err := a.pool.QueryRow(ctx, `SELECT data FROM drawings WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Drawing{}, domain.ErrDrawingNotFound
	}
	if err != nil {
		return domain.Drawing{}, fmt.Errorf("load drawing: %w", err)
	}
	var d domain.Drawing
	if err := json.Unmarshal(raw, &d); err != nil {
		return domain.Drawing{}, fmt.Errorf("unmarshal drawing: %w", err)
	}
	return d, nil
}

func (a *DrawingArchive) StoreDrawing(ctx context.Context, d domain.Drawing) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal drawing: %w", err)
	}
	// drawings are immutable once saved, so a duplicate insert is a no-op
	_, err = a.pool.Exec(ctx,
		`INSERT INTO drawings (id, created_by, created_at, data) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		d.ID, d.CreatedBy, d.CreatedAt, raw)
	if err != nil {
		return fmt.Errorf("store drawing: %w", err)
	}
	return nil
}
