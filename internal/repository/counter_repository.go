package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CounterRepository hands out monotonically increasing sequence values.
type CounterRepository interface {
	// NextAtLeast increments the named counter and returns the new value,
	// which is never below floor.
	NextAtLeast(ctx context.Context, name string, floor int64) (int64, error)
}

type counterRepository struct {
	pool *pgxpool.Pool
}

// NewCounterRepository returns a Postgres-backed implementation.
func NewCounterRepository(pool *pgxpool.Pool) CounterRepository {
	return &counterRepository{pool: pool}
}

func (r *counterRepository) NextAtLeast(ctx context.Context, name string, floor int64) (int64, error) {
	const query = `
        INSERT INTO counters (name, value) VALUES ($1, GREATEST($2::BIGINT, 1))
        ON CONFLICT (name) DO UPDATE SET value = GREATEST(counters.value + 1, $2::BIGINT)
        RETURNING value`

	var value int64
	if err := r.pool.QueryRow(ctx, query, name, floor).Scan(&value); err != nil {
		return 0, err
	}
	return value, nil
}
