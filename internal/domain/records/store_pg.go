package records

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mnh/careline/internal/platform/query"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore reads records through a pgx connection pool.
type PGStore struct {
	pool querier
}

var _ Store = (*PGStore)(nil)

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) FindMany(ctx context.Context, d query.Description, order []query.Order, limit, offset int) ([]Row, error) {
	q := query.Build(d)
	q.OrderBy(order...)

	rows, err := s.pool.Query(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", d.Kind, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", d.Kind, err)
	}

	result := make([]Row, len(maps))
	for i, m := range maps {
		for k, v := range m {
			m[k] = coerceValue(v)
		}
		result[i] = Row(m)
	}
	return result, nil
}

func (s *PGStore) Count(ctx context.Context, d query.Description) (int, error) {
	q := query.Build(d)
	var total int
	if err := s.pool.QueryRow(ctx, q.CountSQL(), q.CountArgs()...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", d.Kind, err)
	}
	return total, nil
}

func (s *PGStore) FindByID(ctx context.Context, kind Kind, id uuid.UUID) (Row, error) {
	rows, err := s.FindMany(ctx, ByID(kind, id), nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &NotFoundError{Kind: kind, ID: id.String()}
	}
	return rows[0], nil
}
