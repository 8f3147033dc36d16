package records

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/mnh/careline/internal/platform/query"
)

// SQLStore reads records through database/sql (lib/pq) for deployments
// that sit behind a statement-mode connection pooler.
type SQLStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLStore)(nil)

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) FindMany(ctx context.Context, d query.Description, order []query.Order, limit, offset int) ([]Row, error) {
	q := query.Build(d)
	q.OrderBy(order...)

	rows, err := s.db.QueryxContext(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", d.Kind, err)
	}
	defer rows.Close()

	arrayCols := make(map[string]bool)
	for _, col := range arrayColumns[d.Table] {
		arrayCols[col] = true
	}

	var result []Row
	for rows.Next() {
		m := make(map[string]any, len(d.Columns))
		if err := rows.MapScan(m); err != nil {
			return nil, fmt.Errorf("scan %s: %w", d.Kind, err)
		}
		for k, v := range m {
			if arrayCols[k] {
				m[k] = scanTextArray(v)
				continue
			}
			m[k] = coerceValue(v)
		}
		result = append(result, Row(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", d.Kind, err)
	}
	return result, nil
}

func (s *SQLStore) Count(ctx context.Context, d query.Description) (int, error) {
	q := query.Build(d)
	var total int
	if err := s.db.QueryRowxContext(ctx, q.CountSQL(), q.CountArgs()...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", d.Kind, err)
	}
	return total, nil
}

func (s *SQLStore) FindByID(ctx context.Context, kind Kind, id uuid.UUID) (Row, error) {
	rows, err := s.FindMany(ctx, ByID(kind, id), nil, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &NotFoundError{Kind: kind, ID: id.String()}
	}
	return rows[0], nil
}

// scanTextArray decodes a PostgreSQL array literal into []any of strings.
func scanTextArray(v any) any {
	if v == nil {
		return nil
	}
	var arr pq.StringArray
	if err := arr.Scan(v); err != nil {
		return coerceValue(v)
	}
	out := make([]any, len(arr))
	for i, s := range arr {
		out[i] = s
	}
	return out
}
