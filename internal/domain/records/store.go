package records

import (
	"context"

	"github.com/google/uuid"

	"github.com/mnh/careline/internal/platform/query"
)

// Row is one record as returned by the store, keyed by column name.
type Row map[string]any

// Store is the read-only view of the relational store used by search and
// record fetch. Implementations must apply the Description's predicates
// identically in FindMany and Count.
type Store interface {
	FindMany(ctx context.Context, d query.Description, order []query.Order, limit, offset int) ([]Row, error)
	Count(ctx context.Context, d query.Description) (int, error)
	FindByID(ctx context.Context, kind Kind, id uuid.UUID) (Row, error)
}

// ByID describes the single-row lookup for kind and id.
func ByID(kind Kind, id uuid.UUID) query.Description {
	s := kind.Schema()
	return query.Description{
		Kind:       string(kind),
		Table:      s.Table,
		Columns:    s.Columns,
		Predicates: []query.Predicate{query.Equals("id", id.String())},
	}
}

// coerceValue maps driver-specific scan results onto JSON-friendly values.
func coerceValue(v any) any {
	switch t := v.(type) {
	case [16]byte:
		return uuid.UUID(t).String()
	case []byte:
		return string(t)
	}
	return v
}
