// Package recordstest provides an in-memory records.Store that evaluates
// query descriptions the way the SQL renderer would.
package recordstest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mnh/careline/internal/domain/records"
	"github.com/mnh/careline/internal/platform/query"
)

// MemStore holds rows per table. It is safe for concurrent use.
type MemStore struct {
	mu     sync.Mutex
	tables map[string][]records.Row

	// FindErr and CountErr, when set, are returned by the matching call.
	FindErr  error
	CountErr error

	FindCalls  int
	CountCalls int
	// Last holds the most recent descriptions seen by FindMany and Count.
	LastFind  query.Description
	LastCount query.Description
}

func New() *MemStore {
	return &MemStore{tables: make(map[string][]records.Row)}
}

// Add inserts rows for kind. Rows without an id get a random one.
func (m *MemStore) Add(kind records.Kind, rows ...records.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := kind.Schema().Table
	for _, r := range rows {
		if _, ok := r["id"]; !ok {
			r["id"] = uuid.NewString()
		}
		m.tables[table] = append(m.tables[table], r)
	}
}

func (m *MemStore) FindMany(_ context.Context, d query.Description, order []query.Order, limit, offset int) ([]records.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FindCalls++
	m.LastFind = d
	if m.FindErr != nil {
		return nil, m.FindErr
	}

	matched := m.match(d)
	sort.SliceStable(matched, func(i, j int) bool {
		for _, o := range order {
			c := compare(matched[i][o.Column], matched[j][o.Column])
			if c == 0 {
				continue
			}
			if o.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	if offset >= len(matched) {
		return []records.Row{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]records.Row, 0, end-offset)
	for _, r := range matched[offset:end] {
		out = append(out, copyRow(r))
	}
	return out, nil
}

func (m *MemStore) Count(_ context.Context, d query.Description) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CountCalls++
	m.LastCount = d
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	return len(m.match(d)), nil
}

func (m *MemStore) FindByID(_ context.Context, kind records.Kind, id uuid.UUID) (records.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	for _, r := range m.tables[kind.Schema().Table] {
		if fmt.Sprint(r["id"]) == id.String() {
			return copyRow(r), nil
		}
	}
	return nil, &records.NotFoundError{Kind: kind, ID: id.String()}
}

func (m *MemStore) match(d query.Description) []records.Row {
	var out []records.Row
	for _, r := range m.tables[d.Table] {
		ok := true
		for _, p := range d.Predicates {
			if !eval(p, r) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, r)
		}
	}
	return out
}

func eval(p query.Predicate, r records.Row) bool {
	v := r[p.Column]
	switch p.Op {
	case query.OpEquals:
		return v != nil && compare(v, p.Value) == 0
	case query.OpIn:
		s := fmt.Sprint(v)
		for _, want := range p.Values {
			if v != nil && s == want {
				return true
			}
		}
		return false
	case query.OpRange:
		if v == nil {
			return false
		}
		if p.Min != nil && compare(v, p.Min) < 0 {
			return false
		}
		if p.Max != nil && compare(v, p.Max) > 0 {
			return false
		}
		return true
	case query.OpContains:
		s, ok := v.(string)
		needle, _ := p.Value.(string)
		return ok && strings.Contains(strings.ToLower(s), strings.ToLower(needle))
	case query.OpArrayContainsAny:
		for _, have := range toStrings(v) {
			for _, want := range p.Values {
				if have == want {
					return true
				}
			}
		}
		return false
	case query.OpAnyOf:
		for _, sub := range p.Any {
			if eval(sub, r) {
				return true
			}
		}
		return false
	}
	return false
}

func compare(a, b any) int {
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			break
		}
		return x.Compare(y)
	case bool:
		y, ok := b.(bool)
		if !ok {
			break
		}
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case int:
		y, ok := b.(int)
		if !ok {
			break
		}
		return x - y
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, len(t))
		for i, e := range t {
			out[i] = fmt.Sprint(e)
		}
		return out
	}
	return nil
}

func copyRow(r records.Row) records.Row {
	out := make(records.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
