package query

import (
	"fmt"
	"strings"
)

// SearchQuery accumulates a WHERE clause and its positional arguments for a
// single table. CountSQL and DataSQL share the exact same clause and args, so
// a page and its total can never disagree on what matches.
type SearchQuery struct {
	table   string
	cols    string
	where   string
	args    []any
	idx     int
	orderBy string
}

// NewSearchQuery creates a new SearchQuery for the given table and columns.
func NewSearchQuery(table, cols string) *SearchQuery {
	return &SearchQuery{
		table: table,
		cols:  cols,
		idx:   1,
	}
}

// Build renders a Description into a SearchQuery.
func Build(d Description) *SearchQuery {
	cols := "*"
	if len(d.Columns) > 0 {
		cols = strings.Join(d.Columns, ", ")
	}
	q := NewSearchQuery(d.Table, cols)
	for _, p := range d.Predicates {
		q.Where(p)
	}
	return q
}

// Where appends a typed predicate.
func (q *SearchQuery) Where(p Predicate) {
	q.where += " AND " + renderPredicate(p, q.bind)
}

func (q *SearchQuery) bind(v any) string {
	q.args = append(q.args, v)
	ph := fmt.Sprintf("$%d", q.idx)
	q.idx++
	return ph
}

// OrderBy sets the ORDER BY terms.
func (q *SearchQuery) OrderBy(orders ...Order) {
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		if o.Descending {
			parts = append(parts, o.Column+" DESC")
		} else {
			parts = append(parts, o.Column+" ASC")
		}
	}
	q.orderBy = strings.Join(parts, ", ")
}

// CountSQL returns the count query SQL.
func (q *SearchQuery) CountSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE 1=1%s", q.table, q.where)
}

// CountArgs returns the arguments for the count query.
func (q *SearchQuery) CountArgs() []any {
	return q.args
}

// DataSQL returns the data query SQL with ORDER BY and LIMIT/OFFSET.
func (q *SearchQuery) DataSQL() string {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1%s", q.cols, q.table, q.where)
	if q.orderBy != "" {
		sql += " ORDER BY " + q.orderBy
	}
	sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", q.idx, q.idx+1)
	return sql
}

// DataArgs returns the arguments for the data query (search args + limit + offset).
func (q *SearchQuery) DataArgs(limit, offset int) []any {
	result := make([]any, len(q.args)+2)
	copy(result, q.args)
	result[len(q.args)] = limit
	result[len(q.args)+1] = offset
	return result
}

func renderPredicate(p Predicate, bind func(any) string) string {
	switch p.Op {
	case OpEquals:
		return fmt.Sprintf("%s = %s", p.Column, bind(p.Value))
	case OpIn:
		if len(p.Values) == 0 {
			return "FALSE"
		}
		return fmt.Sprintf("%s IN (%s)", p.Column, bindAll(p.Values, bind))
	case OpRange:
		var parts []string
		if p.Min != nil {
			parts = append(parts, fmt.Sprintf("%s >= %s", p.Column, bind(p.Min)))
		}
		if p.Max != nil {
			parts = append(parts, fmt.Sprintf("%s <= %s", p.Column, bind(p.Max)))
		}
		switch len(parts) {
		case 0:
			return "TRUE"
		case 1:
			return parts[0]
		}
		return "(" + strings.Join(parts, " AND ") + ")"
	case OpContains:
		v, _ := p.Value.(string)
		return fmt.Sprintf("%s ILIKE %s", p.Column, bind("%"+escapeLike(v)+"%"))
	case OpArrayContainsAny:
		if len(p.Values) == 0 {
			return "FALSE"
		}
		// Elements are bound one by one so the clause works with any driver.
		return fmt.Sprintf("%s && ARRAY[%s]::text[]", p.Column, bindAll(p.Values, bind))
	case OpAnyOf:
		if len(p.Any) == 0 {
			return "FALSE"
		}
		parts := make([]string, len(p.Any))
		for i, sub := range p.Any {
			parts[i] = renderPredicate(sub, bind)
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	}
	return "FALSE"
}

func bindAll(values []string, bind func(any) string) string {
	ph := make([]string, len(values))
	for i, v := range values {
		ph[i] = bind(v)
	}
	return strings.Join(ph, ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
