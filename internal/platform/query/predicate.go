// Package query describes record lookups as a conjunction of typed field
// predicates and renders them to parameterised PostgreSQL.
package query

import (
	"strings"
)

// Op identifies the comparison a Predicate performs.
type Op int

const (
	OpEquals           Op = iota // column = value
	OpIn                         // column IN (values...)
	OpRange                      // min <= column <= max, either bound optional
	OpContains                   // column ILIKE %value%
	OpArrayContainsAny           // array column overlaps values
	OpAnyOf                      // OR of nested predicates
)

func (o Op) String() string {
	switch o {
	case OpEquals:
		return "equals"
	case OpIn:
		return "in"
	case OpRange:
		return "range"
	case OpContains:
		return "contains"
	case OpArrayContainsAny:
		return "array-contains-any"
	case OpAnyOf:
		return "any-of"
	}
	return "unknown"
}

// Predicate is a single condition against one column, or an OR group.
type Predicate struct {
	Op     Op
	Column string
	Value  any
	Values []string
	Min    any
	Max    any
	Any    []Predicate
}

func Equals(column string, value any) Predicate {
	return Predicate{Op: OpEquals, Column: column, Value: value}
}

func In(column string, values []string) Predicate {
	return Predicate{Op: OpIn, Column: column, Values: values}
}

// Range builds an inclusive range. A nil bound leaves that side open.
func Range(column string, min, max any) Predicate {
	return Predicate{Op: OpRange, Column: column, Min: min, Max: max}
}

func Contains(column, value string) Predicate {
	return Predicate{Op: OpContains, Column: column, Value: value}
}

func ArrayContainsAny(column string, values []string) Predicate {
	return Predicate{Op: OpArrayContainsAny, Column: column, Values: values}
}

func AnyOf(preds ...Predicate) Predicate {
	return Predicate{Op: OpAnyOf, Any: preds}
}

// Order is one ORDER BY term.
type Order struct {
	Column     string
	Descending bool
}

// Description is a read against a single table: the columns to return and a
// logical AND of predicates. The same Description drives both the page query
// and the count query.
type Description struct {
	Kind       string
	Table      string
	Columns    []string
	Predicates []Predicate
}

// Redacted renders the predicate structure with every bound value replaced
// by "?". It is safe to return to API callers and to log.
func (d Description) Redacted() string {
	if len(d.Predicates) == 0 {
		return d.Kind + ": <all>"
	}
	placeholder := func(any) string { return "?" }
	parts := make([]string, len(d.Predicates))
	for i, p := range d.Predicates {
		parts[i] = renderPredicate(p, placeholder)
	}
	return d.Kind + ": " + strings.Join(parts, " AND ")
}

// Has reports whether a top-level predicate on column with op exists.
func (d Description) Has(column string, op Op) bool {
	for _, p := range d.Predicates {
		if p.Column == column && p.Op == op {
			return true
		}
	}
	return false
}
