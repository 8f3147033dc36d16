package search

import (
	"fmt"
	"time"

	"github.com/mnh/careline/internal/domain/records"
	"github.com/mnh/careline/internal/platform/query"
	"github.com/mnh/careline/pkg/pagination"
)

// Plan is a compiled search for one record kind. Desc drives both the page
// query and the count query.
type Plan struct {
	Kind  records.Kind
	Desc  query.Description
	Order []query.Order
	Page  pagination.Params
}

// Compile translates f into a Plan for kind. now anchors the age window and
// is truncated to its UTC calendar day. Categories the kind has no column for
// are ignored.
func Compile(f Filter, kind records.Kind, now time.Time) (Plan, error) {
	fm, ok := fieldMaps[kind]
	if !ok {
		return Plan{}, fmt.Errorf("no field map for record kind %q", kind)
	}
	schema := kind.Schema()

	var preds []query.Predicate

	if f.Query != "" && len(fm.TextColumns) > 0 {
		group := make([]query.Predicate, len(fm.TextColumns))
		for i, col := range fm.TextColumns {
			group[i] = query.Contains(col, f.Query)
		}
		preds = append(preds, query.AnyOf(group...))
	}

	if fm.DateColumn != "" && (f.DateRange.Start != nil || f.DateRange.End != nil) {
		preds = append(preds, query.Range(fm.DateColumn, timeOrNil(f.DateRange.Start), timeOrNil(f.DateRange.End)))
	}

	for _, cat := range categoryOrder {
		values := f.Categories[cat]
		field, ok := fm.Categorical[cat]
		if !ok || len(values) == 0 {
			continue
		}
		preds = append(preds, query.Predicate{Op: field.Op, Column: field.Column, Values: values})
	}

	if fm.BirthDateColumn != "" {
		if p, ok := birthDateWindow(fm.BirthDateColumn, f.AgeRange, now); ok {
			preds = append(preds, p)
		}
	}

	if fm.ActiveColumn != "" && !f.IncludeInactive {
		preds = append(preds, query.Equals(fm.ActiveColumn, true))
	}

	return Plan{
		Kind: kind,
		Desc: query.Description{
			Kind:       string(kind),
			Table:      schema.Table,
			Columns:    schema.Columns,
			Predicates: preds,
		},
		Order: orderFor(fm, f.Sort),
		Page:  f.Page,
	}, nil
}

// birthDateWindow converts an age range in whole years into birth dates.
// A minimum age bounds the latest birth date; a maximum age bounds the
// earliest.
func birthDateWindow(column string, ages AgeRange, now time.Time) (query.Predicate, bool) {
	if ages.MinYears == nil && ages.MaxYears == nil {
		return query.Predicate{}, false
	}
	u := now.UTC()
	today := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)

	var earliest, latest any
	if ages.MaxYears != nil {
		earliest = today.AddDate(-*ages.MaxYears, 0, 0)
	}
	if ages.MinYears != nil {
		latest = today.AddDate(-*ages.MinYears, 0, 0)
	}
	return query.Range(column, earliest, latest), true
}

// orderFor always ends with id so equal sort keys paginate stably.
func orderFor(fm FieldMap, s Sort) []query.Order {
	col := fm.sortColumn(s.Field)
	orders := []query.Order{{Column: col, Descending: s.Direction != SortAsc}}
	if col != "id" {
		orders = append(orders, query.Order{Column: "id"})
	}
	return orders
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
