package search

import (
	"time"

	"github.com/mnh/careline/internal/domain/records"
	"github.com/mnh/careline/pkg/pagination"
)

// Model is the search target: one record kind, or every kind at once.
type Model string

const ModelGlobal Model = "global"

// Kind returns the record kind for a single-kind model.
func (m Model) Kind() (records.Kind, bool) {
	if m == ModelGlobal {
		return "", false
	}
	k := records.Kind(m)
	return k, k.Valid()
}

// Category names a categorical filter as it appears in the query string.
type Category string

const (
	CategoryGender    Category = "gender"
	CategoryBloodType Category = "bloodType"
	CategoryStatus    Category = "status"
	CategoryType      Category = "type"
	CategoryCategory  Category = "category"
	CategoryTags      Category = "tags"
)

// categoryOrder fixes the order predicates are emitted in.
var categoryOrder = []Category{
	CategoryGender, CategoryBloodType, CategoryStatus,
	CategoryType, CategoryCategory, CategoryTags,
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

type Sort struct {
	Field     string
	Direction SortDirection
}

// DateRange bounds are inclusive. Nil leaves a side open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

type AgeRange struct {
	MinYears *int
	MaxYears *int
}

// Filter is one request's validated search constraints.
type Filter struct {
	Model           Model
	Query           string
	DateRange       DateRange
	Categories      map[Category][]string
	AgeRange        AgeRange
	IncludeInactive bool
	Sort            Sort
	Page            pagination.Params
}
