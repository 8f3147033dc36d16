package search

import (
	"github.com/mnh/careline/internal/domain/records"
	"github.com/mnh/careline/internal/platform/query"
)

// categoricalField binds a filter category to a column and the predicate
// used to test membership.
type categoricalField struct {
	Column string
	Op     query.Op
}

// FieldMap is the static description of how a Filter applies to one record
// kind. Adding a record kind means adding a FieldMap; Compile does not change.
type FieldMap struct {
	TextColumns     []string
	DateColumn      string
	BirthDateColumn string
	ActiveColumn    string
	Categorical     map[Category]categoricalField
	Sortable        map[string]string
	DefaultSort     string
}

func in(column string) categoricalField {
	return categoricalField{Column: column, Op: query.OpIn}
}

var fieldMaps = map[records.Kind]FieldMap{
	records.KindPatient: {
		TextColumns: []string{
			"first_name", "last_name", "external_id", "email",
			"phone", "address", "city", "notes",
		},
		DateColumn:      "created_at",
		BirthDateColumn: "date_of_birth",
		ActiveColumn:    "is_active",
		Categorical: map[Category]categoricalField{
			CategoryGender:    in("gender"),
			CategoryBloodType: in("blood_type"),
		},
		Sortable: map[string]string{
			"createdAt":   "created_at",
			"updatedAt":   "updated_at",
			"firstName":   "first_name",
			"lastName":    "last_name",
			"dateOfBirth": "date_of_birth",
			"externalId":  "external_id",
		},
		DefaultSort: "created_at",
	},
	records.KindAppointment: {
		TextColumns: []string{"title", "description", "location", "notes"},
		DateColumn:  "scheduled_at",
		Categorical: map[Category]categoricalField{
			CategoryStatus: in("status"),
			CategoryType:   in("appointment_type"),
		},
		Sortable: map[string]string{
			"scheduledAt": "scheduled_at",
			"createdAt":   "created_at",
			"updatedAt":   "updated_at",
			"title":       "title",
			"status":      "status",
		},
		DefaultSort: "scheduled_at",
	},
	records.KindMedicalRecord: {
		TextColumns: []string{"title", "description", "diagnosis", "treatment", "notes"},
		DateColumn:  "record_date",
		Categorical: map[Category]categoricalField{
			CategoryStatus: in("status"),
			CategoryType:   in("record_type"),
		},
		Sortable: map[string]string{
			"recordDate": "record_date",
			"createdAt":  "created_at",
			"updatedAt":  "updated_at",
			"title":      "title",
			"status":     "status",
			"recordType": "record_type",
		},
		DefaultSort: "record_date",
	},
	records.KindContent: {
		TextColumns:  []string{"title", "summary", "body", "category"},
		DateColumn:   "published_at",
		ActiveColumn: "is_active",
		Categorical: map[Category]categoricalField{
			CategoryStatus:   in("status"),
			CategoryType:     in("content_type"),
			CategoryCategory: in("category"),
			CategoryTags:     {Column: "tags", Op: query.OpArrayContainsAny},
		},
		Sortable: map[string]string{
			"publishedAt": "published_at",
			"createdAt":   "created_at",
			"updatedAt":   "updated_at",
			"title":       "title",
			"category":    "category",
		},
		DefaultSort: "published_at",
	},
}

// FieldMapFor returns the field map for kind.
func FieldMapFor(kind records.Kind) (FieldMap, bool) {
	fm, ok := fieldMaps[kind]
	return fm, ok
}

// sortColumn resolves a sortBy name, accepting either the API name or the
// column itself. Unknown names fall back to the default.
func (fm FieldMap) sortColumn(name string) string {
	if col, ok := fm.Sortable[name]; ok {
		return col
	}
	for _, col := range fm.Sortable {
		if col == name {
			return col
		}
	}
	return fm.DefaultSort
}
