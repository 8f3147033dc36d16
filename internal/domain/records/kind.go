package records

import (
	"strings"
)

// Kind identifies one of the persisted record types the service reads.
type Kind string

const (
	KindPatient       Kind = "patient"
	KindAppointment   Kind = "appointment"
	KindMedicalRecord Kind = "medicalRecord"
	KindContent       Kind = "content"
)

// Kinds lists every record kind in display order.
var Kinds = []Kind{KindPatient, KindAppointment, KindMedicalRecord, KindContent}

// Schema is the table backing a record kind and the columns returned for it.
type Schema struct {
	Table   string
	Columns []string
}

var schemas = map[Kind]Schema{
	KindPatient: {
		Table: "patient",
		Columns: []string{
			"id", "external_id", "first_name", "last_name", "email", "phone",
			"address", "city", "notes", "gender", "blood_type", "date_of_birth",
			"allergies", "is_active", "created_at", "updated_at",
		},
	},
	KindAppointment: {
		Table: "appointment",
		Columns: []string{
			"id", "patient_id", "title", "description", "location", "notes",
			"appointment_type", "status", "scheduled_at", "created_at", "updated_at",
		},
	},
	KindMedicalRecord: {
		Table: "medical_record",
		Columns: []string{
			"id", "patient_id", "title", "description", "diagnosis", "treatment",
			"notes", "record_type", "status", "record_date", "symptoms",
			"medications", "lab_results", "attachments", "vitals",
			"created_at", "updated_at",
		},
	},
	KindContent: {
		Table: "content",
		Columns: []string{
			"id", "title", "summary", "body", "category", "content_type",
			"status", "tags", "is_active", "published_at", "created_at", "updated_at",
		},
	},
}

// arrayColumns lists PostgreSQL array columns per table. database/sql
// drivers return them as array literals that need decoding.
var arrayColumns = map[string][]string{
	"content": {"tags"},
}

// Schema returns the table definition for k. The zero Schema is returned for
// unknown kinds.
func (k Kind) Schema() Schema {
	return schemas[k]
}

// Valid reports whether k is a known record kind.
func (k Kind) Valid() bool {
	_, ok := schemas[k]
	return ok
}

// ParseKind accepts the canonical kind names plus the plural and
// path-style spellings used in REST routes (e.g. "medical-records").
func ParseKind(s string) (Kind, bool) {
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(strings.TrimSpace(s)))
	switch key {
	case "patient", "patients":
		return KindPatient, true
	case "appointment", "appointments":
		return KindAppointment, true
	case "medicalrecord", "medicalrecords":
		return KindMedicalRecord, true
	case "content", "contents":
		return KindContent, true
	}
	return "", false
}
