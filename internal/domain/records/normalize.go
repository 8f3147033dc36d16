package records

import (
	"encoding/json"
	"strings"
)

// Shape is the canonical representation a legacy field normalizes to.
type Shape int

const (
	ShapeList   Shape = iota // []any, never nil
	ShapeObject              // map[string]any with at least one key, or nil
)

// FieldRule names a column whose stored representation varies between rows.
type FieldRule struct {
	Column string
	Shape  Shape
	// SplitFallback treats an unparseable string as a comma-delimited list.
	SplitFallback bool
}

var legacyFields = map[Kind][]FieldRule{
	KindPatient: {
		{Column: "allergies", Shape: ShapeList, SplitFallback: true},
	},
	KindMedicalRecord: {
		{Column: "symptoms", Shape: ShapeList},
		{Column: "medications", Shape: ShapeList},
		{Column: "lab_results", Shape: ShapeList},
		{Column: "attachments", Shape: ShapeList},
		{Column: "vitals", Shape: ShapeObject},
	},
}

// form is what a stored value currently looks like.
type form int

const (
	formNull form = iota
	formList
	formObject
	formText
	formOther
)

type action func(v any, r FieldRule) any

// decisions maps (target shape, current form) to the single step taken.
// Text is decoded as JSON and the result re-enters the table, so every
// value reaches a terminal passthrough/empty action.
var decisions map[Shape]map[form]action

func init() {
	decisions = map[Shape]map[form]action{
		ShapeList: {
			formNull:   emptyValue,
			formList:   passThrough,
			formObject: wrapInList,
			formText:   decodeText,
			formOther:  emptyValue,
		},
		ShapeObject: {
			formNull:   emptyValue,
			formList:   emptyValue,
			formObject: dropEmptyObject,
			formText:   decodeText,
			formOther:  emptyValue,
		},
	}
}

// Normalize returns a copy of row with every legacy field of kind in its
// canonical shape. Normalize(Normalize(r)) equals Normalize(r).
func Normalize(kind Kind, row Row) Row {
	rules := legacyFields[kind]
	out := make(Row, len(row)+len(rules))
	for k, v := range row {
		out[k] = v
	}
	for _, r := range rules {
		out[r.Column] = NormalizeValue(row[r.Column], r)
	}
	return out
}

// NormalizeValue applies rule r to a single stored value.
func NormalizeValue(v any, r FieldRule) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	return decisions[r.Shape][classify(v)](v, r)
}

func classify(v any) form {
	switch v.(type) {
	case nil:
		return formNull
	case []any, []string:
		return formList
	case map[string]any:
		return formObject
	case string:
		return formText
	}
	return formOther
}

func passThrough(v any, _ FieldRule) any { return v }

func emptyValue(_ any, r FieldRule) any {
	if r.Shape == ShapeList {
		return []any{}
	}
	return nil
}

func wrapInList(v any, _ FieldRule) any { return []any{v} }

func dropEmptyObject(v any, _ FieldRule) any {
	if m, _ := v.(map[string]any); len(m) == 0 {
		return nil
	}
	return v
}

func decodeText(v any, r FieldRule) any {
	s := strings.TrimSpace(v.(string))
	if s == "" {
		return emptyValue(nil, r)
	}
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err == nil {
		if decodedForms[r.Shape][classify(decoded)] {
			return NormalizeValue(decoded, r)
		}
	}
	if r.SplitFallback {
		return splitList(s)
	}
	return emptyValue(nil, r)
}

// decodedForms lists the JSON results that re-enter the table. They match
// the native forms with a non-empty action, so a value stored as JSON text
// normalizes the same as the value itself.
var decodedForms = map[Shape]map[form]bool{
	ShapeList:   {formNull: true, formList: true, formObject: true, formText: true},
	ShapeObject: {formNull: true, formObject: true, formText: true},
}

func splitList(s string) []any {
	out := []any{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
