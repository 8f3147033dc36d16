package search

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mnh/careline/internal/domain/records"
	"github.com/mnh/careline/pkg/pagination"
)

// categoryKeys lists the query keys read for each category. Later keys are
// aliases merged into the same set.
var categoryKeys = map[Category][]string{
	CategoryGender:    {"gender"},
	CategoryBloodType: {"bloodType"},
	CategoryStatus:    {"status"},
	CategoryType:      {"type", "recordType", "appointmentType"},
	CategoryCategory:  {"category"},
	CategoryTags:      {"tags"},
}

// Parser turns decoded query-string values into a Filter.
type Parser struct {
	// MaxLimit caps the page size. Zero means pagination.MaxLimit.
	MaxLimit int
}

type issues []Issue

func (is *issues) add(field, msg string) {
	*is = append(*is, Issue{Field: field, Message: msg})
}

// Parse validates values and builds a Filter. Every problem found is
// reported in a single *ValidationError. Unknown keys are ignored.
func (p Parser) Parse(values url.Values) (Filter, error) {
	var errs issues
	f := Filter{
		Categories: make(map[Category][]string),
		Sort:       Sort{Direction: SortDesc},
	}

	f.Model = parseModel(values.Get("model"), &errs)

	f.Query = strings.TrimSpace(values.Get("query"))
	if f.Query == "" {
		f.Query = strings.TrimSpace(values.Get("q"))
	}

	for _, cat := range categoryOrder {
		var raw []string
		for _, key := range categoryKeys[cat] {
			raw = append(raw, values[key]...)
		}
		norm := strings.TrimSpace
		if cat == CategoryBloodType {
			raw = restoreRhSign(raw)
			norm = func(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
		}
		if set := splitList(raw, norm); len(set) > 0 {
			f.Categories[cat] = set
		}
	}

	f.DateRange.Start = parseDate(values, "startDate", false, &errs)
	f.DateRange.End = parseDate(values, "endDate", true, &errs)
	if s, e := f.DateRange.Start, f.DateRange.End; s != nil && e != nil && s.After(*e) {
		errs.add("startDate", "must not be after endDate")
	}

	f.AgeRange.MinYears = parseNonNegative(values, "minAge", &errs)
	f.AgeRange.MaxYears = parseNonNegative(values, "maxAge", &errs)
	if lo, hi := f.AgeRange.MinYears, f.AgeRange.MaxYears; lo != nil && hi != nil && *lo > *hi {
		errs.add("minAge", "must not exceed maxAge")
	}

	if raw, ok := lookup(values, "includeInactive"); ok {
		switch {
		case strings.EqualFold(raw, "true"):
			f.IncludeInactive = true
		case strings.EqualFold(raw, "false"):
		default:
			errs.add("includeInactive", "must be true or false")
		}
	}

	f.Sort.Field = strings.TrimSpace(values.Get("sortBy"))
	if raw, ok := lookup(values, "sortOrder"); ok {
		switch strings.ToLower(raw) {
		case "asc":
			f.Sort.Direction = SortAsc
		case "desc":
			f.Sort.Direction = SortDesc
		default:
			errs.add("sortOrder", "must be asc or desc")
		}
	}

	f.Page = p.parsePage(values, &errs)

	if len(errs) > 0 {
		return Filter{}, &ValidationError{Issues: errs}
	}
	return f, nil
}

func (p Parser) parsePage(values url.Values, errs *issues) pagination.Params {
	limit := pagination.DefaultLimit
	if n, ok := parseInt(values, "limit", errs); ok {
		limit = pagination.ClampLimit(n, p.MaxLimit)
	}

	if n, ok := parseInt(values, "offset", errs); ok {
		if n < 0 {
			errs.add("offset", "must be >= 0")
			return pagination.Params{Limit: limit}
		}
		return pagination.Params{Limit: limit, Offset: n}
	}

	page := 1
	if n, ok := parseInt(values, "page", errs); ok {
		switch {
		case n < 1:
			errs.add("page", "must be >= 1")
		case n-1 > math.MaxInt/limit:
			errs.add("page", "is too large")
		default:
			page = n
		}
	}
	return pagination.FromPage(page, limit)
}

func parseModel(raw string, errs *issues) Model {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, string(ModelGlobal)) {
		return ModelGlobal
	}
	k, ok := records.ParseKind(raw)
	if !ok {
		errs.add("model", "must be one of patient, appointment, medicalRecord, content, global")
		return ""
	}
	return Model(k)
}

// lookup returns the first non-blank value for key.
func lookup(values url.Values, key string) (string, bool) {
	raw := strings.TrimSpace(values.Get(key))
	return raw, raw != ""
}

func parseInt(values url.Values, key string, errs *issues) (int, bool) {
	raw, ok := lookup(values, key)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 0)
	if err != nil {
		errs.add(key, "must be an integer")
		return 0, false
	}
	return int(n), true
}

func parseNonNegative(values url.Values, key string, errs *issues) *int {
	n, ok := parseInt(values, key, errs)
	if !ok {
		return nil
	}
	if n < 0 {
		errs.add(key, "must be >= 0")
		return nil
	}
	return &n
}

// parseDate accepts YYYY-MM-DD or RFC3339. A date-only end bound is moved to
// the last instant of that day so the range stays inclusive.
func parseDate(values url.Values, key string, endOfDay bool, errs *issues) *time.Time {
	raw, ok := lookup(values, key)
	if !ok {
		return nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		errs.add(key, "must be a date (YYYY-MM-DD) or RFC3339 timestamp")
		return nil
	}
	return &t
}

// splitList flattens repeated keys and comma-delimited values into one
// ordered set of non-empty entries.
func splitList(raw []string, norm func(string) string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			part = norm(part)
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true
			out = append(out, part)
		}
	}
	return out
}

// restoreRhSign puts back a "+" that arrived decoded as a space ("O+" ->
// "O "). Only the last entry of each value is considered: a trailing space
// there cannot be a stray one before a comma.
func restoreRhSign(raw []string) []string {
	out := make([]string, len(raw))
	for i, v := range raw {
		head, last := "", v
		if idx := strings.LastIndex(v, ","); idx >= 0 {
			head, last = v[:idx+1], v[idx+1:]
		}
		group := strings.ToUpper(strings.TrimSpace(last))
		switch group {
		case "A", "B", "AB", "O":
			if strings.HasSuffix(last, " ") {
				last = group + "+"
			}
		}
		out[i] = head + last
	}
	return out
}
