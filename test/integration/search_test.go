//go:build integration

package integration

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnh/careline/internal/domain/records"
	"github.com/mnh/careline/internal/domain/search"
	"github.com/mnh/careline/internal/platform/db"
	"github.com/mnh/careline/pkg/pagination"
)

// stores returns both store implementations over the seeded database.
func stores(t *testing.T) map[string]records.Store {
	t.Helper()
	sqlxDB, err := db.OpenSQL(context.Background(), connStr, 4, 1)
	require.NoError(t, err)
	t.Cleanup(func() { sqlxDB.Close() })

	return map[string]records.Store{
		"pgx": records.NewPGStore(pool),
		"sql": records.NewSQLStore(sqlxDB),
	}
}

func fixedNow() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

func runSearch(t *testing.T, store records.Store, values url.Values) *pagination.Response {
	t.Helper()
	svc := search.NewService(store, search.WithClock(fixedNow))
	out, err := svc.Run(context.Background(), values)
	require.NoError(t, err)
	resp, ok := out.(*pagination.Response)
	require.True(t, ok, "expected *pagination.Response, got %T", out)
	return resp
}

func ids(t *testing.T, resp *pagination.Response) []string {
	t.Helper()
	rows, ok := resp.Items.([]records.Row)
	require.True(t, ok, "unexpected items type %T", resp.Items)
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r["id"].(string))
	}
	return out
}

func TestPatientSearch(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			resp := runSearch(t, store, url.Values{"model": {"patient"}, "query": {"okafor"}})
			assert.Equal(t, 1, resp.Total, "inactive patient excluded by default")
			assert.Equal(t, []string{adaID}, ids(t, resp))

			resp = runSearch(t, store, url.Values{
				"model":           {"patient"},
				"bloodType":       {"O+"},
				"includeInactive": {"true"},
				"sortBy":          {"createdAt"},
				"sortOrder":       {"asc"},
			})
			assert.Equal(t, []string{adaID, chiomaID}, ids(t, resp))

			resp = runSearch(t, store, url.Values{"model": {"patient"}, "minAge": {"35"}})
			assert.Equal(t, []string{bimpeID}, ids(t, resp))
		})
	}
}

func TestPaginationKeepsTotal(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var seen []string
			for page := 1; page <= 3; page++ {
				resp := runSearch(t, store, url.Values{
					"model": {"appointment"},
					"limit": {"1"},
					"page":  {strconv.Itoa(page)},
				})
				assert.Equal(t, 3, resp.Total)
				seen = append(seen, ids(t, resp)...)
			}
			assert.Len(t, seen, 3)
			assert.ElementsMatch(t, seen, uniq(seen))
		})
	}
}

func TestContentTagsAndDates(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			resp := runSearch(t, store, url.Values{"model": {"content"}, "tags": {"diabetes,twins"}})
			assert.Equal(t, []string{articleID}, ids(t, resp))

			resp = runSearch(t, store, url.Values{
				"model":     {"content"},
				"startDate": {"2024-04-10"},
				"endDate":   {"2024-04-30"},
			})
			assert.Equal(t, 1, resp.Total)
		})
	}
}

func TestGlobalSearch(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			svc := search.NewService(store, search.WithClock(fixedNow))
			out, err := svc.Run(context.Background(), url.Values{"q": {"diabetes"}})
			require.NoError(t, err)

			global, ok := out.(*search.GlobalResult)
			require.True(t, ok)
			assert.Len(t, global.MedicalRecords, 1)
			assert.Len(t, global.Content, 1)
			assert.Empty(t, global.Patients)
			assert.Equal(t, 2, global.Total)
		})
	}
}

func TestGetRecordNormalizesLegacyFields(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			svc := records.NewService(store)

			row, err := svc.Get(context.Background(), records.KindMedicalRecord, uuid.MustParse(recordID))
			require.NoError(t, err)
			assert.Equal(t, []any{"Metformin", "Folic acid"}, row["medications"])

			row, err = svc.Get(context.Background(), records.KindContent, uuid.MustParse(articleID))
			require.NoError(t, err)
			assert.Contains(t, row["body_html"], "<strong>regular</strong>")

			_, err = svc.Get(context.Background(), records.KindPatient, uuid.New())
			assert.ErrorIs(t, err, records.ErrNotFound)
		})
	}
}

func uniq(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
