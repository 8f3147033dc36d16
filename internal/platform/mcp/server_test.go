package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnh/careline/internal/domain/records"
	"github.com/mnh/careline/internal/domain/records/recordstest"
	"github.com/mnh/careline/internal/domain/search"
)

func callTool(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return res, text.Text
}

func TestToValues(t *testing.T) {
	v := toValues(map[string]any{
		"model":           "patient",
		"minAge":          float64(30),
		"includeInactive": true,
		"tags":            []any{"nutrition", "sleep"},
		"ignored":         map[string]any{"x": 1},
	})

	assert.Equal(t, "patient", v.Get("model"))
	assert.Equal(t, "30", v.Get("minAge"))
	assert.Equal(t, "true", v.Get("includeInactive"))
	assert.Equal(t, "nutrition,sleep", v.Get("tags"))
	assert.Empty(t, v.Get("ignored"))
}

func TestSearchRecords(t *testing.T) {
	store := recordstest.New()
	store.Add(records.KindPatient,
		records.Row{"first_name": "Ngozi", "gender": "FEMALE", "is_active": true},
		records.Row{"first_name": "Chidi", "gender": "MALE", "is_active": true},
	)
	h := handleSearch(search.NewService(store))

	res, text := callTool(t, h, map[string]any{"model": "patient", "gender": "FEMALE", "limit": float64(5)})
	assert.False(t, res.IsError)

	var body struct {
		Items []map[string]any `json:"items"`
		Total int              `json:"total"`
		Limit int              `json:"limit"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &body))
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, 5, body.Limit)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Ngozi", body.Items[0]["first_name"])
}

func TestSearchRecords_ValidationIssues(t *testing.T) {
	h := handleSearch(search.NewService(recordstest.New()))

	res, text := callTool(t, h, map[string]any{"model": "patient", "minAge": float64(12.5)})
	assert.True(t, res.IsError)
	assert.Contains(t, text, `"field":"minAge"`)
}

func TestSearchRecords_StoreFailureIsOpaque(t *testing.T) {
	store := recordstest.New()
	store.CountErr = assert.AnError
	h := handleSearch(search.NewService(store))

	res, text := callTool(t, h, map[string]any{"model": "content"})
	assert.True(t, res.IsError)
	assert.Equal(t, "search failed", text)
}

func TestGetRecord(t *testing.T) {
	store := recordstest.New()
	id := uuid.New()
	store.Add(records.KindMedicalRecord, records.Row{"id": id.String(), "medications": "[\"Folic acid\"]"})
	h := handleGetRecord(records.NewService(store))

	res, text := callTool(t, h, map[string]any{"kind": "medical-records", "id": id.String()})
	assert.False(t, res.IsError)
	assert.Contains(t, text, "Folic acid")

	res, text = callTool(t, h, map[string]any{"kind": "patient", "id": uuid.NewString()})
	assert.True(t, res.IsError)
	assert.True(t, strings.HasSuffix(text, "not found"))

	res, _ = callTool(t, h, map[string]any{"kind": "invoice", "id": id.String()})
	assert.True(t, res.IsError)

	res, _ = callTool(t, h, map[string]any{"kind": "patient", "id": "42"})
	assert.True(t, res.IsError)

	res, _ = callTool(t, h, map[string]any{"id": id.String()})
	assert.True(t, res.IsError)
}

func TestNewServer_RegistersTools(t *testing.T) {
	store := recordstest.New()
	s := NewServer(search.NewService(store), records.NewService(store), "test")
	require.NotNil(t, s)
}
