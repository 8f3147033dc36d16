package pagination

import (
	"encoding/json"
	"testing"
)

func TestClampLimit(t *testing.T) {
	tests := []struct {
		limit, max, want int
	}{
		{10, 100, 10},
		{0, 100, 1},
		{-5, 100, 1},
		{500, 100, 100},
		{500, 0, MaxLimit},
		{50, 25, 25},
	}
	for _, tt := range tests {
		if got := ClampLimit(tt.limit, tt.max); got != tt.want {
			t.Errorf("ClampLimit(%d, %d) = %d, want %d", tt.limit, tt.max, got, tt.want)
		}
	}
}

func TestFromPage(t *testing.T) {
	p := FromPage(3, 10)
	if p.Offset != 20 || p.Limit != 10 {
		t.Errorf("expected offset 20 limit 10, got %+v", p)
	}
	if p.Page() != 3 {
		t.Errorf("expected page 3, got %d", p.Page())
	}

	first := FromPage(0, 10)
	if first.Offset != 0 {
		t.Errorf("expected page<1 to clamp to offset 0, got %d", first.Offset)
	}
}

func TestParams_Page_FromRawOffset(t *testing.T) {
	if got := (Params{Limit: 10, Offset: 15}).Page(); got != 2 {
		t.Errorf("expected offset 15 to fall on page 2, got %d", got)
	}
	if got := (Params{}).Page(); got != 1 {
		t.Errorf("expected zero params on page 1, got %d", got)
	}
}

func TestHasNextPrevious(t *testing.T) {
	p := Params{Limit: 10, Offset: 10}
	if !p.HasNext(25) {
		t.Error("expected next page for total 25")
	}
	if p.HasNext(20) {
		t.Error("expected no next page for total 20")
	}
	if !p.HasPrevious() {
		t.Error("expected previous page at offset 10")
	}
	if (Params{Limit: 10}).HasPrevious() {
		t.Error("expected no previous page at offset 0")
	}
}

func TestNewResponse_LastPage(t *testing.T) {
	resp := NewResponse([]string{"a"}, 11, FromPage(2, 10))
	if resp.HasNext {
		t.Error("expected no next page on the last page")
	}
	if !resp.HasPrev {
		t.Error("expected a previous page on page 2")
	}
	first := NewResponse([]string{}, 0, FromPage(1, 10))
	if first.HasNext || first.HasPrev {
		t.Error("expected an empty first page to have neither neighbour")
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, limit, want int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{3, 0, 0},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.limit); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.limit, got, tt.want)
		}
	}
}

func TestNewResponse_JSONShape(t *testing.T) {
	resp := NewResponse([]string{"a", "b"}, 12, FromPage(2, 5))
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	json.Unmarshal(raw, &got)

	for key, want := range map[string]float64{"total": 12, "page": 2, "totalPages": 3, "limit": 5} {
		if got[key] != want {
			t.Errorf("expected %s=%v, got %v", key, want, got[key])
		}
	}
	if got["hasNext"] != true || got["hasPrevious"] != true {
		t.Errorf("expected middle page to have next and previous, got %v/%v", got["hasNext"], got["hasPrevious"])
	}
	if items, ok := got["items"].([]any); !ok || len(items) != 2 {
		t.Errorf("expected 2 items, got %v", got["items"])
	}
}
