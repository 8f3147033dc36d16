package records

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
)

// Service serves single-record reads.
type Service struct {
	store Store
	md    goldmark.Markdown
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		md:    goldmark.New(),
	}
}

// Get fetches one record and normalizes its legacy fields. Educational
// content additionally carries its markdown body rendered as body_html.
func (s *Service) Get(ctx context.Context, kind Kind, id uuid.UUID) (Row, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
	row, err := s.store.FindByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	row = Normalize(kind, row)

	if kind == KindContent {
		html, err := s.renderMarkdown(row["body"])
		if err != nil {
			return nil, fmt.Errorf("render content %s: %w", id, err)
		}
		row["body_html"] = html
	}
	return row, nil
}

func (s *Service) renderMarkdown(v any) (string, error) {
	body, _ := v.(string)
	if body == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(body), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
