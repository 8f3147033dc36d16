// Package mcp exposes record search and fetch as Model Context Protocol
// tools so assistants can query the same data the REST API serves.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mnh/careline/internal/domain/records"
	"github.com/mnh/careline/internal/domain/search"
)

// NewServer registers the search_records and get_record tools.
func NewServer(searchSvc *search.Service, recordSvc *records.Service, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"Careline",
		version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(
		mcp.NewTool("search_records",
			mcp.WithDescription("Search patients, appointments, medical records and educational content. Returns a page of matching records with the total match count. With model=global (the default) returns up to 5 records of each kind."),
			mcp.WithString("model",
				mcp.Description("Record kind to search"),
				mcp.Enum("patient", "appointment", "medicalRecord", "content", "global"),
			),
			mcp.WithString("query", mcp.Description("Case-insensitive free text matched against names, titles, notes and similar fields")),
			mcp.WithString("startDate", mcp.Description("Inclusive lower date bound (YYYY-MM-DD or RFC3339)")),
			mcp.WithString("endDate", mcp.Description("Inclusive upper date bound (YYYY-MM-DD or RFC3339)")),
			mcp.WithString("gender", mcp.Description("Comma-separated genders, e.g. FEMALE")),
			mcp.WithString("bloodType", mcp.Description("Comma-separated blood types, e.g. O+,A-")),
			mcp.WithString("status", mcp.Description("Comma-separated statuses")),
			mcp.WithString("type", mcp.Description("Comma-separated appointment, record or content types")),
			mcp.WithString("category", mcp.Description("Comma-separated content categories")),
			mcp.WithString("tags", mcp.Description("Comma-separated content tags; matches any")),
			mcp.WithNumber("minAge", mcp.Description("Minimum patient age in whole years")),
			mcp.WithNumber("maxAge", mcp.Description("Maximum patient age in whole years")),
			mcp.WithBoolean("includeInactive", mcp.Description("Include inactive patients and content (default false)")),
			mcp.WithString("sortBy", mcp.Description("Field to sort by, e.g. createdAt, lastName, scheduledAt")),
			mcp.WithString("sortOrder", mcp.Description("asc or desc (default desc)")),
			mcp.WithNumber("page", mcp.Description("1-based page number (default 1)")),
			mcp.WithNumber("limit", mcp.Description("Page size (default 10, max 100)")),
		),
		handleSearch(searchSvc),
	)

	s.AddTool(
		mcp.NewTool("get_record",
			mcp.WithDescription("Fetch one record by kind and id. Legacy list fields are normalized; content includes body_html."),
			mcp.WithString("kind",
				mcp.Required(),
				mcp.Description("patient, appointment, medicalRecord or content"),
			),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Record UUID"),
			),
		),
		handleGetRecord(recordSvc),
	)

	return s
}

// toValues renders tool arguments as the query string the HTTP API takes, so
// both surfaces share one parser.
func toValues(args map[string]any) url.Values {
	values := url.Values{}
	for key, v := range args {
		switch t := v.(type) {
		case string:
			values.Set(key, t)
		case bool:
			values.Set(key, strconv.FormatBool(t))
		case float64:
			values.Set(key, strconv.FormatFloat(t, 'f', -1, 64))
		case []any:
			parts := make([]string, 0, len(t))
			for _, e := range t {
				parts = append(parts, fmt.Sprint(e))
			}
			values.Set(key, strings.Join(parts, ","))
		}
	}
	return values
}

func handleSearch(svc *search.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := svc.Run(ctx, toValues(req.GetArguments()))
		var ve *search.ValidationError
		switch {
		case errors.As(err, &ve):
			data, _ := json.Marshal(ve.Issues)
			return mcp.NewToolResultError("invalid search arguments: " + string(data)), nil
		case err != nil:
			return mcp.NewToolResultError("search failed"), nil
		}

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode search result: %w", err)
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func handleGetRecord(svc *records.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rawKind, err := req.RequireString("kind")
		if err != nil {
			return mcp.NewToolResultError("kind is required"), nil
		}
		kind, ok := records.ParseKind(rawKind)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown record kind %q", rawKind)), nil
		}
		rawID, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return mcp.NewToolResultError("id must be a UUID"), nil
		}

		row, err := svc.Get(ctx, kind, id)
		if errors.Is(err, records.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("%s %s not found", kind, id)), nil
		}
		if err != nil {
			return mcp.NewToolResultError("failed to fetch record"), nil
		}

		data, err := json.MarshalIndent(row, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode record: %w", err)
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}
