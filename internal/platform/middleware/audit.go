package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mnh/careline/internal/platform/auth"
)

// AuditEntry records one read of patient data.
type AuditEntry struct {
	RequestID  string
	UserID     string
	UserRoles  []string
	Facility   string
	Resource   string
	RecordKind string
	RecordID   string
	Action     string
	Method     string
	Path       string
	IPAddress  string
	StatusCode int
	Timestamp  time.Time
}

// AuditRecorder persists audit entries in addition to the log line.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit emits an access_audit event for every /api/v1 request after the
// handler has run, so the status reflects what the caller received.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !strings.HasPrefix(req.URL.Path, "/api/v1/") {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok && !c.Response().Committed {
				status = he.Code
			}
			ctx := req.Context()
			entry := AuditEntry{
				RequestID:  requestID(c),
				UserID:     auth.UserIDFromContext(ctx),
				UserRoles:  auth.RolesFromContext(ctx),
				Facility:   auth.FacilityFromContext(ctx),
				Resource:   resourceFromPath(req.URL.Path),
				Action:     actionFor(req.Method, req.URL.Path),
				Method:     req.Method,
				Path:       req.URL.Path,
				IPAddress:  c.RealIP(),
				StatusCode: status,
				Timestamp:  time.Now().UTC(),
			}
			entry.RecordKind, entry.RecordID = recordTarget(c, entry.Resource)

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "access_audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Str("facility", entry.Facility).
				Str("resource", entry.Resource).
				Str("record_kind", entry.RecordKind).
				Str("record_id", entry.RecordID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("phi_access")

			return err
		}
	}
}

func resourceFromPath(path string) string {
	rest := strings.TrimPrefix(path, "/api/v1/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return "unknown"
	}
	return rest
}

func actionFor(method, path string) string {
	if strings.HasPrefix(path, "/api/v1/search") {
		return "search"
	}
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	}
	return "read"
}

// recordTarget names the record kind touched: the search model for searches,
// the :kind and :id path params for record fetches.
func recordTarget(c echo.Context, resource string) (kind, id string) {
	switch resource {
	case "search":
		kind = c.QueryParam("model")
		if kind == "" {
			kind = "global"
		}
		return kind, ""
	case "records":
		return c.Param("kind"), c.Param("id")
	}
	return "", ""
}
