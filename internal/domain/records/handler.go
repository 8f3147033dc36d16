package records

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mnh/careline/internal/platform/auth"
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.ClinicalReadRoles...))
	readGroup.GET("/records/:kind/:id", h.GetRecord)
}

func (h *Handler) GetRecord(c echo.Context) error {
	kind, ok := ParseKind(c.Param("kind"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown record kind")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	row, err := h.svc.Get(c.Request().Context(), kind, id)
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": string(kind) + " not found"})
	}
	if err != nil {
		h.logger.Error().Err(err).
			Str("kind", string(kind)).
			Str("id", id.String()).
			Msg("record fetch failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch record"})
	}
	return c.JSON(http.StatusOK, row)
}
