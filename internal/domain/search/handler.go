package search

import (
	"errors"
	"net/http"

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
	readGroup.GET("/search", h.Search)
}

type validationResponse struct {
	Error  string  `json:"error"`
	Issues []Issue `json:"issues"`
}

func (h *Handler) Search(c echo.Context) error {
	result, err := h.svc.Run(c.Request().Context(), c.QueryParams())

	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, validationResponse{Error: "Validation failed", Issues: ve.Issues})
	case err != nil:
		var qe *QueryExecutionError
		if !errors.As(err, &qe) {
			h.logger.Error().Err(err).
				Str("model", c.QueryParam("model")).
				Msg("search failed")
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Search failed"})
	}
	return c.JSON(http.StatusOK, result)
}
