package http

import (
	"context"
	"net/http"

	"apexpulse/internal/engine/dto"
	"apexpulse/internal/engine/service"
	"apexpulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CronHandler triggers batch runs over HTTP.
type CronHandler struct {
	pipeline service.PipelineService
	logger   *logger.Logger
}

// NewCronHandler creates a new CronHandler.
func NewCronHandler(pipeline service.PipelineService, logger *logger.Logger) *CronHandler {
	return &CronHandler{pipeline: pipeline, logger: logger}
}

// RegisterRoutes registers the cron routes to the Echo group.
func (h *CronHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/daily", h.TriggerDaily)
}

// TriggerDaily godoc
// @Summary Run the daily pipeline for one tenant
// @Description Sync holdings and trades, generate signals and send the daily email for the authenticated tenant.
// @Tags cron
// @Produce  json
// @Security BearerAuth
// @Param   owner_id  query  string  false  "Tenant id (sync token only)"
// @Success 200 {object} dto.RunReport
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /cron/daily [post]
func (h *CronHandler) TriggerDaily(c echo.Context) error {
	owner := ownerID(c)
	// The run outlives a disconnected client so the tenant is never left half processed.
	ctx := context.WithoutCancel(c.Request().Context())

	report, err := h.pipeline.RunDaily(ctx, dto.RunScope{OwnerID: &owner, Trigger: dto.TriggerHTTP})
	if err != nil {
		h.logger.ErrorContext(ctx, "Daily run trigger failed", logger.ErrorField(err))
		return c.JSON(errorStatus(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, report)
}
