package http

import (
	"net/http"

	"apexpulse/internal/engine/service"
	"apexpulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// JobHandler handles HTTP requests for job outcomes.
type JobHandler struct {
	jobService service.JobService
	logger     *logger.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobService service.JobService, logger *logger.Logger) *JobHandler {
	return &JobHandler{jobService: jobService, logger: logger}
}

// RegisterRoutes registers the job routes to the Echo group.
func (h *JobHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetJobs)
}

// GetJobs godoc
// @Summary Get job outcomes
// @Description Last outcome of every job type of the authenticated tenant
// @Tags jobs
// @Produce  json
// @Security BearerAuth
// @Success 200 {array} dto.SyncJobResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /jobs [get]
func (h *JobHandler) GetJobs(c echo.Context) error {
	jobs, err := h.jobService.GetJobsByOwner(c.Request().Context(), ownerID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, jobs)
}
