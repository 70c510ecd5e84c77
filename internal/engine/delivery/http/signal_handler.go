package http

import (
	"net/http"

	"apexpulse/internal/engine/service"
	"apexpulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SignalHandler handles HTTP requests for stored swing signals.
type SignalHandler struct {
	signalService service.SignalService
	logger        *logger.Logger
}

// NewSignalHandler creates a new SignalHandler.
func NewSignalHandler(signalService service.SignalService, logger *logger.Logger) *SignalHandler {
	return &SignalHandler{signalService: signalService, logger: logger}
}

// RegisterRoutes registers the signal routes to the Echo group.
func (h *SignalHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetSignals)
}

// GetSignals godoc
// @Summary Get swing signals
// @Description Latest swing signal batch of the authenticated tenant, most confident first
// @Tags signals
// @Produce  json
// @Security BearerAuth
// @Param   owner_id  query  string  false  "Tenant id (sync token only)"
// @Success 200 {array} dto.SwingSignalResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /signals [get]
func (h *SignalHandler) GetSignals(c echo.Context) error {
	signals, err := h.signalService.GetSignalsByOwner(c.Request().Context(), ownerID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, signals)
}
