package http

import (
	"net/http"

	"apexpulse/internal/engine/dto"
	"apexpulse/internal/engine/service"
	"apexpulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PriceHandler handles price lookups.
type PriceHandler struct {
	priceService service.PriceService
	logger       *logger.Logger
}

// NewPriceHandler creates a new PriceHandler.
func NewPriceHandler(priceService service.PriceService, logger *logger.Logger) *PriceHandler {
	return &PriceHandler{priceService: priceService, logger: logger}
}

// RegisterRoutes registers the price routes to the Echo group.
func (h *PriceHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetPrices)
	g.GET("/live", h.GetLivePrices)
}

// GetPrices godoc
// @Summary Get USD prices
// @Description Resolve USD prices for the given symbols, or for the tenant's holdings and purchases when none are given.
// @Tags prices
// @Produce  json
// @Security BearerAuth
// @Param   symbols  query  string  false  "Comma separated symbols, at most 50"
// @Success 200 {object} dto.PricesResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /prices [get]
func (h *PriceHandler) GetPrices(c echo.Context) error {
	var req dto.PricesRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request payload"})
	}
	req.Symbols = splitSymbols(req.Symbols)
	if err := validateRequest(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()
	resp, err := h.priceService.Prices(ctx, ownerID(c), req.Symbols)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to resolve prices", logger.ErrorField(err))
		return c.JSON(errorStatus(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}

// GetLivePrices godoc
// @Summary Get live prices
// @Description Latest prices from the exchange mini-ticker stream, or the last daily snapshot when streaming is disabled.
// @Tags prices
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} dto.LivePricesResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /prices/live [get]
func (h *PriceHandler) GetLivePrices(c echo.Context) error {
	return c.JSON(http.StatusOK, h.priceService.Live(c.Request().Context()))
}
