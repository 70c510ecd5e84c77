package http

import (
	"net/http"

	"apexpulse/internal/engine/dto"
	"apexpulse/internal/engine/service"
	"apexpulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SyncHandler handles exchange sync requests.
type SyncHandler struct {
	reconciler service.ReconcilerService
	logger     *logger.Logger
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(reconciler service.ReconcilerService, logger *logger.Logger) *SyncHandler {
	return &SyncHandler{reconciler: reconciler, logger: logger}
}

// RegisterRoutes registers the sync routes to the Echo group.
func (h *SyncHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/exchange", h.SyncHoldings)
	g.POST("/exchange/trades", h.SyncTrades)
}

// SyncHoldings godoc
// @Summary Sync holdings from the exchange
// @Description Reconcile the tenant's exchange balances into holdings. Balances below the minimum USD value are skipped with a reason.
// @Tags sync
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   owner_id  query  string                   false  "Tenant id (sync token only)"
// @Param   request   body   dto.SyncHoldingsRequest  false  "Sync options"
// @Success 200 {object} dto.SyncHoldingsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /sync/exchange [post]
func (h *SyncHandler) SyncHoldings(c echo.Context) error {
	var req dto.SyncHoldingsRequest
	if c.Request().ContentLength != 0 {
		if err := bindRequest(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
	}

	ctx := c.Request().Context()
	result, err := h.reconciler.SyncHoldingsForOwner(ctx, ownerID(c), req.MinValueUSD)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to sync holdings", logger.ErrorField(err))
		return c.JSON(errorStatus(err), echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, dto.SyncHoldingsResponse{
		Holdings:       result.Accepted,
		Synced:         result.SyncedCount,
		Skipped:        result.SkippedCount,
		SkippedDetails: result.Skipped,
	})
}

// SyncTrades godoc
// @Summary Import exchange trades
// @Description Import buy fills for every held asset. Re-importing a fill is a no-op.
// @Tags sync
// @Produce  json
// @Security BearerAuth
// @Param   owner_id  query  string  false  "Tenant id (sync token only)"
// @Success 200 {object} dto.SyncTradesResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /sync/exchange/trades [post]
func (h *SyncHandler) SyncTrades(c echo.Context) error {
	ctx := c.Request().Context()
	result, err := h.reconciler.SyncTradesForOwner(ctx, ownerID(c))
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to sync trades", logger.ErrorField(err))
		return c.JSON(errorStatus(err), echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, dto.SyncTradesResponse{
		Created: result.Created,
		Total:   result.Total,
		Fetched: result.Fetched,
		Ignored: result.Ignored,
		Failed:  result.Failed,
	})
}
