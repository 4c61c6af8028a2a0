package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetMarketSnapshot godoc
// @Summary      Get the aggregated market snapshot
// @Description  Returns market state, volatility, sector stats, macro indicators, commodity prices, exchange rates, news sentiment, and regulatory events; failed sub-fetches leave their fields empty
// @Tags         market
// @Produce      json
// @Success      200  {object}  domain.MarketSnapshot
// @Failure      503  {object}  map[string]string
// @Router       /api/market/snapshot [get]
func (h *Handler) GetMarketSnapshot(c *gin.Context) {
	if h.marketService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "market service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-market-snapshot")
	defer span.End()

	c.JSON(http.StatusOK, h.marketService.Snapshot(ctx))
}
