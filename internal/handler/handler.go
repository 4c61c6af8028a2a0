package handler

import (
	"net/http"

	"portfolio-advisor/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	tracer         trace.Tracer
	advisorService *service.AdvisorService
	marketService  *service.MarketService
}

func New(
	tracer trace.Tracer,
	advisorService *service.AdvisorService,
	marketService *service.MarketService,
) *Handler {
	return &Handler{
		tracer:         tracer,
		advisorService: advisorService,
		marketService:  marketService,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.POST("/agent/chat", h.Chat)
	r.GET("/api/market/snapshot", h.GetMarketSnapshot)
}

// Health godoc
// @Summary      Liveness probe
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
