package handler

import (
	"errors"
	"net/http"

	"portfolio-advisor/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// Chat godoc
// @Summary      Converse with the portfolio advisor
// @Description  First turn of a session submits the investor profile and returns the generated portfolio JSON; later turns send a message and return either an updated portfolio or a prose answer
// @Tags         agent
// @Accept       json
// @Produce      json
// @Param        request  body  domain.ChatRequest  true  "Chat turn"
// @Success      200  {object}  domain.ChatResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /agent/chat [post]
func (h *Handler) Chat(c *gin.Context) {
	if h.advisorService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "advisor service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.chat")
	defer span.End()

	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	span.SetAttributes(
		attribute.String("user_id", req.UserID),
		attribute.String("session_id", req.SessionID),
	)

	resp, err := h.advisorService.Chat(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrAgentUnavailable), errors.Is(err, domain.ErrNoStructuredOutput):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}
