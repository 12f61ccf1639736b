package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetStats returns pipeline counts and the reply rate
func (h *Handlers) GetStats(c *gin.Context) {
	stats, err := h.manager.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
