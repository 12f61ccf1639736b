package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StartScheduler starts the dispatch scheduler
func (h *Handlers) StartScheduler(c *gin.Context) {
	if err := h.scheduler.Start(); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "scheduler_error", Message: err.Error(), Code: http.StatusConflict})
		return
	}
	c.JSON(http.StatusOK, h.scheduler.Status())
}

// StopScheduler stops the dispatch scheduler
func (h *Handlers) StopScheduler(c *gin.Context) {
	if err := h.scheduler.Stop(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.scheduler.Status())
}

// RunOnce starts one dispatch batch in the background, ignoring the window
func (h *Handlers) RunOnce(c *gin.Context) {
	if err := h.scheduler.Trigger(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

// GetSchedulerStatus returns scheduler status
func (h *Handlers) GetSchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduler.Status())
}
