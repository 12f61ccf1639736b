package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smart-outreach-go/internal/model"
)

// ListBlacklist returns the suppression list
func (h *Handlers) ListBlacklist(c *gin.Context) {
	entries, err := h.store.ListBlacklist(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// AddToBlacklist suppresses an address
func (h *Handlers) AddToBlacklist(c *gin.Context) {
	var req BlacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "A valid email is required")
		return
	}
	if err := h.store.AddToBlacklist(c.Request.Context(), model.NormalizeEmail(req.Email), req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// RemoveFromBlacklist lifts a suppression
func (h *Handlers) RemoveFromBlacklist(c *gin.Context) {
	if err := h.store.RemoveFromBlacklist(c.Request.Context(), model.NormalizeEmail(c.Param("email"))); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
