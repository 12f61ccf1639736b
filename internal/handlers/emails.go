package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"smart-outreach-go/internal/model"
	"smart-outreach-go/internal/store"
)

// ListEmails returns one page of emails, newest first
func (h *Handlers) ListEmails(c *gin.Context) {
	filter := store.EmailFilter{
		Status: model.EmailStatus(c.Query("status")),
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	if raw := c.Query("contact_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			badRequest(c, "Invalid contact_id")
			return
		}
		filter.ContactID = uint(id)
	}

	emails, total, err := h.store.ListEmails(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if emails == nil {
		emails = []model.Email{}
	}
	c.JSON(http.StatusOK, EmailList{Total: total, Items: emails})
}

// GetEmail returns a single email
func (h *Handlers) GetEmail(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	email, err := h.store.GetEmail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, email)
}
