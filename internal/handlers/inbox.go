package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smart-outreach-go/internal/outreach"
	"smart-outreach-go/internal/replies"
)

// CheckReplies runs one reply detection pass
func (h *Handlers) CheckReplies(c *gin.Context) {
	if h.replies == nil {
		unavailable(c, "Reply detection is not configured")
		return
	}
	found, err := h.replies.CheckReplies(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if found == nil {
		found = []outreach.DetectedReply{}
	}
	c.JSON(http.StatusOK, found)
}

// ListInbox returns the newest inbox messages, or search matches when q is set
func (h *Handlers) ListInbox(c *gin.Context) {
	if h.inbox == nil {
		unavailable(c, "Inbox is not configured")
		return
	}
	limit := queryInt(c, "limit", 10)
	var (
		messages []replies.Message
		err      error
	)
	if q := c.Query("q"); q != "" {
		messages, err = h.inbox.Search(c.Request.Context(), q, limit)
	} else {
		messages, err = h.inbox.ListInbox(c.Request.Context(), limit)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// ReadMessage returns one inbox message with its body
func (h *Handlers) ReadMessage(c *gin.Context) {
	if h.inbox == nil {
		unavailable(c, "Inbox is not configured")
		return
	}
	msg, err := h.inbox.ReadMessage(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// MailboxProfile returns the connected mailbox account
func (h *Handlers) MailboxProfile(c *gin.Context) {
	if h.inbox == nil {
		unavailable(c, "Inbox is not configured")
		return
	}
	profile, err := h.inbox.Profile(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
