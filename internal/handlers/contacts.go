package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"smart-outreach-go/internal/model"
	"smart-outreach-go/internal/outreach"
	"smart-outreach-go/internal/store"
	"smart-outreach-go/internal/templates"
)

// ListContacts returns contacts, optionally filtered by status
func (h *Handlers) ListContacts(c *gin.Context) {
	contacts, err := h.store.ListContacts(c.Request.Context(), store.ContactFilter{
		Status: model.ContactStatus(c.Query("status")),
		Limit:  queryInt(c, "limit", 50),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contacts)
}

// CreateContact adds a contact. An existing address is returned with 200.
func (h *Handlers) CreateContact(c *gin.Context) {
	var req outreach.ContactInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	id, created, err := h.manager.AddContact(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, ContactCreated{ID: id, Created: created})
}

// ImportContacts reads a CSV request body
func (h *Handlers) ImportContacts(c *gin.Context) {
	res, err := h.importer.ImportContacts(c.Request.Context(), c.Request.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ExportContacts returns contacts as CSV, optionally filtered by status
func (h *Handlers) ExportContacts(c *gin.Context) {
	var buf bytes.Buffer
	if _, err := h.importer.ExportContacts(c.Request.Context(), &buf, model.ContactStatus(c.Query("status"))); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=contacts.csv")
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// GetContact returns a contact with its email history
func (h *Handlers) GetContact(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	summary, err := h.manager.Summary(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// QueueContacts schedules the initial email for new contacts
func (h *Handlers) QueueContacts(c *gin.Context) {
	req := QueueRequest{Limit: 10}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request body")
		return
	}
	res, err := h.manager.QueueNewContacts(c.Request.Context(), req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ScheduleContact schedules an initial email for one contact
func (h *Handlers) ScheduleContact(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request body")
		return
	}

	kind := h.manager.InitialTemplate()
	if req.Template != "" {
		var err error
		if kind, err = templates.ParseKind(req.Template); err != nil {
			respondError(c, err)
			return
		}
	}

	res, err := h.planner.ScheduleInitial(c.Request.Context(), id, kind, req.Variables)
	if err != nil {
		respondError(c, err)
		return
	}
	if res.Denied != "" {
		c.JSON(http.StatusConflict, ScheduleResponse{Denied: string(res.Denied)})
		return
	}
	c.JSON(http.StatusCreated, ScheduleResponse{EmailID: res.EmailID})
}

// ScheduleFollowups schedules the remaining follow-ups for a contact
func (h *Handlers) ScheduleFollowups(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ids, err := h.planner.ScheduleFollowups(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if ids == nil {
		ids = []uint{}
	}
	c.JSON(http.StatusOK, FollowupsResponse{EmailIDs: ids})
}

// MarkReplied records a reply from the contact
func (h *Handlers) MarkReplied(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.manager.MarkReplied(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkNotInterested closes the contact and optionally blacklists it
func (h *Handlers) MarkNotInterested(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req NotInterestedRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request body")
		return
	}
	if err := h.manager.MarkNotInterested(c.Request.Context(), id, req.Blacklist); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
