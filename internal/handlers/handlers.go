package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"smart-outreach-go/internal/lifecycle"
	"smart-outreach-go/internal/outreach"
	"smart-outreach-go/internal/replies"
	"smart-outreach-go/internal/scheduler"
	"smart-outreach-go/internal/store"
	"smart-outreach-go/internal/templates"
)

// Services are the collaborators behind the HTTP API. Replies and Inbox may be
// nil when no mailbox is configured.
type Services struct {
	Store     store.Store
	Manager   *outreach.Manager
	Planner   *outreach.Planner
	Importer  *outreach.Importer
	Replies   *outreach.ReplyTracker
	Inbox     replies.Inbox
	Renderer  *templates.Renderer
	Scheduler *scheduler.Scheduler
}

// Handlers contains all HTTP handlers
type Handlers struct {
	store     store.Store
	manager   *outreach.Manager
	planner   *outreach.Planner
	importer  *outreach.Importer
	replies   *outreach.ReplyTracker
	inbox     replies.Inbox
	renderer  *templates.Renderer
	scheduler *scheduler.Scheduler
}

// NewHandlers creates new HTTP handlers
func NewHandlers(s Services) *Handlers {
	return &Handlers{
		store:     s.Store,
		manager:   s.Manager,
		planner:   s.Planner,
		importer:  s.Importer,
		replies:   s.Replies,
		inbox:     s.Inbox,
		renderer:  s.Renderer,
		scheduler: s.Scheduler,
	}
}

// SetupRoutes registers every route on router
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.HealthCheck)

	api := router.Group("/api/v1")
	{
		companies := api.Group("/companies")
		companies.GET("", h.ListCompanies)
		companies.POST("", h.CreateCompany)
		companies.POST("/import", h.ImportCompanies)

		contacts := api.Group("/contacts")
		contacts.GET("", h.ListContacts)
		contacts.POST("", h.CreateContact)
		contacts.POST("/import", h.ImportContacts)
		contacts.POST("/queue", h.QueueContacts)
		contacts.GET("/export", h.ExportContacts)
		contacts.GET("/:id", h.GetContact)
		contacts.POST("/:id/schedule", h.ScheduleContact)
		contacts.POST("/:id/followups", h.ScheduleFollowups)
		contacts.POST("/:id/replied", h.MarkReplied)
		contacts.POST("/:id/not-interested", h.MarkNotInterested)

		emails := api.Group("/emails")
		emails.GET("", h.ListEmails)
		emails.GET("/:id", h.GetEmail)

		blacklist := api.Group("/blacklist")
		blacklist.GET("", h.ListBlacklist)
		blacklist.POST("", h.AddToBlacklist)
		blacklist.DELETE("/:email", h.RemoveFromBlacklist)

		api.GET("/templates", h.ListTemplates)
		api.GET("/templates/:name/preview", h.PreviewTemplate)
		api.GET("/stats", h.GetStats)

		api.POST("/replies/check", h.CheckReplies)
		api.GET("/inbox", h.ListInbox)
		api.GET("/inbox/:id", h.ReadMessage)
		api.GET("/mailbox/profile", h.MailboxProfile)

		sched := api.Group("/scheduler")
		sched.POST("/start", h.StartScheduler)
		sched.POST("/stop", h.StopScheduler)
		sched.POST("/run", h.RunOnce)
		sched.GET("/status", h.GetSchedulerStatus)
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_id", Message: "Invalid ID", Code: http.StatusBadRequest})
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

// respondError maps domain errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	var code int
	var kind string
	switch {
	case errors.Is(err, outreach.ErrContactNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, replies.ErrMessageNotFound):
		code, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, outreach.ErrMissingRecipient),
		errors.Is(err, outreach.ErrInvalidEmail),
		errors.Is(err, outreach.ErrCompanyName),
		errors.Is(err, outreach.ErrTemplateNotFound),
		errors.Is(err, outreach.ErrEmptyCSV):
		code, kind = http.StatusBadRequest, "validation_error"
	case errors.Is(err, outreach.ErrContactClosed),
		errors.Is(err, outreach.ErrPendingEmail),
		errors.Is(err, outreach.ErrBlacklisted),
		errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, scheduler.ErrBatchInProgress):
		code, kind = http.StatusConflict, "conflict"
	default:
		logrus.Errorf("Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		code, kind = http.StatusInternalServerError, "internal_error"
	}
	c.JSON(code, ErrorResponse{Error: kind, Message: err.Error(), Code: code})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: message, Code: http.StatusBadRequest})
}

func unavailable(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "not_configured", Message: message, Code: http.StatusServiceUnavailable})
}
