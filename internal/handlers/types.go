package handlers

import (
	"time"

	"smart-outreach-go/internal/model"
	"smart-outreach-go/internal/scheduler"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse reports storage and scheduler state
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Database  string           `json:"database"`
	Scheduler scheduler.Status `json:"scheduler"`
}

// CompanyRequest creates a company
type CompanyRequest struct {
	Name         string `json:"name" binding:"required"`
	Website      string `json:"website"`
	Industry     string `json:"industry"`
	Size         string `json:"size"`
	Location     string `json:"location"`
	FundingStage string `json:"funding_stage"`
	Source       string `json:"source"`
	Notes        string `json:"notes"`
	Priority     int    `json:"priority"`
}

// ContactCreated is returned after adding a contact
type ContactCreated struct {
	ID      uint `json:"id"`
	Created bool `json:"created"`
}

// ScheduleRequest picks a template and optional template variables
type ScheduleRequest struct {
	Template  string            `json:"template"`
	Variables map[string]string `json:"variables"`
}

// ScheduleResponse reports the scheduled email or the denial
type ScheduleResponse struct {
	EmailID uint   `json:"email_id,omitempty"`
	Denied  string `json:"denied,omitempty"`
}

// FollowupsResponse lists the follow-up emails created
type FollowupsResponse struct {
	EmailIDs []uint `json:"email_ids"`
}

// NotInterestedRequest optionally blacklists the address
type NotInterestedRequest struct {
	Blacklist bool `json:"blacklist"`
}

// QueueRequest bounds how many new contacts get their initial email
type QueueRequest struct {
	Limit int `json:"limit"`
}

// BlacklistRequest adds an address to the suppression list
type BlacklistRequest struct {
	Email  string `json:"email" binding:"required,email"`
	Reason string `json:"reason"`
}

// EmailList is one page of emails
type EmailList struct {
	Total int64         `json:"total"`
	Items []model.Email `json:"items"`
}

// TemplateInfo describes a built-in template
type TemplateInfo struct {
	Name     string `json:"name"`
	Followup bool   `json:"followup"`
}

// TemplatePreview is a rendered template
type TemplatePreview struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
