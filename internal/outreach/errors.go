// Package outreach schedules, gates and dispatches outreach emails and keeps
// contacts moving through their lifecycle.
package outreach

import (
	"errors"

	"smart-outreach-go/internal/templates"
)

var (
	ErrContactNotFound  = errors.New("contact not found")
	ErrMissingRecipient = errors.New("contact has no email address")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrContactClosed    = errors.New("contact has replied or is not interested")
	ErrPendingEmail     = errors.New("contact already has a pending email")
	ErrBlacklisted      = errors.New("email address is blacklisted")
	ErrCompanyName      = errors.New("company name is required")

	ErrTemplateNotFound = templates.ErrTemplateNotFound
)
