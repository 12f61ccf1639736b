// Package lifecycle holds the contact state machine. Every component that
// changes a contact's status goes through it.
package lifecycle

import (
	"errors"
	"fmt"

	"smart-outreach-go/internal/model"
)

// ErrInvalidTransition is returned for a status change the state machine forbids
var ErrInvalidTransition = errors.New("invalid contact transition")

// rank orders the outreach progression; terminal states are not ranked
var rank = map[model.ContactStatus]int{
	model.ContactNew:           0,
	model.ContactContacted:     1,
	model.ContactFollowup1:     2,
	model.ContactFollowup2:     3,
	model.ContactFollowupFinal: 4,
}

// IsTerminal reports whether no further scheduling may happen for the status
func IsTerminal(s model.ContactStatus) bool {
	return s == model.ContactReplied || s == model.ContactNotInterested
}

// IsValid reports whether s is a known contact status
func IsValid(s model.ContactStatus) bool {
	_, ok := rank[s]
	return ok || IsTerminal(s)
}

// StatusForFollowup maps the followup number of a sent email to the status
// the contact moves to.
func StatusForFollowup(n int) model.ContactStatus {
	switch {
	case n <= 0:
		return model.ContactContacted
	case n == 1:
		return model.ContactFollowup1
	case n == 2:
		return model.ContactFollowup2
	default:
		return model.ContactFollowupFinal
	}
}

// CanTransition reports whether a contact may move from one status to another
func CanTransition(from, to model.ContactStatus) bool {
	if !IsValid(from) || !IsValid(to) || from == to {
		return false
	}
	if IsTerminal(from) {
		return false
	}
	if IsTerminal(to) {
		return true
	}
	return rank[to] > rank[from]
}

// Transition validates a status change and returns the new status
func Transition(from, to model.ContactStatus) (model.ContactStatus, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w %s -> %s", ErrInvalidTransition, from, to)
	}
	return to, nil
}

// AfterSend returns the status a contact should hold once the email with the
// given followup number has been sent. changed is false when the contact is
// closed or already further along.
func AfterSend(current model.ContactStatus, followupNumber int) (next model.ContactStatus, changed bool) {
	target := StatusForFollowup(followupNumber)
	if !CanTransition(current, target) {
		return current, false
	}
	return target, true
}
