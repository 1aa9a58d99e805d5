// Package dispatch implements the action state machine (C6) and the action
// executor (C7): the pure function that computes the actions legal for a
// dispatcher on a section, and the atomic procedure that applies one.
package dispatch

import "github.com/tonimelisma/raildispatch/internal/domain"

// Action is the closed set of actions a dispatcher may request. There is
// deliberately no Running action — Running is implicit in Depart.
type Action int

// Action values.
const (
	Request Action = iota
	Accept
	Reject
	Revoke
	Depart
	Pass
	Arrive
	Clear
	Manned
	Canceled
	Aborted
	UndoTrainState
)

// String renders the action for logging and UI labels.
func (a Action) String() string {
	switch a {
	case Request:
		return "Request"
	case Accept:
		return "Accept"
	case Reject:
		return "Reject"
	case Revoke:
		return "Revoke"
	case Depart:
		return "Depart"
	case Pass:
		return "Pass"
	case Arrive:
		return "Arrive"
	case Clear:
		return "Clear"
	case Manned:
		return "Manned"
	case Canceled:
		return "Canceled"
	case Aborted:
		return "Aborted"
	case UndoTrainState:
		return "UndoTrainState"
	default:
		return "Unknown"
	}
}

// ActionContext is one entry in the legal-action list returned for a
// (section, dispatcher) pair: an action plus, for Pass, the signal place the
// caller must name as its target.
type ActionContext struct {
	Action     Action
	SectionID  domain.ID
	PassTarget domain.ID // populated only for Pass

	// Label is a display label suitable for a UI or automation client,
	// shared by every client so none can assume extra knowledge.
	Label string
}
