package events

import (
	"time"

	"github.com/spec-kit/request-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketCommentAdded  EventType = "ticket_comment_added"
)

// AllTypes lists every event type in publication order of a ticket's life.
var AllTypes = []EventType{EventTicketCreated, EventTicketAssigned, EventTicketStatusChanged, EventTicketCommentAdded}

// Actor identifies who caused an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Name   string      `json:"name"`
	Role   domain.Role `json:"role"`
}

// ActorFor builds an Actor from a user.
func ActorFor(user *domain.User) Actor {
	if user == nil {
		return Actor{}
	}
	return Actor{UserID: user.ID, Name: user.Name, Role: user.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Category           domain.TicketCategory `json:"category"`
	SolicitationNumber string                `json:"solicitation_number"`
	Priority           domain.TicketPriority `json:"priority"`
	RequesterID        string                `json:"requester_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	PreviousAnalystID *string `json:"previous_analyst_id,omitempty"`
	AnalystID         string  `json:"analyst_id"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	InteractionID string `json:"interaction_id"`
	BodyPreview   string `json:"body_preview"`
}
