package domain

import (
	"slices"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved:
		return true
	}
	return false
}

// TicketPriority enumerates request urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// TicketCategory is the closed set of request kinds.
type TicketCategory string

const (
	CategoryPADE                         TicketCategory = "PADE"
	CategoryMETA                         TicketCategory = "META"
	CategoryExceptionPortfolioAssignment TicketCategory = "EXCEPTION_PORTFOLIO_ASSIGNMENT"
)

// Ticket is the aggregate for service requests. It exclusively owns its interactions.
type Ticket struct {
	ID                 string            `json:"id" cbor:"id"`
	Category           TicketCategory    `json:"category" cbor:"category"`
	SolicitationNumber string            `json:"solicitation_number" cbor:"solicitation_number"`
	Status             TicketStatus      `json:"status" cbor:"status"`
	Priority           TicketPriority    `json:"priority" cbor:"priority"`
	RequesterID        string            `json:"requester_id" cbor:"requester_id"`
	RequesterName      string            `json:"requester_name" cbor:"requester_name"`
	AssignedAnalystID  *string           `json:"assigned_analyst_id,omitempty" cbor:"assigned_analyst_id,omitempty"`
	CreatedAt          time.Time         `json:"created_at" cbor:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at" cbor:"updated_at"`
	LastInteractionAt  time.Time         `json:"last_interaction_at" cbor:"last_interaction_at"`
	Fields             map[string]string `json:"fields" cbor:"fields"`
	Interactions       []Interaction     `json:"interactions" cbor:"interactions"`
}

// Clone returns a deep copy so callers never share the store's backing arrays.
func (t Ticket) Clone() Ticket {
	out := t
	if t.AssignedAnalystID != nil {
		id := *t.AssignedAnalystID
		out.AssignedAnalystID = &id
	}
	if t.Fields != nil {
		out.Fields = make(map[string]string, len(t.Fields))
		for k, v := range t.Fields {
			out.Fields[k] = v
		}
	}
	out.Interactions = slices.Clone(t.Interactions)
	return out
}

// IsAssignedTo reports whether the ticket is assigned to the given analyst.
func (t Ticket) IsAssignedTo(userID string) bool {
	return t.AssignedAnalystID != nil && *t.AssignedAnalystID == userID
}

// Unassigned reports whether the ticket sits in the shared analyst pool.
func (t Ticket) Unassigned() bool {
	return t.AssignedAnalystID == nil || *t.AssignedAnalystID == ""
}
