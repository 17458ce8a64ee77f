package domain

import "time"

// InteractionKind classifies audit-trail entries.
type InteractionKind string

const (
	InteractionSystem       InteractionKind = "system"
	InteractionComment      InteractionKind = "comment"
	InteractionStatusChange InteractionKind = "status_change"
	InteractionAssignment   InteractionKind = "assignment"
)

// Interaction is an immutable audit trail entry owned by its ticket.
// UserID is a weak reference: removing the user leaves the entry intact.
type Interaction struct {
	ID        string          `json:"id" cbor:"id"`
	TicketID  string          `json:"ticket_id" cbor:"ticket_id"`
	UserID    string          `json:"user_id" cbor:"user_id"`
	UserName  string          `json:"user_name" cbor:"user_name"`
	Message   string          `json:"message" cbor:"message"`
	Kind      InteractionKind `json:"kind" cbor:"kind"`
	Timestamp time.Time       `json:"timestamp" cbor:"timestamp"`
}
