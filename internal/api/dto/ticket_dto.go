package dto

import (
	"time"

	"github.com/spec-kit/request-desk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Category domain.TicketCategory `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
	Fields   map[string]string     `json:"fields"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Comment string              `json:"comment"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AnalystID string `json:"analyst_id"`
}

// AddCommentRequest payload.
type AddCommentRequest struct {
	Message string `json:"message"`
}

// TicketSummary is the list representation of a ticket.
type TicketSummary struct {
	ID                 string                `json:"id"`
	Category           domain.TicketCategory `json:"category"`
	SolicitationNumber string                `json:"solicitation_number"`
	Status             domain.TicketStatus   `json:"status"`
	Priority           domain.TicketPriority `json:"priority"`
	RequesterID        string                `json:"requester_id"`
	RequesterName      string                `json:"requester_name"`
	AssignedAnalystID  *string               `json:"assigned_analyst_id"`
	InteractionCount   int                   `json:"interaction_count"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
	LastInteractionAt  time.Time             `json:"last_interaction_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Fields       map[string]string     `json:"fields"`
	Interactions []InteractionResponse `json:"interactions"`
}

// InteractionResponse represents one audit-trail entry.
type InteractionResponse struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	UserName  string                 `json:"user_name"`
	Message   string                 `json:"message"`
	Kind      domain.InteractionKind `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewTicketSummary maps a ticket to its list form.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	var assigned *string
	if !t.Unassigned() {
		id := *t.AssignedAnalystID
		assigned = &id
	}
	return TicketSummary{
		ID:                 t.ID,
		Category:           t.Category,
		SolicitationNumber: t.SolicitationNumber,
		Status:             t.Status,
		Priority:           t.Priority,
		RequesterID:        t.RequesterID,
		RequesterName:      t.RequesterName,
		AssignedAnalystID:  assigned,
		InteractionCount:   len(t.Interactions),
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
		LastInteractionAt:  t.LastInteractionAt,
	}
}

// NewTicketDetail maps a ticket with its fields and interactions.
func NewTicketDetail(t *domain.Ticket) TicketDetailResponse {
	interactions := make([]InteractionResponse, 0, len(t.Interactions))
	for i := range t.Interactions {
		interactions = append(interactions, NewInteractionResponse(&t.Interactions[i]))
	}
	fields := t.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	return TicketDetailResponse{
		TicketSummary: NewTicketSummary(t),
		Fields:        fields,
		Interactions:  interactions,
	}
}

// NewInteractionResponse maps an interaction.
func NewInteractionResponse(in *domain.Interaction) InteractionResponse {
	return InteractionResponse{
		ID:        in.ID,
		UserID:    in.UserID,
		UserName:  in.UserName,
		Message:   in.Message,
		Kind:      in.Kind,
		Timestamp: in.Timestamp,
	}
}
