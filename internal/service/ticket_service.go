package service

import (
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/request-desk/internal/access"
	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/events"
	"github.com/spec-kit/request-desk/internal/store"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

// TicketService exposes ticket creation and every read path. All reads are
// scoped by the caller's access policy.
type TicketService struct {
	store      *store.TicketStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      *store.TicketStore
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketCreateInput describes the ticket creation payload.
type TicketCreateInput struct {
	Category domain.TicketCategory
	Priority domain.TicketPriority
	Fields   map[string]string
}

// TicketFilter holds exact-match filters; nil fields match everything.
type TicketFilter struct {
	Status   *domain.TicketStatus
	Category *domain.TicketCategory
	Priority *domain.TicketPriority
}

// TicketStats counts the caller's visible tickets.
type TicketStats struct {
	Total      int                           `json:"total"`
	ByStatus   map[domain.TicketStatus]int   `json:"by_status"`
	ByCategory map[domain.TicketCategory]int `json:"by_category"`
	ByPriority map[domain.TicketPriority]int `json:"by_priority"`
	Unassigned int                           `json:"unassigned"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{store: deps.Store, dispatcher: deps.Dispatcher, logger: logger}
}

// CreateTicket files a ticket on behalf of actor, who becomes its requester.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := s.store.Create(ctx, store.NewTicket{
		Category:  input.Category,
		Priority:  input.Priority,
		Requester: actor,
		Fields:    input.Fields,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("category", string(ticket.Category)),
		zap.String("actor_id", actor.ID))
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.ActorFor(actor),
		Payload: events.TicketCreatedPayload{
			Category:           ticket.Category,
			SolicitationNumber: ticket.SolicitationNumber,
			Priority:           ticket.Priority,
			RequesterID:        ticket.RequesterID,
		},
	})
	return &ticket, nil
}

// GetTicket returns a ticket the actor can see.
func (s *TicketService) GetTicket(_ context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, ok := s.store.Get(ticketID)
	if !ok {
		return nil, apperrors.NewTicketNotFound(ticketID)
	}
	if !access.CanView(actor, &ticket) {
		return nil, apperrors.NewForbidden("ticket is not visible to you")
	}
	return &ticket, nil
}

// ListVisibleTo yields the tickets actor may see. The sequence is lazy and
// re-reads the store every time it is ranged over.
func (s *TicketService) ListVisibleTo(_ context.Context, actor *domain.User) (iter.Seq[domain.Ticket], error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	policy := access.PolicyFor(actor.Role)
	all := s.store.All()
	return func(yield func(domain.Ticket) bool) {
		for ticket := range all {
			if !policy.CanView(actor, &ticket) {
				continue
			}
			if !yield(ticket) {
				return
			}
		}
	}, nil
}

// Search scopes to the visible set, matches query case-insensitively against
// solicitation number, category, requester name and the serialized fields,
// then applies filter. An empty query matches every visible ticket.
func (s *TicketService) Search(ctx context.Context, actor *domain.User, query string, filter TicketFilter) (iter.Seq[domain.Ticket], error) {
	visible, err := s.ListVisibleTo(ctx, actor)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	return func(yield func(domain.Ticket) bool) {
		for ticket := range visible {
			if !matchesQuery(&ticket, needle) || !filter.matches(&ticket) {
				continue
			}
			if !yield(ticket) {
				return
			}
		}
	}, nil
}

// Stats counts the actor's visible tickets.
func (s *TicketService) Stats(ctx context.Context, actor *domain.User) (*TicketStats, error) {
	visible, err := s.ListVisibleTo(ctx, actor)
	if err != nil {
		return nil, err
	}
	stats := &TicketStats{
		ByStatus:   map[domain.TicketStatus]int{},
		ByCategory: map[domain.TicketCategory]int{},
		ByPriority: map[domain.TicketPriority]int{},
	}
	for ticket := range visible {
		stats.Total++
		stats.ByStatus[ticket.Status]++
		stats.ByCategory[ticket.Category]++
		stats.ByPriority[ticket.Priority]++
		if ticket.Unassigned() {
			stats.Unassigned++
		}
	}
	return stats, nil
}

func matchesQuery(ticket *domain.Ticket, needle string) bool {
	if needle == "" {
		return true
	}
	for _, haystack := range []string{ticket.SolicitationNumber, string(ticket.Category), ticket.RequesterName} {
		if strings.Contains(strings.ToLower(haystack), needle) {
			return true
		}
	}
	var payload bytes.Buffer
	enc := json.NewEncoder(&payload)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ticket.Fields); err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(payload.String()), needle)
}

func (f TicketFilter) matches(ticket *domain.Ticket) bool {
	if f.Status != nil && ticket.Status != *f.Status {
		return false
	}
	if f.Category != nil && ticket.Category != *f.Category {
		return false
	}
	if f.Priority != nil && ticket.Priority != *f.Priority {
		return false
	}
	return true
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = dispatcher.Publish(ctx, event)
}

func stringPreview(body string, max int) string {
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max]) + "..."
}
