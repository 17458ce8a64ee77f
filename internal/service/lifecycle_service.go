package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/request-desk/internal/access"
	"github.com/spec-kit/request-desk/internal/auth"
	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/events"
	"github.com/spec-kit/request-desk/internal/repository"
	"github.com/spec-kit/request-desk/internal/store"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

// LifecycleService is the only writer of ticket status, assignee and
// interaction log after creation.
type LifecycleService struct {
	store      *store.TicketStore
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	Store      *store.TicketStore
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		store:      deps.Store,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// SetStatus moves a ticket to newStatus. Every edge is allowed, a no-op
// included, and each call records a status_change interaction. Only analysts
// and admins may change status, whether or not they can see the ticket.
func (s *LifecycleService) SetStatus(ctx context.Context, ticketID string, newStatus domain.TicketStatus, actor *domain.User, comment string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}

	var oldStatus domain.TicketStatus
	ticket, err := s.store.Update(ctx, ticketID, func(m *store.Mutation) error {
		if !auth.HasRole(actor, domain.RoleAnalyst, domain.RoleAdmin) {
			return apperrors.NewForbidden("only analysts and admins may change status")
		}
		oldStatus = m.Ticket().Status
		message := strings.TrimSpace(comment)
		if message == "" {
			message = fmt.Sprintf("status changed from %s to %s", oldStatus, newStatus)
		}
		m.SetStatus(newStatus)
		m.Append(actor, domain.InteractionStatusChange, message)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket status changed",
		zap.String("ticket_id", ticketID),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(newStatus)),
		zap.String("actor_id", actor.ID))
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticketID,
		Actor:    events.ActorFor(actor),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Comment:   strings.TrimSpace(comment),
		},
	})
	return &ticket, nil
}

// Assign hands the ticket to an analyst and records an assignment interaction.
func (s *LifecycleService) Assign(ctx context.Context, ticketID, analystID string, actor *domain.User) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if _, ok := s.store.Get(ticketID); !ok {
		return nil, apperrors.NewTicketNotFound(ticketID)
	}
	if !auth.HasRole(actor, domain.RoleAnalyst, domain.RoleAdmin) {
		return nil, apperrors.NewForbidden("only analysts and admins may assign tickets")
	}
	analyst, err := s.lookupAnalyst(ctx, strings.TrimSpace(analystID))
	if err != nil {
		return nil, err
	}

	var previous *string
	ticket, err := s.store.Update(ctx, ticketID, func(m *store.Mutation) error {
		if current := m.Ticket(); !current.Unassigned() {
			prev := *current.AssignedAnalystID
			previous = &prev
		}
		m.SetAssignee(analyst.ID)
		m.Append(actor, domain.InteractionAssignment, "ticket assigned to "+analyst.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket assigned",
		zap.String("ticket_id", ticketID),
		zap.String("analyst_id", analyst.ID),
		zap.String("actor_id", actor.ID))
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticketID,
		Actor:    events.ActorFor(actor),
		Payload: events.TicketAssignedPayload{
			PreviousAnalystID: previous,
			AnalystID:         analyst.ID,
		},
	})
	return &ticket, nil
}

// AddComment appends a comment from anyone who can see the ticket.
func (s *LifecycleService) AddComment(ctx context.Context, ticketID, message string, actor *domain.User) (*domain.Interaction, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	body := strings.TrimSpace(message)

	var added domain.Interaction
	_, err := s.store.Update(ctx, ticketID, func(m *store.Mutation) error {
		current := m.Ticket()
		if !access.CanView(actor, &current) {
			return apperrors.NewForbidden("ticket is not visible to you")
		}
		if body == "" {
			return apperrors.NewEmptyMessage()
		}
		added = m.Append(actor, domain.InteractionComment, body)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket comment added",
		zap.String("ticket_id", ticketID),
		zap.String("interaction_id", added.ID),
		zap.String("actor_id", actor.ID))
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticketID,
		Actor:    events.ActorFor(actor),
		Payload: events.TicketCommentAddedPayload{
			InteractionID: added.ID,
			BodyPreview:   stringPreview(body, 120),
		},
	})
	return &added, nil
}

func (s *LifecycleService) lookupAnalyst(ctx context.Context, analystID string) (*domain.User, error) {
	if analystID == "" {
		return nil, apperrors.NewAnalystNotFound(analystID)
	}
	user, err := s.users.GetByID(ctx, analystID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewAnalystNotFound(analystID)
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if user.Role != domain.RoleAnalyst {
		return nil, apperrors.NewAnalystNotFound(analystID)
	}
	return user, nil
}
