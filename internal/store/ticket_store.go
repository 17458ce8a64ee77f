// Package store owns the process-wide ticket collection. Tickets are
// copy-on-write: every committed change replaces the stored value, so readers
// never observe a partially applied mutation.
package store

import (
	"context"
	"fmt"
	"iter"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/repository"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

const (
	creationMessage          = "ticket created"
	maxSolicitationAttempts  = 8
	solicitationNumberPrefix = "SOL-"
)

// FieldValidator checks and normalizes category fields at creation.
type FieldValidator interface {
	Validate(category domain.TicketCategory, fields map[string]string) (map[string]string, error)
}

// Options overrides the store's sources of time and identity.
type Options struct {
	Now                func() time.Time
	NewID              func() string
	SolicitationNumber func(now time.Time) string
	Logger             *zap.Logger
}

// TicketStore holds every ticket and persists each change before committing it.
type TicketStore struct {
	mu        sync.RWMutex
	order     []string
	tickets   map[string]*domain.Ticket
	numbers   map[string]struct{}
	repo      repository.TicketRepository
	validator FieldValidator

	now          func() time.Time
	newID        func() string
	solicitation func(time.Time) string
	logger       *zap.Logger
}

// NewTicketStore hydrates the store from repo.
func NewTicketStore(ctx context.Context, repo repository.TicketRepository, validator FieldValidator, opts Options) (*TicketStore, error) {
	s := &TicketStore{
		tickets:      make(map[string]*domain.Ticket),
		numbers:      make(map[string]struct{}),
		repo:         repo,
		validator:    validator,
		now:          opts.Now,
		newID:        opts.NewID,
		solicitation: opts.SolicitationNumber,
		logger:       opts.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.solicitation == nil {
		s.solicitation = GenerateSolicitationNumber
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	loaded, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tickets: %w", err)
	}
	for i := range loaded {
		t := loaded[i].Clone()
		if _, dup := s.tickets[t.ID]; dup {
			return nil, fmt.Errorf("load tickets: duplicate ticket id %q", t.ID)
		}
		if len(t.Interactions) == 0 {
			return nil, fmt.Errorf("load tickets: ticket %q has no interactions", t.ID)
		}
		s.tickets[t.ID] = &t
		s.numbers[t.SolicitationNumber] = struct{}{}
		s.order = append(s.order, t.ID)
	}
	s.logger.Info("ticket store loaded", zap.Int("tickets", len(s.order)))
	return s, nil
}

// GenerateSolicitationNumber derives a number from the clock: the last six
// digits of the millisecond timestamp followed by three random digits.
func GenerateSolicitationNumber(now time.Time) string {
	millis := strconv.FormatInt(now.UnixMilli(), 10)
	if len(millis) > 6 {
		millis = millis[len(millis)-6:]
	}
	return fmt.Sprintf("%s%s%03d", solicitationNumberPrefix, millis, rand.IntN(1000))
}

// timestamp is the store clock in UTC at microsecond precision, the finest
// resolution every persistence backend keeps.
func (s *TicketStore) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// NewTicket is the creation payload.
type NewTicket struct {
	Category  domain.TicketCategory
	Priority  domain.TicketPriority
	Requester *domain.User
	Fields    map[string]string
}

// Create validates fields, builds an open ticket with its creation interaction and persists it.
func (s *TicketStore) Create(ctx context.Context, input NewTicket) (domain.Ticket, error) {
	if input.Requester == nil {
		return domain.Ticket{}, apperrors.NewUnauthorized("authentication required")
	}
	fields, err := s.validator.Validate(input.Category, input.Fields)
	if err != nil {
		return domain.Ticket{}, err
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return domain.Ticket{}, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timestamp()
	number, err := s.uniqueSolicitationNumber(now)
	if err != nil {
		return domain.Ticket{}, err
	}
	ticket := &domain.Ticket{
		ID:                 s.newID(),
		Category:           input.Category,
		SolicitationNumber: number,
		Status:             domain.TicketStatusOpen,
		Priority:           priority,
		RequesterID:        input.Requester.ID,
		RequesterName:      input.Requester.Name,
		CreatedAt:          now,
		UpdatedAt:          now,
		LastInteractionAt:  now,
		Fields:             fields,
	}
	ticket.Interactions = []domain.Interaction{{
		ID:        s.newID(),
		TicketID:  ticket.ID,
		UserID:    input.Requester.ID,
		UserName:  input.Requester.Name,
		Message:   creationMessage,
		Kind:      domain.InteractionSystem,
		Timestamp: now,
	}}

	if _, dup := s.tickets[ticket.ID]; dup {
		return domain.Ticket{}, apperrors.NewConflict("ticket id already in use", map[string]any{"ticket_id": ticket.ID})
	}
	order := append(append([]string(nil), s.order...), ticket.ID)
	if err := s.persist(ctx, order, ticket, 0); err != nil {
		return domain.Ticket{}, err
	}
	s.order = order
	s.tickets[ticket.ID] = ticket
	s.numbers[ticket.SolicitationNumber] = struct{}{}
	return ticket.Clone(), nil
}

// uniqueSolicitationNumber must be called with the write lock held.
func (s *TicketStore) uniqueSolicitationNumber(now time.Time) (string, error) {
	for attempt := 0; attempt < maxSolicitationAttempts; attempt++ {
		number := s.solicitation(now)
		if _, taken := s.numbers[number]; !taken {
			return number, nil
		}
	}
	return "", apperrors.NewConflict("could not allocate a unique solicitation number", nil)
}

// Get is a pure lookup returning a copy of the ticket.
func (s *TicketStore) Get(id string) (domain.Ticket, bool) {
	s.mu.RLock()
	t, ok := s.tickets[id]
	s.mu.RUnlock()
	if !ok {
		return domain.Ticket{}, false
	}
	return t.Clone(), true
}

// All yields every ticket in creation order. Each iteration reads the
// current state afresh; the sequence can be ranged over any number of times.
func (s *TicketStore) All() iter.Seq[domain.Ticket] {
	return func(yield func(domain.Ticket) bool) {
		s.mu.RLock()
		current := make([]*domain.Ticket, 0, len(s.order))
		for _, id := range s.order {
			current = append(current, s.tickets[id])
		}
		s.mu.RUnlock()
		for _, t := range current {
			if !yield(t.Clone()) {
				return
			}
		}
	}
}

// Len reports the number of stored tickets.
func (s *TicketStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Update applies fn to a working copy of the ticket and commits it only if fn
// succeeds and the new state is persisted. fn must record an interaction for
// any status or assignee change.
func (s *TicketStore) Update(ctx context.Context, id string, fn func(*Mutation) error) (domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tickets[id]
	if !ok {
		return domain.Ticket{}, apperrors.NewTicketNotFound(id)
	}
	working := current.Clone()
	m := &Mutation{ticket: &working, now: s.timestamp(), newID: s.newID, appendedFrom: len(working.Interactions)}
	if err := fn(m); err != nil {
		return domain.Ticket{}, err
	}
	if !m.touched() {
		return current.Clone(), nil
	}
	if m.changedState() && !m.appended() {
		return domain.Ticket{}, apperrors.NewInternalError(fmt.Errorf("ticket %s changed without an interaction", id))
	}
	if err := s.persist(ctx, s.order, &working, m.appendedFrom); err != nil {
		return domain.Ticket{}, err
	}
	s.tickets[id] = &working
	return working.Clone(), nil
}

// persist saves the ticket set as it would look with candidate committed.
// Backends implementing repository.TicketSaver receive only candidate and its
// interactions from newFrom on. Must be called with the write lock held.
func (s *TicketStore) persist(ctx context.Context, order []string, candidate *domain.Ticket, newFrom int) error {
	if saver, ok := s.repo.(repository.TicketSaver); ok {
		position := slices.Index(order, candidate.ID)
		if err := saver.SaveTicket(ctx, position, *candidate, newFrom); err != nil {
			s.logger.Error("persist ticket failed", zap.String("ticket_id", candidate.ID), zap.Error(err))
			return apperrors.NewInternalError(fmt.Errorf("persist ticket: %w", err))
		}
		return nil
	}
	snapshot := make([]domain.Ticket, 0, len(order))
	for _, id := range order {
		if id == candidate.ID {
			snapshot = append(snapshot, *candidate)
			continue
		}
		snapshot = append(snapshot, *s.tickets[id])
	}
	if err := s.repo.Save(ctx, snapshot); err != nil {
		s.logger.Error("persist tickets failed", zap.String("ticket_id", candidate.ID), zap.Error(err))
		return apperrors.NewInternalError(fmt.Errorf("persist tickets: %w", err))
	}
	return nil
}

// Mutation is the only write surface over a ticket. The interaction log can
// only grow: existing entries are neither exposed for editing nor removable.
type Mutation struct {
	ticket       *domain.Ticket
	now          time.Time
	newID        func() string
	appendedFrom int
	stateChanged bool
}

// Ticket returns a copy of the working state.
func (m *Mutation) Ticket() domain.Ticket {
	return m.ticket.Clone()
}

// SetStatus overwrites the status; callers must also Append an interaction.
func (m *Mutation) SetStatus(status domain.TicketStatus) {
	m.ticket.Status = status
	m.stateChanged = true
}

// SetAssignee records analystID as the assigned analyst; callers must also Append an interaction.
func (m *Mutation) SetAssignee(analystID string) {
	id := strings.TrimSpace(analystID)
	m.ticket.AssignedAnalystID = &id
	m.stateChanged = true
}

// Append adds an interaction and advances updatedAt and lastInteractionAt.
func (m *Mutation) Append(actor *domain.User, kind domain.InteractionKind, message string) domain.Interaction {
	in := domain.Interaction{
		ID:        m.newID(),
		TicketID:  m.ticket.ID,
		UserID:    actor.ID,
		UserName:  actor.Name,
		Message:   message,
		Kind:      kind,
		Timestamp: m.now,
	}
	m.ticket.Interactions = append(m.ticket.Interactions, in)
	m.ticket.UpdatedAt = m.now
	m.ticket.LastInteractionAt = m.now
	return in
}

func (m *Mutation) appended() bool     { return len(m.ticket.Interactions) > m.appendedFrom }
func (m *Mutation) changedState() bool { return m.stateChanged }
func (m *Mutation) touched() bool      { return m.appended() || m.stateChanged }
