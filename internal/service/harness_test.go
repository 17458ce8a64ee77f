package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/events"
	"github.com/spec-kit/request-desk/internal/repository"
	"github.com/spec-kit/request-desk/internal/schema"
	"github.com/spec-kit/request-desk/internal/store"
)

var (
	requesterU1 = &domain.User{ID: "u1", Name: "Requester One", Email: "u1@example.com", Role: domain.RoleRequester}
	requesterU2 = &domain.User{ID: "u2", Name: "Requester Two", Email: "u2@example.com", Role: domain.RoleRequester}
	analyst7    = &domain.User{ID: "analyst-7", Name: "Analyst Seven", Email: "a7@example.com", Role: domain.RoleAnalyst}
	analyst9    = &domain.User{ID: "analyst-9", Name: "Analyst Nine", Email: "a9@example.com", Role: domain.RoleAnalyst}
	adminUser   = &domain.User{ID: "admin", Name: "Admin User", Email: "admin@example.com", Role: domain.RoleAdmin}
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	tickets    *TicketService
	lifecycle  *LifecycleService
	store      *store.TicketStore
	repo       repository.TicketRepository
	users      repository.UserRepository
	dispatcher *recordingDispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithRepo(t, repository.NewMemoryTicketRepository())
}

func newHarnessWithRepo(t *testing.T, repo repository.TicketRepository) *harness {
	t.Helper()
	ctx := context.Background()

	users := repository.NewMemoryUserRepository()
	for _, u := range []*domain.User{requesterU1, requesterU2, analyst7, analyst9, adminUser} {
		require.NoError(t, users.Create(ctx, u))
	}
	registry, err := schema.NewDefaultRegistry()
	require.NoError(t, err)

	var tick int64
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	ticketStore, err := store.NewTicketStore(ctx, repo, registry, store.Options{
		Now: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		},
	})
	require.NoError(t, err)

	dispatcher := &recordingDispatcher{}
	return &harness{
		tickets:    NewTicketService(TicketDependencies{Store: ticketStore, Dispatcher: dispatcher}),
		lifecycle:  NewLifecycleService(LifecycleDependencies{Store: ticketStore, UserRepo: users, Dispatcher: dispatcher}),
		store:      ticketStore,
		repo:       repo,
		users:      users,
		dispatcher: dispatcher,
	}
}

func padeFields() map[string]string {
	return map[string]string{
		"solicitationNumber": "SOL-1",
		"agency":             "001",
		"accountNumber":      "ACC-1",
		"clientName":         "X",
		"clientDocument":     "Y",
		"businessUnit":       "retail",
	}
}

func metaFields() map[string]string {
	return map[string]string{
		"solicitationNumber": "SOL-2",
		"agency":             "002",
		"accountNumber":      "ACC-2",
		"targetValue":        "250000",
		"period":             "03/2026",
		"justification":      "Quarterly target revision",
	}
}

func exceptionFields() map[string]string {
	return map[string]string{
		"solicitationNumber": "SOL-3",
		"agency":             "003",
		"accountNumber":      "ACC-3",
		"currentManager":     "Maria",
		"requestedManager":   "Joao",
		"reason":             "relationship",
	}
}

func fieldsFor(category domain.TicketCategory) map[string]string {
	switch category {
	case domain.CategoryMETA:
		return metaFields()
	case domain.CategoryExceptionPortfolioAssignment:
		return exceptionFields()
	default:
		return padeFields()
	}
}

func (h *harness) create(t *testing.T, actor *domain.User, category domain.TicketCategory) *domain.Ticket {
	t.Helper()
	ticket, err := h.tickets.CreateTicket(context.Background(), actor, TicketCreateInput{Category: category, Fields: fieldsFor(category)})
	require.NoError(t, err)
	return ticket
}

func collectIDs(t *testing.T, seq func(func(domain.Ticket) bool)) []string {
	t.Helper()
	var ids []string
	for ticket := range seq {
		ids = append(ids, ticket.ID)
	}
	return ids
}
