package repository

import (
	"context"
	"sync"

	"github.com/spec-kit/request-desk/internal/domain"
)

// snapshotVersion tags the encoded layout written by blob-style backends.
const snapshotVersion = 1

// ticketSnapshot is the envelope written by blob-style backends.
type ticketSnapshot struct {
	Version int             `json:"version" cbor:"version"`
	Tickets []domain.Ticket `json:"tickets" cbor:"tickets"`
}

// TicketRepository is the persistence collaborator of the ticket store.
// Save receives the full ticket set in creation order and must persist it
// atomically; Load returns it in the same order with identifiers, timestamps
// and interaction order preserved.
type TicketRepository interface {
	Load(ctx context.Context) ([]domain.Ticket, error)
	Save(ctx context.Context, tickets []domain.Ticket) error
}

// TicketSaver is implemented by backends that persist one ticket at a time.
// SaveTicket upserts ticket at position in creation order and inserts its
// interactions from index newFrom on; earlier interactions are already stored.
type TicketSaver interface {
	SaveTicket(ctx context.Context, position int, ticket domain.Ticket, newFrom int) error
}

type memoryTicketRepository struct {
	mu      sync.RWMutex
	tickets []domain.Ticket
}

// NewMemoryTicketRepository keeps snapshots in process memory.
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{}
}

func (r *memoryTicketRepository) Load(context.Context) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneTickets(r.tickets), nil
}

func (r *memoryTicketRepository) Save(_ context.Context, tickets []domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets = cloneTickets(tickets)
	return nil
}

func cloneTickets(in []domain.Ticket) []domain.Ticket {
	out := make([]domain.Ticket, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
