package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/request-desk/internal/domain"
)

var _ TicketSaver = (*postgresTicketRepository)(nil)

type postgresTicketRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTicketRepository persists tickets relationally. Interactions are
// inserted with ON CONFLICT DO NOTHING so a stored entry is never rewritten.
func NewPostgresTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &postgresTicketRepository{pool: pool}
}

func (r *postgresTicketRepository) Load(ctx context.Context) ([]domain.Ticket, error) {
	const ticketQuery = `
        SELECT id, category, solicitation_number, status, priority, requester_id, requester_name,
               assigned_analyst_id, fields, created_at, updated_at, last_interaction_at
        FROM tickets ORDER BY position ASC`
	rows, err := r.pool.Query(ctx, ticketQuery)
	if err != nil {
		return nil, fmt.Errorf("select tickets: %w", err)
	}
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}

	const interactionQuery = `
        SELECT id, ticket_id, user_id, user_name, message, kind, created_at
        FROM ticket_interactions ORDER BY ticket_id, position ASC`
	rows, err = r.pool.Query(ctx, interactionQuery)
	if err != nil {
		return nil, fmt.Errorf("select interactions: %w", err)
	}
	defer rows.Close()

	byTicket := make(map[string][]domain.Interaction, len(tickets))
	for rows.Next() {
		var in domain.Interaction
		if err := rows.Scan(
			&in.ID,
			&in.TicketID,
			&in.UserID,
			&in.UserName,
			&in.Message,
			&in.Kind,
			&in.Timestamp,
		); err != nil {
			return nil, err
		}
		byTicket[in.TicketID] = append(byTicket[in.TicketID], in)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range tickets {
		tickets[i].Interactions = byTicket[tickets[i].ID]
	}
	return tickets, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	defer rows.Close()
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Category,
			&ticket.SolicitationNumber,
			&ticket.Status,
			&ticket.Priority,
			&ticket.RequesterID,
			&ticket.RequesterName,
			&ticket.AssignedAnalystID,
			&ticket.Fields,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.LastInteractionAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

const (
	upsertTicketSQL = `
        INSERT INTO tickets (id, position, category, solicitation_number, status, priority, requester_id,
                             requester_name, assigned_analyst_id, fields, created_at, updated_at, last_interaction_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        ON CONFLICT (id) DO UPDATE SET
            status=EXCLUDED.status,
            priority=EXCLUDED.priority,
            assigned_analyst_id=EXCLUDED.assigned_analyst_id,
            updated_at=EXCLUDED.updated_at,
            last_interaction_at=EXCLUDED.last_interaction_at`
	insertInteractionSQL = `
        INSERT INTO ticket_interactions (id, ticket_id, position, user_id, user_name, message, kind, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (id) DO NOTHING`
)

// Save writes the full set. The store only calls it for backends without
// SaveTicket; it is kept for bulk imports.
func (r *postgresTicketRepository) Save(ctx context.Context, tickets []domain.Ticket) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i, t := range tickets {
			queueTicket(batch, i, t, 0)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("save tickets: %w", err)
		}
		return nil
	})
}

// SaveTicket upserts one ticket and inserts only its new interactions.
func (r *postgresTicketRepository) SaveTicket(ctx context.Context, position int, ticket domain.Ticket, newFrom int) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		queueTicket(batch, position, ticket, newFrom)
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("save ticket %s: %w", ticket.ID, err)
		}
		return nil
	})
}

func queueTicket(batch *pgx.Batch, position int, t domain.Ticket, newFrom int) {
	batch.Queue(upsertTicketSQL,
		t.ID,
		position,
		t.Category,
		t.SolicitationNumber,
		t.Status,
		t.Priority,
		t.RequesterID,
		t.RequesterName,
		t.AssignedAnalystID,
		t.Fields,
		t.CreatedAt,
		t.UpdatedAt,
		t.LastInteractionAt,
	)
	for j := max(newFrom, 0); j < len(t.Interactions); j++ {
		in := t.Interactions[j]
		batch.Queue(insertInteractionSQL,
			in.ID,
			t.ID,
			j,
			in.UserID,
			in.UserName,
			in.Message,
			in.Kind,
			in.Timestamp,
		)
	}
}
