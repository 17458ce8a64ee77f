package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/events"
	"github.com/spec-kit/request-desk/internal/repository"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

func TestResolveThenReopenRecordsBothTransitions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.create(t, requesterU1, domain.CategoryPADE)

	resolved, err := h.lifecycle.SetStatus(ctx, ticket.ID, domain.TicketStatusResolved, analyst7, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)

	reopened, err := h.lifecycle.SetStatus(ctx, ticket.ID, domain.TicketStatusOpen, analyst7, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, reopened.Status)

	var changes []domain.Interaction
	for _, in := range reopened.Interactions {
		if in.Kind == domain.InteractionStatusChange {
			changes = append(changes, in)
		}
	}
	require.Len(t, changes, 2)
	assert.Equal(t, "status changed from open to resolved", changes[0].Message)
	assert.Equal(t, "status changed from resolved to open", changes[1].Message)
	assert.Equal(t, changes[1].Timestamp, reopened.UpdatedAt)
	assert.Equal(t, changes[1].Timestamp, reopened.LastInteractionAt)
}

func TestNoOpStatusChangeIsStillAudited(t *testing.T) {
	h := newHarness(t)
	ticket := h.create(t, requesterU1, domain.CategoryPADE)

	updated, err := h.lifecycle.SetStatus(context.Background(), ticket.ID, domain.TicketStatusOpen, adminUser, "checked, nothing to do")
	require.NoError(t, err)
	require.Len(t, updated.Interactions, 2)
	assert.Equal(t, "checked, nothing to do", updated.Interactions[1].Message)
	assert.Equal(t, domain.InteractionStatusChange, updated.Interactions[1].Kind)
}

func TestRequesterCannotChangeStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.create(t, requesterU1, domain.CategoryPADE)

	for _, status := range []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusResolved} {
		_, err := h.lifecycle.SetStatus(ctx, ticket.ID, status, requesterU1, "")
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	}
	got, err := h.tickets.GetTicket(ctx, requesterU1, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, got.Status)
	assert.Len(t, got.Interactions, 1)
}

func TestSetStatusErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.create(t, requesterU1, domain.CategoryPADE)

	_, err := h.lifecycle.SetStatus(ctx, "missing", domain.TicketStatusResolved, analyst7, "")
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	_, err = h.lifecycle.SetStatus(ctx, "missing", domain.TicketStatusResolved, requesterU1, "")
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	_, err = h.lifecycle.SetStatus(ctx, ticket.ID, "closed", analyst7, "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = h.lifecycle.SetStatus(ctx, ticket.ID, domain.TicketStatusResolved, nil, "")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestSetStatusIgnoresVisibility(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.create(t, requesterU1, domain.CategoryPADE)
	_, err := h.lifecycle.Assign(ctx, ticket.ID, analyst7.ID, adminUser)
	require.NoError(t, err)

	updated, err := h.lifecycle.SetStatus(ctx, ticket.ID, domain.TicketStatusInProgress, analyst9, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
}

func TestAssignErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.create(t, requesterU1, domain.CategoryPADE)

	_, err := h.lifecycle.Assign(ctx, "missing", analyst7.ID, adminUser)
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	_, err = h.lifecycle.Assign(ctx, ticket.ID, "nobody", adminUser)
	assert.ErrorIs(t, err, apperrors.ErrAnalystNotFound)
	_, err = h.lifecycle.Assign(ctx, ticket.ID, requesterU2.ID, adminUser)
	assert.ErrorIs(t, err, apperrors.ErrAnalystNotFound)
	_, err = h.lifecycle.Assign(ctx, ticket.ID, adminUser.ID, adminUser)
	assert.ErrorIs(t, err, apperrors.ErrAnalystNotFound)
	_, err = h.lifecycle.Assign(ctx, ticket.ID, analyst7.ID, requesterU1)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	got, _ := h.store.Get(ticket.ID)
	assert.True(t, got.Unassigned())
	assert.Len(t, got.Interactions, 1)
}

func TestAssignRecordsInteractionAndEvent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.create(t, requesterU1, domain.CategoryPADE)

	assigned, err := h.lifecycle.Assign(ctx, ticket.ID, analyst7.ID, analyst7)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedAnalystID)
	assert.Equal(t, analyst7.ID, *assigned.AssignedAnalystID)
	last := assigned.Interactions[len(assigned.Interactions)-1]
	assert.Equal(t, domain.InteractionAssignment, last.Kind)
	assert.Equal(t, "ticket assigned to Analyst Seven", last.Message)

	reassigned, err := h.lifecycle.Assign(ctx, ticket.ID, analyst9.ID, adminUser)
	require.NoError(t, err)
	assert.Equal(t, analyst9.ID, *reassigned.AssignedAnalystID)

	h.dispatcher.mu.Lock()
	lastEvent := h.dispatcher.events[len(h.dispatcher.events)-1]
	h.dispatcher.mu.Unlock()
	payload, ok := lastEvent.Payload.(events.TicketAssignedPayload)
	require.True(t, ok)
	require.NotNil(t, payload.PreviousAnalystID)
	assert.Equal(t, analyst7.ID, *payload.PreviousAnalystID)
	assert.Equal(t, analyst9.ID, payload.AnalystID)
}

func TestAddCommentRejectsBlankMessages(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.create(t, requesterU1, domain.CategoryPADE)

	for _, message := range []string{"", "  ", "\n\t"} {
		_, err := h.lifecycle.AddComment(ctx, ticket.ID, message, requesterU1)
		assert.ErrorIs(t, err, apperrors.ErrEmptyMessage)
	}
	got, _ := h.store.Get(ticket.ID)
	assert.Len(t, got.Interactions, 1)
}

func TestAddCommentRequiresVisibility(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.create(t, requesterU1, domain.CategoryPADE)
	_, err := h.lifecycle.Assign(ctx, ticket.ID, analyst7.ID, adminUser)
	require.NoError(t, err)

	_, err = h.lifecycle.AddComment(ctx, ticket.ID, "hi", requesterU2)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = h.lifecycle.AddComment(ctx, ticket.ID, "hi", analyst9)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = h.lifecycle.AddComment(ctx, "missing", "hi", adminUser)
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)

	in, err := h.lifecycle.AddComment(ctx, ticket.ID, "  looking into it  ", analyst7)
	require.NoError(t, err)
	assert.Equal(t, "looking into it", in.Message)
	assert.Equal(t, domain.InteractionComment, in.Kind)
	assert.Equal(t, analyst7.ID, in.UserID)
	assert.Equal(t, analyst7.Name, in.UserName)
	assert.Equal(t, ticket.ID, in.TicketID)
}

func TestInteractionLogOnlyGrows(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.create(t, requesterU1, domain.CategoryMETA)

	lengths := []int{len(ticket.Interactions)}
	record := func() {
		got, _ := h.store.Get(ticket.ID)
		lengths = append(lengths, len(got.Interactions))
	}
	_, _ = h.lifecycle.AddComment(ctx, ticket.ID, "", requesterU1)
	record()
	_, _ = h.lifecycle.Assign(ctx, ticket.ID, analyst7.ID, adminUser)
	record()
	_, _ = h.lifecycle.SetStatus(ctx, ticket.ID, domain.TicketStatusResolved, requesterU1, "")
	record()
	_, _ = h.lifecycle.SetStatus(ctx, ticket.ID, domain.TicketStatusResolved, analyst7, "")
	record()
	_, _ = h.lifecycle.AddComment(ctx, ticket.ID, "thanks", requesterU1)
	record()

	assert.Equal(t, []int{1, 1, 2, 2, 3, 4}, lengths)
}

type failingSaveRepo struct {
	repository.TicketRepository
	fail bool
}

func (r *failingSaveRepo) Save(ctx context.Context, tickets []domain.Ticket) error {
	if r.fail {
		return errors.New("write refused")
	}
	return r.TicketRepository.Save(ctx, tickets)
}

func TestLifecycleIsAtomicWhenPersistenceFails(t *testing.T) {
	repo := &failingSaveRepo{TicketRepository: repository.NewMemoryTicketRepository()}
	h := newHarnessWithRepo(t, repo)
	ctx := context.Background()
	ticket := h.create(t, requesterU1, domain.CategoryPADE)
	eventsBefore := len(h.dispatcher.types())

	repo.fail = true
	_, err := h.lifecycle.SetStatus(ctx, ticket.ID, domain.TicketStatusResolved, adminUser, "")
	assert.ErrorIs(t, err, apperrors.ErrInternal)
	_, err = h.lifecycle.Assign(ctx, ticket.ID, analyst7.ID, adminUser)
	assert.ErrorIs(t, err, apperrors.ErrInternal)
	_, err = h.lifecycle.AddComment(ctx, ticket.ID, "lost?", requesterU1)
	assert.ErrorIs(t, err, apperrors.ErrInternal)

	got, _ := h.store.Get(ticket.ID)
	assert.Equal(t, *ticket, got)
	assert.Len(t, h.dispatcher.types(), eventsBefore)
}

func TestConcurrentLifecycleCallsKeepEveryInteraction(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.create(t, requesterU1, domain.CategoryPADE)

	const rounds = 20
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, err := h.lifecycle.AddComment(ctx, ticket.ID, "from requester", requesterU1)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := h.lifecycle.SetStatus(ctx, ticket.ID, domain.TicketStatusInProgress, adminUser, "")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := h.lifecycle.AddComment(ctx, ticket.ID, "from admin", adminUser)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, _ := h.store.Get(ticket.ID)
	assert.Len(t, got.Interactions, 1+3*rounds)
	assert.Equal(t, domain.TicketStatusInProgress, got.Status)
}
