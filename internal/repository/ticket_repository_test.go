package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/spec-kit/request-desk/internal/domain"
)

func sampleTickets() []domain.Ticket {
	base := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	analyst := "analyst-7"
	return []domain.Ticket{
		{
			ID:                 "t-1",
			Category:           domain.CategoryPADE,
			SolicitationNumber: "SOL-123456001",
			Status:             domain.TicketStatusInProgress,
			Priority:           domain.TicketPriorityHigh,
			RequesterID:        "u1",
			RequesterName:      "Requester User",
			AssignedAnalystID:  &analyst,
			CreatedAt:          base,
			UpdatedAt:          base.Add(2 * time.Minute),
			LastInteractionAt:  base.Add(2 * time.Minute),
			Fields:             map[string]string{"agency": "001", "clientName": "X"},
			Interactions: []domain.Interaction{
				{ID: "i-1", TicketID: "t-1", UserID: "u1", UserName: "Requester User", Message: "ticket created", Kind: domain.InteractionSystem, Timestamp: base},
				{ID: "i-2", TicketID: "t-1", UserID: "admin", UserName: "Admin User", Message: "assigned", Kind: domain.InteractionAssignment, Timestamp: base.Add(time.Minute)},
				{ID: "i-3", TicketID: "t-1", UserID: "analyst-7", UserName: "Analyst", Message: "status changed from open to in_progress", Kind: domain.InteractionStatusChange, Timestamp: base.Add(2 * time.Minute)},
			},
		},
		{
			ID:                 "t-2",
			Category:           domain.CategoryMETA,
			SolicitationNumber: "SOL-123457002",
			Status:             domain.TicketStatusOpen,
			Priority:           domain.TicketPriorityMedium,
			RequesterID:        "u2",
			RequesterName:      "Other",
			CreatedAt:          base.Add(time.Hour),
			UpdatedAt:          base.Add(time.Hour),
			LastInteractionAt:  base.Add(time.Hour),
			Fields:             map[string]string{"period": "01/2026"},
			Interactions: []domain.Interaction{
				{ID: "i-4", TicketID: "t-2", UserID: "u2", UserName: "Other", Message: "ticket created", Kind: domain.InteractionSystem, Timestamp: base.Add(time.Hour)},
			},
		},
	}
}

func assertSameTickets(t *testing.T, want, got []domain.Ticket) {
	t.Helper()
	wantJSON, err := json.Marshal(want)
	require.NoError(t, err)
	gotJSON, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(wantJSON), string(gotJSON))
}

func TestMemoryTicketRepositoryIsolatesCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	tickets := sampleTickets()
	require.NoError(t, repo.Save(ctx, tickets))

	tickets[0].Interactions[0].Message = "tampered"
	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ticket created", loaded[0].Interactions[0].Message)
}

func TestSnapshotCodecsRoundTrip(t *testing.T) {
	for _, name := range []string{CodecJSON, CodecCBOR} {
		t.Run(name, func(t *testing.T) {
			codec, err := NewSnapshotCodec(name)
			require.NoError(t, err)
			payload, err := codec.Marshal(ticketSnapshot{Version: snapshotVersion, Tickets: sampleTickets()})
			require.NoError(t, err)

			var decoded ticketSnapshot
			require.NoError(t, codec.Unmarshal(payload, &decoded))
			assert.Equal(t, snapshotVersion, decoded.Version)
			assertSameTickets(t, sampleTickets(), decoded.Tickets)
			assert.True(t, decoded.Tickets[0].CreatedAt.Equal(sampleTickets()[0].CreatedAt))
		})
	}

	_, err := NewSnapshotCodec("xml")
	assert.Error(t, err)
}

func TestSQLiteTicketRepositoryPersistAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "desk.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cborCodec, err := NewSnapshotCodec(CodecCBOR)
	require.NoError(t, err)
	repo, err := NewSQLiteTicketRepository(ctx, db, cborCodec)
	require.NoError(t, err)

	empty, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, repo.Save(ctx, sampleTickets()))

	// A reader configured with another codec still decodes the stored payload.
	reader, err := NewSQLiteTicketRepository(ctx, db, nil)
	require.NoError(t, err)
	loaded, err := reader.Load(ctx)
	require.NoError(t, err)
	assertSameTickets(t, sampleTickets(), loaded)
}

func TestSQLiteTicketRepositoryRollsBackFailedSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS ticket_snapshots").WillReturnResult(sqlmock.NewResult(0, 0))
	repo, err := NewSQLiteTicketRepository(context.Background(), db, nil)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ticket_snapshots").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = repo.Save(context.Background(), sampleTickets())
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

type fakeObjectAPI struct {
	objects  map[string][]byte
	metadata map[string]map[string]string
	putErr   error
}

func newFakeObjectAPI() *fakeObjectAPI {
	return &fakeObjectAPI{objects: map[string][]byte{}, metadata: map[string]map[string]string{}}
}

func (f *fakeObjectAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	body, ok := f.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body)), Metadata: f.metadata[key]}, nil
}

func (f *fakeObjectAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = body
	f.metadata[key] = in.Metadata
	return &s3.PutObjectOutput{}, nil
}

func TestS3TicketRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	api := newFakeObjectAPI()
	cborCodec, err := NewSnapshotCodec(CodecCBOR)
	require.NoError(t, err)
	repo, err := NewS3TicketRepository(api, "desk", "", cborCodec)
	require.NoError(t, err)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	require.NoError(t, repo.Save(ctx, sampleTickets()))
	assert.Contains(t, api.objects, "desk/snapshots/tickets.cbor")

	loaded, err = repo.Load(ctx)
	require.NoError(t, err)
	assertSameTickets(t, sampleTickets(), loaded)
}

func TestS3TicketRepositorySurfacesPutErrors(t *testing.T) {
	api := newFakeObjectAPI()
	api.putErr = errors.New("access denied")
	repo, err := NewS3TicketRepository(api, "desk", "tickets.json", nil)
	require.NoError(t, err)

	assert.ErrorContains(t, repo.Save(context.Background(), sampleTickets()), "access denied")

	_, err = NewS3TicketRepository(api, "", "", nil)
	assert.Error(t, err)
}
