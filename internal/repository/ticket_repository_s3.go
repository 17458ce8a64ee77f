package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/spec-kit/request-desk/internal/domain"
)

const codecMetadataKey = "codec"

// ObjectAPI is the subset of *s3.Client the snapshot repository needs.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3TicketRepository struct {
	client ObjectAPI
	bucket string
	key    string
	codec  SnapshotCodec
}

// NewS3TicketRepository stores the ticket set as a single object. A missing
// object loads as an empty set.
func NewS3TicketRepository(client ObjectAPI, bucket, key string, codec SnapshotCodec) (TicketRepository, error) {
	if bucket == "" {
		return nil, errors.New("s3 bucket required")
	}
	if codec == nil {
		codec = jsonCodec{}
	}
	if key == "" {
		key = "snapshots/tickets." + codec.Name()
	}
	return &s3TicketRepository{client: client, bucket: bucket, key: key, codec: codec}, nil
}

func (r *s3TicketRepository) Load(ctx context.Context) ([]domain.Ticket, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(r.bucket), Key: aws.String(r.key)})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, nil
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	defer out.Body.Close()

	payload, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	codec := r.codec
	if name, ok := out.Metadata[codecMetadataKey]; ok {
		if codec, err = NewSnapshotCodec(name); err != nil {
			return nil, err
		}
	}
	var snapshot ticketSnapshot
	if err := codec.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snapshot.Tickets, nil
}

func (r *s3TicketRepository) Save(ctx context.Context, tickets []domain.Ticket) error {
	payload, err := r.codec.Marshal(ticketSnapshot{Version: snapshotVersion, Tickets: tickets})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(r.key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String(r.codec.ContentType()),
		Metadata:    map[string]string{codecMetadataKey: r.codec.Name()},
	})
	if err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}
