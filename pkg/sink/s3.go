package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/grimoirelab-go/core/pkg/stream"
)

// S3Config configures an S3Sink.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PathStyle bool

	// Prefix is prepended to every object key, e.g. "archive/events".
	Prefix string
}

// S3Sink mirrors drained stream entries into an S3-compatible bucket as
// newline-delimited JSON, one object per batch, for cold-storage archival
// alongside the primary search-index sink. The object key is derived from
// the batch's first and last message ids, so replaying the same batch
// overwrites the same object; an entry replayed inside a batch with
// different bounds is written again under another key.
type S3Sink struct {
	client *s3.Client
	cfg    S3Config
}

// NewS3Sink constructs an S3Sink from cfg.
func NewS3Sink(cfg S3Config) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("sink: s3 bucket is required")
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.Region
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		},
	}
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		})
	}

	return &S3Sink{client: s3.New(s3.Options{}, opts...), cfg: cfg}, nil
}

func (s *S3Sink) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)})
	if err != nil {
		return errors.Join(ErrPingFailed, wrapS3Error(err))
	}
	return nil
}

// EnsureDestination is a no-op for S3Sink: the bucket is expected to exist
// already, and object keys need no schema beyond the batch's own ids.
func (s *S3Sink) EnsureDestination(ctx context.Context, name string) error {
	return nil
}

// Store writes the batch as one newline-delimited JSON object keyed by the
// id of its first and last entry, then reports every entry stored. A
// PutObject failure leaves the whole batch unacknowledged upstream.
func (s *S3Sink) Store(ctx context.Context, entries []stream.Entry) ([]stream.Result, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(archivedEntry{MessageID: e.ID, Data: json.RawMessage(e.Data)}); err != nil {
			return nil, fmt.Errorf("sink: encode archive batch: %w", err)
		}
	}

	key := s.objectKey(entries)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return nil, errors.Join(ErrStoreFailed, wrapS3Error(err))
	}

	results := make([]stream.Result, len(entries))
	for i, e := range entries {
		results[i] = stream.Result{MessageID: e.ID, Outcome: stream.OutcomeStored}
	}
	return results, nil
}

func (s *S3Sink) objectKey(entries []stream.Entry) string {
	first, last := entries[0].ID, entries[len(entries)-1].ID
	if s.cfg.Prefix != "" {
		return fmt.Sprintf("%s/%s_%s.ndjson", s.cfg.Prefix, first, last)
	}
	return fmt.Sprintf("%s_%s.ndjson", first, last)
}

type archivedEntry struct {
	MessageID string          `json:"message_id"`
	Data      json.RawMessage `json:"data"`
}

func wrapS3Error(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", apiErr.ErrorCode(), err)
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return err
	}
	return err
}

var _ stream.Sink = (*S3Sink)(nil)
