package sink_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grimoirelab-go/core/pkg/sink"
)

func TestNewS3Sink_ValidConfig(t *testing.T) {
	s, err := sink.NewS3Sink(sink.S3Config{
		Bucket:    "archive-bucket",
		Region:    "us-east-1",
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestNewS3Sink_CustomEndpoint(t *testing.T) {
	s, err := sink.NewS3Sink(sink.S3Config{
		Bucket:    "archive-bucket",
		Endpoint:  "http://localhost:9000",
		PathStyle: true,
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestNewS3Sink_RequiresBucket(t *testing.T) {
	_, err := sink.NewS3Sink(sink.S3Config{})
	assert.Error(t, err)
}

func TestS3Sink_Store_EmptyBatch(t *testing.T) {
	s, err := sink.NewS3Sink(sink.S3Config{Bucket: "archive-bucket", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)

	results, err := s.Store(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestS3Sink_EnsureDestination_IsNoOp(t *testing.T) {
	s, err := sink.NewS3Sink(sink.S3Config{Bucket: "archive-bucket", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.NoError(t, s.EnsureDestination(nil, "anything"))
}
