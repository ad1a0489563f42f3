package stream

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStream wraps a single named Redis stream for the consumer-group
// model used by the Consumer Pool: XGROUP CREATE, XREADGROUP, XAUTOCLAIM,
// and XACK.
type RedisStream struct {
	client redis.UniversalClient
	name   string
}

// NewRedisStream binds a client to a stream name. NewRedisStream performs
// no I/O; call Publish/EnsureGroup to touch the backend.
func NewRedisStream(client redis.UniversalClient, name string) *RedisStream {
	return &RedisStream{client: client, name: name}
}

// Name returns the underlying stream key.
func (s *RedisStream) Name() string { return s.name }

// Publish appends one JSON-encoded event to the stream without trimming it;
// PublishTrimmed applies a length cap.
func (s *RedisStream) Publish(ctx context.Context, data []byte) (string, error) {
	args := &redis.XAddArgs{
		Stream: s.name,
		Values: map[string]any{"data": data},
	}
	id, err := s.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", classify(err)
	}
	return id, nil
}

// PublishTrimmed is Publish with an approximate MAXLEN cap applied (Redis'
// "~" form), for callers enforcing the events stream retention policy.
// maxLen <= 0 disables trimming.
func (s *RedisStream) PublishTrimmed(ctx context.Context, data []byte, maxLen int64) (string, error) {
	args := &redis.XAddArgs{
		Stream: s.name,
		Values: map[string]any{"data": data},
		MaxLen: maxLen,
		Approx: true,
	}
	id, err := s.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", classify(err)
	}
	return id, nil
}

// EnsureGroup creates the named consumer group at stream position 0 if it
// doesn't already exist. MKSTREAM creates the stream itself when absent, so
// a pool can start against a stream no entry has been published to yet.
func (s *RedisStream) EnsureGroup(ctx context.Context, group string) error {
	err := s.client.XGroupCreateMkStream(ctx, s.name, group, "0").Err()
	if err == nil {
		return nil
	}
	if isBusyGroupErr(err) {
		return nil
	}
	return classify(err)
}

// ReadNew block-reads up to count new entries (never before delivered to
// this group) for this consumer, waiting up to block for the first one to
// arrive. Returns ErrNoEntries if the call times out empty.
func (s *RedisStream) ReadNew(ctx context.Context, group, consumer string, count int64, block time.Duration) ([]Entry, error) {
	res, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{s.name, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoEntries
		}
		return nil, classify(err)
	}
	return entriesFromStreams(res), nil
}

// Reclaim takes ownership of entries idle longer than minIdle (XAUTOCLAIM)
// and rebinds them to consumer, driving the Consumer's recovery loop. The
// returned cursor should be passed back in to continue a scan; a cursor of
// "0-0" means the scan has wrapped and nothing more is pending right now.
func (s *RedisStream) Reclaim(ctx context.Context, group, consumer string, minIdle time.Duration, count int64, cursor string) ([]Entry, string, error) {
	if cursor == "" {
		cursor = "0-0"
	}
	msgs, next, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   s.name,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    cursor,
		Count:    count,
	}).Result()
	if err != nil {
		return nil, "", classify(err)
	}
	return entriesFromMessages(msgs), next, nil
}

// Ack acknowledges entries by id, removing them from the group's pending
// list.
func (s *RedisStream) Ack(ctx context.Context, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.client.XAck(ctx, s.name, group, ids...).Err(); err != nil {
		return classify(err)
	}
	return nil
}

// Ping reports stream backend reachability.
func (s *RedisStream) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return classify(err)
	}
	return nil
}

func entriesFromStreams(streams []redis.XStream) []Entry {
	var out []Entry
	for _, st := range streams {
		out = append(out, entriesFromMessages(st.Messages)...)
	}
	return out
}

func entriesFromMessages(msgs []redis.XMessage) []Entry {
	out := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		data, _ := m.Values["data"].(string)
		out = append(out, Entry{ID: m.ID, Data: []byte(data)})
	}
	return out
}

func isBusyGroupErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}

// classify wraps a raw go-redis error as a stream connection error unless
// it's one of the sentinels callers already special-case.
func classify(err error) error {
	if err == nil || errors.Is(err, redis.Nil) {
		return err
	}
	return errors.Join(ErrConnection, err)
}
