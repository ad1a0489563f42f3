package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/grimoirelab-go/core/pkg/stream"
)

// OpenSearchConfig configures an OpenSearchSink.
type OpenSearchConfig struct {
	// BaseURL is the cluster endpoint, e.g. "https://search.internal:9200".
	BaseURL  string
	Username string
	Password string

	// Index is the target index name (or alias) documents are bulk-indexed
	// into.
	Index string
}

// OpenSearchSink is a minimal OpenSearch-shaped bulk-index client: the
// cluster's REST surface is plain HTTP+JSON, and no OpenSearch driver
// appears anywhere in the retrieved pack, so this sink talks to it directly
// with net/http and encoding/json rather than pulling in an unrelated
// client (see DESIGN.md).
type OpenSearchSink struct {
	baseURL  string
	username string
	password string
	index    string
	http     *http.Client
}

// NewOpenSearchSink constructs an OpenSearchSink from cfg.
func NewOpenSearchSink(cfg OpenSearchConfig, httpClient *http.Client) (*OpenSearchSink, error) {
	if cfg.BaseURL == "" || cfg.Index == "" {
		return nil, fmt.Errorf("sink: opensearch base url and index are required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OpenSearchSink{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		index:    cfg.Index,
		http:     httpClient,
	}, nil
}

// Ping checks cluster health via GET /_cluster/health.
func (s *OpenSearchSink) Ping(ctx context.Context) error {
	req, err := s.newRequest(ctx, http.MethodGet, "/_cluster/health", nil)
	if err != nil {
		return errors.Join(ErrPingFailed, err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return errors.Join(ErrPingFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status %d", ErrPingFailed, resp.StatusCode)
	}
	return nil
}

// EnsureDestination creates the index if it doesn't already exist. A 400
// "resource_already_exists_exception" from PUT /{index} is swallowed.
func (s *OpenSearchSink) EnsureDestination(ctx context.Context, name string) error {
	if name == "" {
		name = s.index
	}
	req, err := s.newRequest(ctx, http.MethodPut, "/"+name, nil)
	if err != nil {
		return errors.Join(ErrEnsureDestination, err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return errors.Join(ErrEnsureDestination, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 400 {
		return nil
	}

	var body struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Error.Type == "resource_already_exists_exception" {
		return nil
	}
	return fmt.Errorf("%w: status %d", ErrEnsureDestination, resp.StatusCode)
}

// Store bulk-indexes entries via POST /_bulk, treating message id as the
// document id so a replayed entry overwrites rather than duplicates. Every
// entry not reported by the bulk response's per-item results is treated as
// rejected, conservatively, so it is retried via recovery rather than
// silently dropped.
func (s *OpenSearchSink) Store(ctx context.Context, entries []stream.Entry) ([]stream.Result, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	for _, e := range entries {
		action := map[string]any{"index": map[string]any{"_index": s.index, "_id": e.ID}}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return nil, fmt.Errorf("sink: encode bulk action: %w", err)
		}
		buf.Write(e.Data)
		buf.WriteByte('\n')
	}

	req, err := s.newRequest(ctx, http.MethodPost, "/_bulk", &buf)
	if err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-ndjson")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status %d", ErrStoreFailed, resp.StatusCode)
	}

	var bulkResp struct {
		Items []struct {
			Index struct {
				ID     string `json:"_id"`
				Status int    `json:"status"`
			} `json:"index"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&bulkResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrStoreFailed, err)
	}

	results := make([]stream.Result, 0, len(bulkResp.Items))
	for _, item := range bulkResp.Items {
		outcome := stream.OutcomeRejected
		if item.Index.Status >= 200 && item.Index.Status < 300 {
			outcome = stream.OutcomeStored
		}
		results = append(results, stream.Result{MessageID: item.Index.ID, Outcome: outcome})
	}
	return results, nil
}

func (s *OpenSearchSink) newRequest(ctx context.Context, method, path string, body *bytes.Buffer) (*http.Request, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body.Bytes())
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}
	return req, nil
}

var _ stream.Sink = (*OpenSearchSink)(nil)
