// Package relay re-serves resolved media URLs through this service's own
// origin as a sequence of bounded-size byte chunks.
package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hszk-dev/bilifx/internal/domain/repository"
	"github.com/hszk-dev/bilifx/internal/infrastructure/metrics"
)

// DefaultChunkSize bounds a single relayed chunk to 1 MiB.
const DefaultChunkSize = 1 << 20

// Relay opens upstream media connections and exposes their bodies as
// pull-based chunk streams. Safe for concurrent use.
type Relay struct {
	http      *http.Client
	userAgent string
	chunkSize int
}

// New creates a Relay. The client should have no overall timeout; transfers
// are bounded by the request context instead.
func New(client *http.Client, userAgent string, chunkSize int) *Relay {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Relay{
		http:      client,
		userAgent: userAgent,
		chunkSize: chunkSize,
	}
}

// Stream is a finite, non-restartable sequence of byte chunks mirroring one
// upstream body. It is driven by a single consumer.
type Stream struct {
	// ContentType is the upstream media type, defaulting to video/mp4.
	ContentType string
	// ContentLength is the upstream body length, -1 when unknown.
	ContentLength int64

	body io.ReadCloser
	buf  []byte
}

// Open fetches mediaURL and validates the upstream response. On a
// non-success status the relay yields no data and fails with
// ErrUpstreamUnavailable. Cancelling ctx aborts the transfer and releases
// the upstream connection.
func (r *Relay) Open(ctx context.Context, mediaURL string) (*Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.http.Do(req)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIRelay, metrics.StatusUnavailable).Inc()
		return nil, fmt.Errorf("%w: %w", repository.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIRelay, metrics.StatusUnavailable).Inc()
		return nil, fmt.Errorf("%w: media status %d", repository.ErrUpstreamUnavailable, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIRelay, metrics.StatusOK).Inc()
	return &Stream{
		ContentType:   contentType,
		ContentLength: resp.ContentLength,
		body:          resp.Body,
		buf:           make([]byte, r.chunkSize),
	}, nil
}

// Next returns the next chunk in arrival order. The returned slice is only
// valid until the following call. io.EOF signals a completed transfer; any
// other error means the transfer broke mid-flight.
func (s *Stream) Next() ([]byte, error) {
	n, err := io.ReadFull(s.body, s.buf)
	if n > 0 {
		metrics.RelayBytesTotal.Add(float64(n))
		return s.buf[:n], nil
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return nil, err
}

// Close releases the upstream connection. Safe to call before the stream is
// exhausted; remaining chunks are discarded.
func (s *Stream) Close() error {
	return s.body.Close()
}
