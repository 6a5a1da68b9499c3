package bilibili

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/hszk-dev/bilifx/internal/domain/model"
	"github.com/hszk-dev/bilifx/internal/domain/repository"
)

func TestFetchStreamURL_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("bv"); got != "BV1xK4y1p7" {
			t.Errorf("bv = %q, want BV1xK4y1p7", got)
		}
		if got := q.Get("q"); got != "80" {
			t.Errorf("q = %q, want 80", got)
		}
		w.Write([]byte(`{"code": 0, "url": "https://upos.example.invalid/video.mp4"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL, srv.URL)

	got, err := c.FetchStreamURL(context.Background(), model.StreamRequest{BVID: "BV1xK4y1p7", Quality: 80})
	if err != nil {
		t.Fatalf("FetchStreamURL failed: %v", err)
	}
	if got != "https://upos.example.invalid/video.mp4" {
		t.Errorf("url = %q", got)
	}
}

func TestFetchStreamURL_NoRetryOnApplicationError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"code": -1, "message": "no such stream"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL, srv.URL)

	_, err := c.FetchStreamURL(context.Background(), model.StreamRequest{BVID: "BV1xK4y1p7"})
	if !errors.Is(err, repository.ErrVideoNotFound) {
		t.Fatalf("error = %v, want ErrVideoNotFound", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream called %d times, want exactly 1 (no retry)", got)
	}
}

func TestFetchStreamURL_NoRetryOnMalformedBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL, srv.URL)

	_, err := c.FetchStreamURL(context.Background(), model.StreamRequest{BVID: "BV1xK4y1p7"})
	if !errors.Is(err, repository.ErrUpstreamMalformed) {
		t.Fatalf("error = %v, want ErrUpstreamMalformed", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream called %d times, want exactly 1 (no retry)", got)
	}
}

// failingTransport simulates a connection-level failure on every attempt.
type failingTransport struct {
	calls atomic.Int32
}

func (f *failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.calls.Add(1)
	return nil, errors.New("proxyconnect tcp: connection refused")
}

func TestFetchStreamURL_RetriesTransientFailures(t *testing.T) {
	c := newTestClient(t, "http://unused.invalid", "http://unused.invalid", "http://unused.invalid")

	ft := &failingTransport{}
	c.parse = &http.Client{Transport: ft}

	_, err := c.FetchStreamURL(context.Background(), model.StreamRequest{BVID: "BV1xK4y1p7"})
	if !errors.Is(err, repository.ErrUpstreamUnavailable) {
		t.Fatalf("error = %v, want ErrUpstreamUnavailable", err)
	}
	if got := ft.calls.Load(); got != 3 {
		t.Errorf("upstream attempted %d times, want 3", got)
	}
}

func TestFetchStreamURL_RecoversWithinBudget(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": 0, "url": "https://upos.example.invalid/video.mp4"}`))
	}))
	defer srv.Close()

	// The first two attempts fail at the transport, the third reaches the
	// real server.
	real := http.DefaultTransport
	c := newTestClient(t, srv.URL, srv.URL, srv.URL)
	c.parse = &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if calls.Add(1) <= 2 {
			return nil, errors.New("connection reset by peer")
		}
		return real.RoundTrip(r)
	})}

	got, err := c.FetchStreamURL(context.Background(), model.StreamRequest{BVID: "BV1xK4y1p7"})
	if err != nil {
		t.Fatalf("FetchStreamURL failed: %v", err)
	}
	if got != "https://upos.example.invalid/video.mp4" {
		t.Errorf("url = %q", got)
	}
	if calls.Load() != 3 {
		t.Errorf("attempts = %d, want 3", calls.Load())
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestFetchStreamURL_RejectsAmbiguousRequest(t *testing.T) {
	ft := &failingTransport{}
	c := newTestClient(t, "http://unused.invalid", "http://unused.invalid", "http://unused.invalid")
	c.parse = &http.Client{Transport: ft}

	_, err := c.FetchStreamURL(context.Background(), model.StreamRequest{BVID: "BV1xK4y1p7", EpisodeID: "123"})
	if !errors.Is(err, model.ErrInvalidIdentifier) {
		t.Fatalf("error = %v, want ErrInvalidIdentifier", err)
	}
	if ft.calls.Load() != 0 {
		t.Errorf("upstream reached despite invalid request")
	}
}

func TestFetchStreamURL_MissingURLIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": 0}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL, srv.URL)

	_, err := c.FetchStreamURL(context.Background(), model.StreamRequest{BVID: "BV1xK4y1p7"})
	if !errors.Is(err, repository.ErrUpstreamMalformed) {
		t.Fatalf("error = %v, want ErrUpstreamMalformed", err)
	}
}
