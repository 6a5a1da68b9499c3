package bilibili

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"time"

	"github.com/hszk-dev/bilifx/internal/infrastructure/metrics"
)

// retryPolicy retries an operation on transient transport failures with a
// brief pause between attempts.
type retryPolicy struct {
	attempts int
	pause    time.Duration
}

// do runs op until it succeeds, fails non-transiently or exhausts the
// attempt budget. The last error propagates unchanged.
func (p retryPolicy) do(ctx context.Context, op func() error) error {
	attempts := p.attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = op()
		if err == nil || !isTransient(err) || attempt == attempts {
			return err
		}

		metrics.UpstreamRetriesTotal.Inc()
		slog.Info("retrying upstream request",
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)

		select {
		case <-ctx.Done():
			return err
		case <-time.After(p.pause):
		}
	}
}

// isTransient classifies transport-layer failures: connection and proxy
// errors surface as *url.Error from http.Client.Do, timeouts as net.Error
// or context.DeadlineExceeded. Application-level rejections, malformed
// bodies and caller cancellation are never transient.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue)
}
