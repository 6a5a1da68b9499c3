package bilibili

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hszk-dev/bilifx/internal/domain/model"
	"github.com/hszk-dev/bilifx/internal/domain/repository"
	"github.com/hszk-dev/bilifx/internal/infrastructure/metrics"
)

// playEnvelope is the wire shape of the bparse response.
type playEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

// FetchStreamURL obtains a time-limited direct media URL for the request.
// Transient transport failures are retried up to the configured attempt
// budget; application-level rejections propagate immediately.
func (c *Client) FetchStreamURL(ctx context.Context, req model.StreamRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	endpoint := c.parseBase + "/?" + req.Query().Encode()

	var streamURL string
	err := c.retry.do(ctx, func() error {
		u, err := c.fetchStreamURLOnce(ctx, endpoint)
		if err != nil {
			return err
		}
		streamURL = u
		return nil
	})
	return streamURL, err
}

func (c *Client) fetchStreamURLOnce(ctx context.Context, endpoint string) (string, error) {
	resp, err := c.get(ctx, c.parse, endpoint)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIPlayURL, metrics.StatusUnavailable).Inc()
		return "", err
	}
	defer resp.Body.Close()

	if !successStatus(resp.StatusCode) {
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIPlayURL, metrics.StatusUnavailable).Inc()
		return "", fmt.Errorf("%w: stream API status %d", repository.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var env playEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIPlayURL, metrics.StatusMalformed).Inc()
		return "", fmt.Errorf("%w: decode stream body: %v", repository.ErrUpstreamMalformed, err)
	}

	if env.Code != 0 {
		msg := env.Message
		if msg == "" {
			msg = "failed to retrieve video URL"
		}
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIPlayURL, metrics.StatusNotFound).Inc()
		return "", fmt.Errorf("%w: %s", repository.ErrVideoNotFound, msg)
	}

	if env.URL == "" {
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIPlayURL, metrics.StatusMalformed).Inc()
		return "", fmt.Errorf("%w: stream payload missing url", repository.ErrUpstreamMalformed)
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIPlayURL, metrics.StatusOK).Inc()
	return env.URL, nil
}
