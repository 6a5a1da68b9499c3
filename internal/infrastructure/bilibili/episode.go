package bilibili

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/hszk-dev/bilifx/internal/domain/model"
	"github.com/hszk-dev/bilifx/internal/domain/repository"
	"github.com/hszk-dev/bilifx/internal/infrastructure/metrics"
)

type epListEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Result  struct {
		Episodes []struct {
			BVID string `json:"bvid"`
		} `json:"episodes"`
	} `json:"result"`
}

// EpisodeBVID maps the 1-indexed episode of a series to its underlying video
// token via the ep-list API.
func (c *Client) EpisodeBVID(ctx context.Context, epID string, episode int) (string, error) {
	endpoint := c.apiBase + "/pgc/view/web/ep/list?ep_id=" + url.QueryEscape(epID)

	resp, err := c.get(ctx, c.api, endpoint)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIEpList, metrics.StatusUnavailable).Inc()
		return "", err
	}
	defer resp.Body.Close()

	if !successStatus(resp.StatusCode) {
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIEpList, metrics.StatusUnavailable).Inc()
		return "", fmt.Errorf("%w: ep-list API status %d", repository.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var env epListEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIEpList, metrics.StatusMalformed).Inc()
		return "", fmt.Errorf("%w: decode ep-list body: %v", repository.ErrUpstreamMalformed, err)
	}

	if env.Code != 0 {
		msg := env.Message
		if msg == "" {
			msg = "episode list not found"
		}
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIEpList, metrics.StatusNotFound).Inc()
		return "", fmt.Errorf("%w: %s", repository.ErrVideoNotFound, msg)
	}

	episodes := env.Result.Episodes
	if episode < 1 || episode > len(episodes) {
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIEpList, metrics.StatusNotFound).Inc()
		return "", fmt.Errorf("%w: episode %d out of range for %s", model.ErrInvalidIdentifier, episode, epID)
	}

	bvid := episodes[episode-1].BVID
	if bvid == "" {
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIEpList, metrics.StatusMalformed).Inc()
		return "", fmt.Errorf("%w: episode entry missing bvid", repository.ErrUpstreamMalformed)
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIEpList, metrics.StatusOK).Inc()
	return bvid, nil
}
