package bilibili

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/hszk-dev/bilifx/internal/domain/model"
	"github.com/hszk-dev/bilifx/internal/infrastructure/metrics"
)

const maxShortLinkRedirects = 10

// stopAtWatchPage keeps the redirect chain from fetching the watch page
// itself: only the landing URL matters, never its body.
func stopAtWatchPage(req *http.Request, via []*http.Request) error {
	if model.IsWatchPageURL(req.URL.String()) {
		return http.ErrUseLastResponse
	}
	if len(via) >= maxShortLinkRedirects {
		return errors.New("too many redirects")
	}
	return nil
}

// ResolveShortLink follows a b23.tv token through its redirect chain and
// normalizes the landing URL into a canonical video token. A landing URL
// that is not a watch page fails with model.ErrInvalidIdentifier.
func (c *Client) ResolveShortLink(ctx context.Context, token string) (string, error) {
	endpoint := c.shortBase + "/" + url.PathEscape(token)

	resp, err := c.get(ctx, c.short, endpoint)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIShortLink, metrics.StatusUnavailable).Inc()
		return "", err
	}
	defer resp.Body.Close()

	// When the chain stopped short of the watch page, the landing URL is
	// the unfollowed Location of the last redirect.
	landing := resp.Request.URL.String()
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		if loc := resp.Header.Get("Location"); loc != "" {
			if u, err := resp.Request.URL.Parse(loc); err == nil {
				landing = u.String()
			}
		}
	}

	bvid, err := model.NormalizeVideoID(model.StripQuery(landing))
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIShortLink, metrics.StatusNotFound).Inc()
		return "", err
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIShortLink, metrics.StatusOK).Inc()
	return bvid, nil
}
