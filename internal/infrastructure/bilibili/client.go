// Package bilibili implements the upstream HTTP clients for the Bilibili web
// APIs, the bparse stream resolver and the b23.tv short-link service.
package bilibili

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hszk-dev/bilifx/internal/domain/repository"
)

// Config holds upstream endpoints and transport settings.
type Config struct {
	// APIBase is the Bilibili web API origin, e.g. https://api.bilibili.com.
	APIBase string
	// ParseBase is the bparse stream resolver endpoint.
	ParseBase string
	// ShortLinkBase is the short-link service origin, e.g. https://b23.tv.
	ShortLinkBase string
	// ProxyURL optionally routes stream-URL resolution through an outbound
	// proxy. Metadata and short-link calls are not proxied.
	ProxyURL string
	// UserAgent is sent on every upstream request.
	UserAgent string
	// Timeout bounds each individual upstream call.
	Timeout time.Duration
	// RetryAttempts is the total attempt budget for the stream-URL path.
	RetryAttempts int
	// RetryPause is the pause between retry attempts.
	RetryPause time.Duration
}

// Client calls the upstream collaborator APIs. It implements
// repository.MetadataFetcher, repository.StreamURLFetcher,
// repository.ShortLinkResolver and repository.EpisodeDirectory and is safe
// for concurrent use.
type Client struct {
	api   *http.Client // view + ep-list calls
	parse *http.Client // bparse calls, optionally proxied
	short *http.Client // short-link calls, stops before the watch page

	apiBase   string
	parseBase string
	shortBase string
	userAgent string
	retry     retryPolicy
}

// New creates a Client from the provided configuration.
func New(cfg Config) (*Client, error) {
	api := &http.Client{Timeout: cfg.Timeout}

	parse := api
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy URL: %w", err)
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		parse = &http.Client{Timeout: cfg.Timeout, Transport: transport}
	}

	short := &http.Client{Timeout: cfg.Timeout, CheckRedirect: stopAtWatchPage}

	return &Client{
		api:       api,
		parse:     parse,
		short:     short,
		apiBase:   strings.TrimRight(cfg.APIBase, "/"),
		parseBase: strings.TrimRight(cfg.ParseBase, "/"),
		shortBase: strings.TrimRight(cfg.ShortLinkBase, "/"),
		userAgent: cfg.UserAgent,
		retry:     retryPolicy{attempts: cfg.RetryAttempts, pause: cfg.RetryPause},
	}, nil
}

// get issues a GET carrying the identifying User-Agent header. Transport
// failures are wrapped as ErrUpstreamUnavailable with the cause preserved
// for transient classification.
func (c *Client) get(ctx context.Context, hc *http.Client, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", repository.ErrUpstreamUnavailable, err)
	}
	return resp, nil
}

func successStatus(code int) bool {
	return code >= 200 && code < 300
}
