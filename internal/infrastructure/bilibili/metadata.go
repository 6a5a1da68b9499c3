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

// viewEnvelope is the wire shape of the view API response. Code 0 is the
// success sentinel; any other value is an application-level rejection.
type viewEnvelope struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Data    *viewData `json:"data"`
}

type viewData struct {
	Title string `json:"title"`
	Desc  string `json:"desc"`
	Pic   string `json:"pic"`
	Owner struct {
		Name string `json:"name"`
	} `json:"owner"`
	Stat struct {
		View     int64 `json:"view"`
		Like     int64 `json:"like"`
		Coin     int64 `json:"coin"`
		Favorite int64 `json:"favorite"`
	} `json:"stat"`
	Dimension struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"dimension"`
	Pages []struct {
		FirstFrame string `json:"first_frame"`
	} `json:"pages"`
}

// FetchMetadata resolves a canonical video token via the view API. The call
// is never retried: a not-found or malformed result is not transient.
func (c *Client) FetchMetadata(ctx context.Context, bvid string) (*model.VideoMetadata, error) {
	endpoint := c.apiBase + "/x/web-interface/view?bvid=" + url.QueryEscape(bvid)

	resp, err := c.get(ctx, c.api, endpoint)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIView, metrics.StatusUnavailable).Inc()
		return nil, err
	}
	defer resp.Body.Close()

	if !successStatus(resp.StatusCode) {
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIView, metrics.StatusUnavailable).Inc()
		return nil, fmt.Errorf("%w: view API status %d", repository.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var env viewEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIView, metrics.StatusMalformed).Inc()
		return nil, fmt.Errorf("%w: decode view body: %v", repository.ErrUpstreamMalformed, err)
	}

	if env.Code != 0 {
		msg := env.Message
		if msg == "" {
			msg = "invalid Bilibili video ID"
		}
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIView, metrics.StatusNotFound).Inc()
		return nil, fmt.Errorf("%w: %s", repository.ErrVideoNotFound, msg)
	}

	if env.Data == nil || env.Data.Title == "" || env.Data.Pic == "" {
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIView, metrics.StatusMalformed).Inc()
		return nil, fmt.Errorf("%w: view payload missing required fields", repository.ErrUpstreamMalformed)
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(metrics.APIView, metrics.StatusOK).Inc()
	return toVideoMetadata(bvid, env.Data), nil
}

// toVideoMetadata maps the wire payload into the domain entity, applying
// defaults for the optional fields.
func toVideoMetadata(bvid string, d *viewData) *model.VideoMetadata {
	v := &model.VideoMetadata{
		BVID:        bvid,
		Title:       d.Title,
		Description: d.Desc,
		Owner:       d.Owner.Name,
		Views:       d.Stat.View,
		Likes:       d.Stat.Like,
		Coins:       d.Stat.Coin,
		Favorites:   d.Stat.Favorite,
		Thumbnail:   d.Pic,
		Width:       d.Dimension.Width,
		Height:      d.Dimension.Height,
	}
	if v.Owner == "" {
		v.Owner = model.DefaultOwner
	}
	if v.Width <= 0 {
		v.Width = model.DefaultWidth
	}
	if v.Height <= 0 {
		v.Height = model.DefaultHeight
	}
	for _, p := range d.Pages {
		v.FirstFrames = append(v.FirstFrames, p.FirstFrame)
	}
	return v
}
