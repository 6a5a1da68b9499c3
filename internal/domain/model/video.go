package model

import (
	"fmt"
	"net/url"
	"strconv"
)

// Field defaults applied when the upstream view API omits optional data.
const (
	DefaultOwner  = "???"
	DefaultWidth  = 1920
	DefaultHeight = 1080
)

// VideoMetadata holds the subset of the upstream view API payload needed to
// render an embed document. It is built once per resolution and never mutated
// afterwards; the cache stores its serialized form, not the value itself.
type VideoMetadata struct {
	BVID        string
	Title       string
	Description string
	Owner       string
	Views       int64
	Likes       int64
	Coins       int64
	Favorites   int64
	Thumbnail   string
	Width       int
	Height      int
	// FirstFrames holds the per-page preview images in page order. Entries
	// may be empty when the upstream omits first_frame for a page.
	FirstFrames []string
}

// PreviewImage returns the best available still for the video: the first
// page's first frame when present, otherwise the cover thumbnail.
func (v *VideoMetadata) PreviewImage() string {
	if len(v.FirstFrames) > 0 && v.FirstFrames[0] != "" {
		return v.FirstFrames[0]
	}
	return v.Thumbnail
}

// StreamRequest identifies the media stream to resolve. Exactly one of BVID
// or EpisodeID must be set. Zero-valued optional fields are omitted from the
// upstream query and from cache keys.
type StreamRequest struct {
	BVID      string
	EpisodeID string
	Page      int    // 1-indexed, 0 means unset
	Quality   int    // upstream quality tier, 0 means unset
	Format    string // output container, empty means unset
}

// Validate enforces the exactly-one-identifier invariant. It must pass
// before the request reaches any resolver.
func (r StreamRequest) Validate() error {
	if (r.BVID == "") == (r.EpisodeID == "") {
		return fmt.Errorf("%w: exactly one of video ID or episode ID must be set", ErrInvalidIdentifier)
	}
	return nil
}

// Query encodes the set fields as upstream query parameters.
func (r StreamRequest) Query() url.Values {
	q := url.Values{}
	if r.BVID != "" {
		q.Set("bv", r.BVID)
	}
	if r.EpisodeID != "" {
		q.Set("ep", r.EpisodeID)
	}
	if r.Page > 0 {
		q.Set("p", strconv.Itoa(r.Page))
	}
	if r.Quality > 0 {
		q.Set("q", strconv.Itoa(r.Quality))
	}
	if r.Format != "" {
		q.Set("format", r.Format)
	}
	return q
}
