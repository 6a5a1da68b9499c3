package repository

import (
	"context"

	"github.com/hszk-dev/bilifx/internal/domain/model"
)

// MetadataFetcher retrieves video metadata from the upstream view API.
type MetadataFetcher interface {
	// FetchMetadata resolves a canonical video token into its metadata.
	// Fails with ErrUpstreamUnavailable, ErrUpstreamMalformed or
	// ErrVideoNotFound; it never retries.
	FetchMetadata(ctx context.Context, bvid string) (*model.VideoMetadata, error)
}

// StreamURLFetcher obtains a time-limited direct media URL.
type StreamURLFetcher interface {
	// FetchStreamURL resolves the request into a playable media URL,
	// retrying transient transport failures up to a bounded attempt count.
	FetchStreamURL(ctx context.Context, req model.StreamRequest) (string, error)
}

// ShortLinkResolver follows a short-link token to its watch-page target.
type ShortLinkResolver interface {
	// ResolveShortLink returns the canonical video token the short link
	// lands on, or model.ErrInvalidIdentifier when the landing URL is not
	// a watch page.
	ResolveShortLink(ctx context.Context, token string) (string, error)
}

// EpisodeDirectory maps an episode of a series to its underlying video token.
type EpisodeDirectory interface {
	// EpisodeBVID returns the video token of the 1-indexed episode.
	// Out-of-range episode numbers fail with model.ErrInvalidIdentifier.
	EpisodeBVID(ctx context.Context, epID string, episode int) (string, error)
}
