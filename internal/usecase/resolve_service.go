package usecase

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hszk-dev/bilifx/internal/domain/model"
	"github.com/hszk-dev/bilifx/internal/domain/repository"
)

// EmbedOutput bundles everything the embed document needs.
type EmbedOutput struct {
	Video     *model.VideoMetadata
	StreamURL string
}

// ResolveService defines the interface for the resolution pipeline.
type ResolveService interface {
	// ResolveMetadata resolves a canonical video token into its metadata.
	ResolveMetadata(ctx context.Context, bvid string) (*model.VideoMetadata, error)

	// ResolveStreamURL resolves a stream request into a playable media URL.
	ResolveStreamURL(ctx context.Context, req model.StreamRequest) (string, error)

	// ResolveEmbed resolves metadata and stream URL for the embed document.
	// The request must carry a video token.
	ResolveEmbed(ctx context.Context, req model.StreamRequest) (*EmbedOutput, error)

	// ResolveShortLink maps a short-link token to a canonical video token.
	ResolveShortLink(ctx context.Context, token string) (string, error)

	// ResolveEpisode maps the 1-indexed episode of a series to its
	// underlying video token.
	ResolveEpisode(ctx context.Context, epID string, episode int) (string, error)
}

type resolveService struct {
	meta     repository.MetadataFetcher
	stream   repository.StreamURLFetcher
	short    repository.ShortLinkResolver
	episodes repository.EpisodeDirectory
}

// NewResolveService creates a ResolveService backed by the provided upstream
// clients.
func NewResolveService(
	meta repository.MetadataFetcher,
	stream repository.StreamURLFetcher,
	short repository.ShortLinkResolver,
	episodes repository.EpisodeDirectory,
) ResolveService {
	return &resolveService{
		meta:     meta,
		stream:   stream,
		short:    short,
		episodes: episodes,
	}
}

func (s *resolveService) ResolveMetadata(ctx context.Context, bvid string) (*model.VideoMetadata, error) {
	return s.meta.FetchMetadata(ctx, bvid)
}

func (s *resolveService) ResolveStreamURL(ctx context.Context, req model.StreamRequest) (string, error) {
	return s.stream.FetchStreamURL(ctx, req)
}

func (s *resolveService) ResolveEmbed(ctx context.Context, req model.StreamRequest) (*EmbedOutput, error) {
	return resolveEmbed(ctx, req, s.ResolveMetadata, s.ResolveStreamURL)
}

func (s *resolveService) ResolveShortLink(ctx context.Context, token string) (string, error) {
	return s.short.ResolveShortLink(ctx, token)
}

func (s *resolveService) ResolveEpisode(ctx context.Context, epID string, episode int) (string, error) {
	return s.episodes.EpisodeBVID(ctx, epID, episode)
}

// resolveEmbed runs the two resolvers concurrently. Shared by the plain and
// cached services so the cached variant checks its cache on both legs.
func resolveEmbed(
	ctx context.Context,
	req model.StreamRequest,
	metaFn func(context.Context, string) (*model.VideoMetadata, error),
	streamFn func(context.Context, model.StreamRequest) (string, error),
) (*EmbedOutput, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.BVID == "" {
		return nil, fmt.Errorf("%w: embed rendering requires a video token", model.ErrInvalidIdentifier)
	}

	out := &EmbedOutput{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := metaFn(gctx, req.BVID)
		if err != nil {
			return err
		}
		out.Video = v
		return nil
	})
	g.Go(func() error {
		u, err := streamFn(gctx, req)
		if err != nil {
			return err
		}
		out.StreamURL = u
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
