package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hszk-dev/bilifx/internal/domain/model"
	"github.com/hszk-dev/bilifx/internal/infrastructure/cache"
)

// CachedResolveServiceConfig holds configuration for CachedResolveService.
type CachedResolveServiceConfig struct {
	// TTL is the validity window for cached resolutions.
	TTL time.Duration
}

// DefaultCachedResolveServiceConfig returns the default configuration.
func DefaultCachedResolveServiceConfig() CachedResolveServiceConfig {
	return CachedResolveServiceConfig{
		TTL: time.Hour,
	}
}

// cachedResolveService wraps ResolveService with caching capabilities.
// It implements the decorator pattern to add caching without modifying the
// underlying service. Only successful resolutions are cached; concurrent
// misses for the same key may each reach upstream, which is tolerated.
type cachedResolveService struct {
	delegate ResolveService
	cache    cache.ResponseCache
	ttl      time.Duration
}

// NewCachedResolveService creates a caching decorator around delegate.
func NewCachedResolveService(
	delegate ResolveService,
	responseCache cache.ResponseCache,
	cfg CachedResolveServiceConfig,
) ResolveService {
	return &cachedResolveService{
		delegate: delegate,
		cache:    responseCache,
		ttl:      cfg.TTL,
	}
}

// metadataJSON is the cached representation of VideoMetadata. An explicit
// struct keeps the cache format independent of the domain type.
type metadataJSON struct {
	BVID        string   `json:"bvid"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Owner       string   `json:"owner"`
	Views       int64    `json:"views"`
	Likes       int64    `json:"likes"`
	Coins       int64    `json:"coins"`
	Favorites   int64    `json:"favorites"`
	Thumbnail   string   `json:"thumbnail"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	FirstFrames []string `json:"first_frames,omitempty"`
}

// ResolveMetadata implements the cache-aside pattern: a hit inside the TTL
// short-circuits the upstream call entirely.
func (s *cachedResolveService) ResolveMetadata(ctx context.Context, bvid string) (*model.VideoMetadata, error) {
	key := metadataCacheKey(bvid)

	if data := s.lookup(ctx, key); data != nil {
		var cached metadataJSON
		if err := json.Unmarshal(data, &cached); err == nil {
			return fromMetadataJSON(cached), nil
		}
		slog.Warn("discarding undecodable metadata cache entry", "key", key)
	}

	video, err := s.delegate.ResolveMetadata(ctx, bvid)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(toMetadataJSON(video)); err == nil {
		s.store(ctx, key, data)
	}
	return video, nil
}

// ResolveStreamURL caches resolved media URLs under a key that encodes every
// request parameter affecting the upstream response.
func (s *cachedResolveService) ResolveStreamURL(ctx context.Context, req model.StreamRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	key := streamCacheKey(req)

	if data := s.lookup(ctx, key); data != nil {
		return string(data), nil
	}

	streamURL, err := s.delegate.ResolveStreamURL(ctx, req)
	if err != nil {
		return "", err
	}

	s.store(ctx, key, []byte(streamURL))
	return streamURL, nil
}

// ResolveEmbed runs both cached resolvers concurrently.
func (s *cachedResolveService) ResolveEmbed(ctx context.Context, req model.StreamRequest) (*EmbedOutput, error) {
	return resolveEmbed(ctx, req, s.ResolveMetadata, s.ResolveStreamURL)
}

// ResolveShortLink caches the token mapping; the redirect target of a short
// link is stable well beyond the TTL.
func (s *cachedResolveService) ResolveShortLink(ctx context.Context, token string) (string, error) {
	key := "b23:" + token

	if data := s.lookup(ctx, key); data != nil {
		return string(data), nil
	}

	bvid, err := s.delegate.ResolveShortLink(ctx, token)
	if err != nil {
		return "", err
	}

	s.store(ctx, key, []byte(bvid))
	return bvid, nil
}

// ResolveEpisode caches the episode-to-token mapping.
func (s *cachedResolveService) ResolveEpisode(ctx context.Context, epID string, episode int) (string, error) {
	key := "ep:" + epID + ":" + strconv.Itoa(episode)

	if data := s.lookup(ctx, key); data != nil {
		return string(data), nil
	}

	bvid, err := s.delegate.ResolveEpisode(ctx, epID, episode)
	if err != nil {
		return "", err
	}

	s.store(ctx, key, []byte(bvid))
	return bvid, nil
}

// lookup reads the cache, treating backend errors as misses.
func (s *cachedResolveService) lookup(ctx context.Context, key string) []byte {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("cache get failed, falling back to upstream",
			"key", key,
			"error", err,
		)
		return nil
	}
	return data
}

// store writes the cache; failures are logged but never propagated.
func (s *cachedResolveService) store(ctx context.Context, key string, data []byte) {
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		slog.Warn("failed to cache resolution",
			"key", key,
			"error", err,
		)
	}
}

func metadataCacheKey(bvid string) string {
	return "view:" + bvid
}

// streamCacheKey deterministically encodes the set request fields. Requests
// differing in any parameter map to distinct entries.
func streamCacheKey(req model.StreamRequest) string {
	var b strings.Builder
	b.WriteString("playurl:")
	if req.BVID != "" {
		b.WriteString("bv=" + req.BVID)
	} else {
		b.WriteString("ep=" + req.EpisodeID)
	}
	if req.Page > 0 {
		b.WriteString(":p=" + strconv.Itoa(req.Page))
	}
	if req.Quality > 0 {
		b.WriteString(":q=" + strconv.Itoa(req.Quality))
	}
	if req.Format != "" {
		b.WriteString(":format=" + req.Format)
	}
	return b.String()
}

func toMetadataJSON(v *model.VideoMetadata) metadataJSON {
	return metadataJSON{
		BVID:        v.BVID,
		Title:       v.Title,
		Description: v.Description,
		Owner:       v.Owner,
		Views:       v.Views,
		Likes:       v.Likes,
		Coins:       v.Coins,
		Favorites:   v.Favorites,
		Thumbnail:   v.Thumbnail,
		Width:       v.Width,
		Height:      v.Height,
		FirstFrames: v.FirstFrames,
	}
}

func fromMetadataJSON(m metadataJSON) *model.VideoMetadata {
	return &model.VideoMetadata{
		BVID:        m.BVID,
		Title:       m.Title,
		Description: m.Description,
		Owner:       m.Owner,
		Views:       m.Views,
		Likes:       m.Likes,
		Coins:       m.Coins,
		Favorites:   m.Favorites,
		Thumbnail:   m.Thumbnail,
		Width:       m.Width,
		Height:      m.Height,
		FirstFrames: m.FirstFrames,
	}
}
