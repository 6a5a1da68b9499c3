package usecase

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/hszk-dev/bilifx/internal/domain/model"
	"github.com/hszk-dev/bilifx/internal/domain/repository"
	"github.com/hszk-dev/bilifx/internal/infrastructure/cache"
)

func newCachedTestService(t *testing.T, ttl time.Duration,
	meta *mockMetadataFetcher,
	stream *mockStreamURLFetcher,
	short *mockShortLinkResolver,
	episodes *mockEpisodeDirectory,
) ResolveService {
	t.Helper()

	responseCache := cache.NewMemoryResponseCache()
	t.Cleanup(func() { responseCache.Close() })

	return NewCachedResolveService(
		newTestService(meta, stream, short, episodes),
		responseCache,
		CachedResolveServiceConfig{TTL: ttl},
	)
}

func TestCachedResolveMetadata_HitShortCircuitsUpstream(t *testing.T) {
	meta := &mockMetadataFetcher{fetchMetadataFunc: func(ctx context.Context, bvid string) (*model.VideoMetadata, error) {
		return testVideo(bvid), nil
	}}
	svc := newCachedTestService(t, time.Hour, meta, nil, nil, nil)
	ctx := context.Background()

	first, err := svc.ResolveMetadata(ctx, "BV1xK4y1p7")
	if err != nil {
		t.Fatalf("first ResolveMetadata failed: %v", err)
	}
	second, err := svc.ResolveMetadata(ctx, "BV1xK4y1p7")
	if err != nil {
		t.Fatalf("second ResolveMetadata failed: %v", err)
	}

	if meta.calls != 1 {
		t.Errorf("upstream called %d times, want exactly 1", meta.calls)
	}
	if second.Title != first.Title || second.Owner != first.Owner {
		t.Errorf("cached result %+v differs from original %+v", second, first)
	}
}

func TestCachedResolveMetadata_ExpiryTriggersOneRefetch(t *testing.T) {
	meta := &mockMetadataFetcher{fetchMetadataFunc: func(ctx context.Context, bvid string) (*model.VideoMetadata, error) {
		return testVideo(bvid), nil
	}}
	svc := newCachedTestService(t, 20*time.Millisecond, meta, nil, nil, nil)
	ctx := context.Background()

	svc.ResolveMetadata(ctx, "BV1xK4y1p7")
	time.Sleep(40 * time.Millisecond)
	svc.ResolveMetadata(ctx, "BV1xK4y1p7")
	svc.ResolveMetadata(ctx, "BV1xK4y1p7")

	if meta.calls != 2 {
		t.Errorf("upstream called %d times, want 2 (initial + one refetch)", meta.calls)
	}
}

func TestCachedResolveMetadata_ErrorsNotCached(t *testing.T) {
	fail := true
	meta := &mockMetadataFetcher{fetchMetadataFunc: func(ctx context.Context, bvid string) (*model.VideoMetadata, error) {
		if fail {
			return nil, repository.ErrUpstreamUnavailable
		}
		return testVideo(bvid), nil
	}}
	svc := newCachedTestService(t, time.Hour, meta, nil, nil, nil)
	ctx := context.Background()

	if _, err := svc.ResolveMetadata(ctx, "BV1xK4y1p7"); !errors.Is(err, repository.ErrUpstreamUnavailable) {
		t.Fatalf("error = %v, want ErrUpstreamUnavailable", err)
	}

	fail = false
	if _, err := svc.ResolveMetadata(ctx, "BV1xK4y1p7"); err != nil {
		t.Fatalf("recovery attempt failed: %v", err)
	}
	if meta.calls != 2 {
		t.Errorf("upstream called %d times, want 2 (failure was not cached)", meta.calls)
	}
}

func TestCachedResolveStreamURL_DistinctKeysPerParameters(t *testing.T) {
	stream := &mockStreamURLFetcher{fetchStreamURLFunc: func(ctx context.Context, req model.StreamRequest) (string, error) {
		return "https://upos.example.invalid/q" + strconv.Itoa(req.Quality) + ".mp4", nil
	}}
	svc := newCachedTestService(t, time.Hour, nil, stream, nil, nil)
	ctx := context.Background()

	svc.ResolveStreamURL(ctx, model.StreamRequest{BVID: "BV1xK4y1p7", Quality: 32})
	svc.ResolveStreamURL(ctx, model.StreamRequest{BVID: "BV1xK4y1p7", Quality: 80})
	svc.ResolveStreamURL(ctx, model.StreamRequest{BVID: "BV1xK4y1p7", Quality: 32})

	if stream.calls != 2 {
		t.Errorf("upstream called %d times, want 2 (one per distinct quality)", stream.calls)
	}
}

func TestCachedResolveStreamURL_ValidatesBeforeCache(t *testing.T) {
	stream := &mockStreamURLFetcher{fetchStreamURLFunc: func(ctx context.Context, req model.StreamRequest) (string, error) {
		return "https://upos.example.invalid/video.mp4", nil
	}}
	svc := newCachedTestService(t, time.Hour, nil, stream, nil, nil)

	_, err := svc.ResolveStreamURL(context.Background(), model.StreamRequest{})
	if !errors.Is(err, model.ErrInvalidIdentifier) {
		t.Fatalf("error = %v, want ErrInvalidIdentifier", err)
	}
	if stream.calls != 0 {
		t.Errorf("upstream reached despite invalid request")
	}
}

func TestCachedResolveEmbed_UsesCachedLegs(t *testing.T) {
	meta := &mockMetadataFetcher{fetchMetadataFunc: func(ctx context.Context, bvid string) (*model.VideoMetadata, error) {
		return testVideo(bvid), nil
	}}
	stream := &mockStreamURLFetcher{fetchStreamURLFunc: func(ctx context.Context, req model.StreamRequest) (string, error) {
		return "https://upos.example.invalid/video.mp4", nil
	}}
	svc := newCachedTestService(t, time.Hour, meta, stream, nil, nil)
	ctx := context.Background()

	req := model.StreamRequest{BVID: "BV1xK4y1p7"}
	if _, err := svc.ResolveEmbed(ctx, req); err != nil {
		t.Fatalf("first ResolveEmbed failed: %v", err)
	}
	out, err := svc.ResolveEmbed(ctx, req)
	if err != nil {
		t.Fatalf("second ResolveEmbed failed: %v", err)
	}

	if meta.calls != 1 || stream.calls != 1 {
		t.Errorf("upstream calls = %d/%d, want 1/1 (both legs cached)", meta.calls, stream.calls)
	}
	if out.Video.Title != "Test Video" || out.StreamURL == "" {
		t.Errorf("cached embed output incomplete: %+v", out)
	}
}

func TestCachedResolveShortLink_Cached(t *testing.T) {
	short := &mockShortLinkResolver{resolveShortLinkFunc: func(ctx context.Context, token string) (string, error) {
		return "BV1xK4y1p7", nil
	}}
	svc := newCachedTestService(t, time.Hour, nil, nil, short, nil)
	ctx := context.Background()

	svc.ResolveShortLink(ctx, "abcd1234")
	got, err := svc.ResolveShortLink(ctx, "abcd1234")
	if err != nil {
		t.Fatalf("ResolveShortLink failed: %v", err)
	}
	if got != "BV1xK4y1p7" {
		t.Errorf("bvid = %q", got)
	}
	if short.calls != 1 {
		t.Errorf("upstream called %d times, want 1", short.calls)
	}
}

func TestCachedResolveEpisode_KeyedByEpisodeNumber(t *testing.T) {
	episodes := &mockEpisodeDirectory{episodeBVIDFunc: func(ctx context.Context, epID string, episode int) (string, error) {
		if episode == 1 {
			return "BVep1aaaaa", nil
		}
		return "BVep2bbbbb", nil
	}}
	svc := newCachedTestService(t, time.Hour, nil, nil, nil, episodes)
	ctx := context.Background()

	first, _ := svc.ResolveEpisode(ctx, "123456", 1)
	second, _ := svc.ResolveEpisode(ctx, "123456", 2)
	again, _ := svc.ResolveEpisode(ctx, "123456", 1)

	if first != "BVep1aaaaa" || second != "BVep2bbbbb" || again != "BVep1aaaaa" {
		t.Errorf("resolutions = %q/%q/%q", first, second, again)
	}
	if episodes.calls != 2 {
		t.Errorf("upstream called %d times, want 2 (one per episode)", episodes.calls)
	}
}

func TestStreamCacheKey(t *testing.T) {
	tests := []struct {
		name string
		req  model.StreamRequest
		want string
	}{
		{"video token only", model.StreamRequest{BVID: "BV1xK4y1p7"}, "playurl:bv=BV1xK4y1p7"},
		{"episode only", model.StreamRequest{EpisodeID: "123456"}, "playurl:ep=123456"},
		{
			"all parameters",
			model.StreamRequest{BVID: "BV1xK4y1p7", Page: 2, Quality: 80, Format: "mp4"},
			"playurl:bv=BV1xK4y1p7:p=2:q=80:format=mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := streamCacheKey(tt.req); got != tt.want {
				t.Errorf("streamCacheKey = %q, want %q", got, tt.want)
			}
		})
	}
}
