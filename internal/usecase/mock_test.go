package usecase

import (
	"context"

	"github.com/hszk-dev/bilifx/internal/domain/model"
)

// mockMetadataFetcher implements repository.MetadataFetcher for testing.
type mockMetadataFetcher struct {
	fetchMetadataFunc func(ctx context.Context, bvid string) (*model.VideoMetadata, error)
	calls             int
}

func (m *mockMetadataFetcher) FetchMetadata(ctx context.Context, bvid string) (*model.VideoMetadata, error) {
	m.calls++
	return m.fetchMetadataFunc(ctx, bvid)
}

// mockStreamURLFetcher implements repository.StreamURLFetcher for testing.
type mockStreamURLFetcher struct {
	fetchStreamURLFunc func(ctx context.Context, req model.StreamRequest) (string, error)
	calls              int
}

func (m *mockStreamURLFetcher) FetchStreamURL(ctx context.Context, req model.StreamRequest) (string, error) {
	m.calls++
	return m.fetchStreamURLFunc(ctx, req)
}

// mockShortLinkResolver implements repository.ShortLinkResolver for testing.
type mockShortLinkResolver struct {
	resolveShortLinkFunc func(ctx context.Context, token string) (string, error)
	calls                int
}

func (m *mockShortLinkResolver) ResolveShortLink(ctx context.Context, token string) (string, error) {
	m.calls++
	return m.resolveShortLinkFunc(ctx, token)
}

// mockEpisodeDirectory implements repository.EpisodeDirectory for testing.
type mockEpisodeDirectory struct {
	episodeBVIDFunc func(ctx context.Context, epID string, episode int) (string, error)
	calls           int
}

func (m *mockEpisodeDirectory) EpisodeBVID(ctx context.Context, epID string, episode int) (string, error) {
	m.calls++
	return m.episodeBVIDFunc(ctx, epID, episode)
}

func testVideo(bvid string) *model.VideoMetadata {
	return &model.VideoMetadata{
		BVID:      bvid,
		Title:     "Test Video",
		Owner:     "uploader",
		Thumbnail: "https://example.invalid/cover.jpg",
		Width:     model.DefaultWidth,
		Height:    model.DefaultHeight,
	}
}
