package model

import (
	"errors"
	"testing"
)

func TestNormalizeVideoID_AcceptedVariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bare token", "BV1xK4y1p7"},
		{"www watch URL", "https://www.bilibili.com/video/BV1xK4y1p7"},
		{"mobile watch URL", "https://m.bilibili.com/video/BV1xK4y1p7"},
		{"bare domain watch URL", "https://bilibili.com/video/BV1xK4y1p7"},
		{"watch URL with query", "https://www.bilibili.com/video/BV1xK4y1p7?from=share&t=12"},
		{"mobile watch URL with query", "https://m.bilibili.com/video/BV1xK4y1p7?from=share"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeVideoID(tt.input)
			if err != nil {
				t.Fatalf("NormalizeVideoID(%q) failed: %v", tt.input, err)
			}
			if got != "BV1xK4y1p7" {
				t.Errorf("NormalizeVideoID(%q) = %q, want %q", tt.input, got, "BV1xK4y1p7")
			}
		})
	}
}

func TestNormalizeVideoID_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"random text", "not a video"},
		{"wrong host", "https://example.com/video/BV1xK4y1p7"},
		{"wrong path", "https://www.bilibili.com/bangumi/play/ep12345"},
		{"subdomain not allowed", "https://api.bilibili.com/video/BV1xK4y1p7"},
		{"token with punctuation", "BV1xK4y1p7!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeVideoID(tt.input)
			if !errors.Is(err, ErrInvalidIdentifier) {
				t.Fatalf("NormalizeVideoID(%q) error = %v, want ErrInvalidIdentifier", tt.input, err)
			}
			if got != "" {
				t.Errorf("NormalizeVideoID(%q) returned partial token %q", tt.input, got)
			}
		})
	}
}

func TestStripQuery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no query", "https://b23.tv/abcd", "https://b23.tv/abcd"},
		{"with query", "https://m.bilibili.com/video/BV1xK4y1p7?from=share", "https://m.bilibili.com/video/BV1xK4y1p7"},
		{"fragment kept", "https://www.bilibili.com/video/BV1xK4y1p7?t=1#top", "https://www.bilibili.com/video/BV1xK4y1p7#top"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripQuery(tt.input); got != tt.want {
				t.Errorf("StripQuery(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsWatchPageURL(t *testing.T) {
	if !IsWatchPageURL("https://m.bilibili.com/video/BV1xK4y1p7?from=share") {
		t.Error("expected watch page URL to match")
	}
	if IsWatchPageURL("https://b23.tv/abcd") {
		t.Error("expected short link not to match")
	}
}
