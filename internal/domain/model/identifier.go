package model

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

// ErrInvalidIdentifier is returned when an input cannot be normalized into a
// canonical video identifier. It is never retryable.
var ErrInvalidIdentifier = errors.New("invalid video identifier")

var (
	// bvidPattern is the shape of a canonical video token.
	bvidPattern = regexp.MustCompile(`^BV[0-9A-Za-z]+$`)

	// watchPagePattern matches a watch-page URL after its query string has
	// been stripped. Mobile and desktop subdomains are both accepted.
	watchPagePattern = regexp.MustCompile(`^https?://(?:www\.|m\.)?bilibili\.com/video/([0-9A-Za-z]+)`)
)

// NormalizeVideoID extracts the canonical video token from a free-form input:
// a raw token matching the ID shape is accepted unchanged, a watch-page URL
// has its token extracted after query stripping, and anything else fails with
// ErrInvalidIdentifier. A token is never partially extracted from an input
// that does not match the watch-page pattern.
func NormalizeVideoID(input string) (string, error) {
	if bvidPattern.MatchString(input) {
		return input, nil
	}
	if m := watchPagePattern.FindStringSubmatch(StripQuery(input)); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, input)
}

// IsWatchPageURL reports whether rawURL points at a watch page. Query
// parameters are stripped before matching.
func IsWatchPageURL(rawURL string) bool {
	return watchPagePattern.MatchString(StripQuery(rawURL))
}

// StripQuery removes the query string from rawURL, leaving everything else
// intact. Unparseable inputs are returned unchanged; they will fail the
// watch-page match anyway.
func StripQuery(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	return u.String()
}
