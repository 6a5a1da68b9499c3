package handler

import (
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/hszk-dev/bilifx/internal/domain/model"
)

// embedTemplateText is the OG/Twitter Player document consumed by messaging
// platforms when they unfurl a link.
const embedTemplateText = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="theme-color" content="#0fa6d8">
<meta property="og:title" content="{{.OwnerTitle}}">
<meta property="og:type" content="video">
<meta property="og:site_name" content="{{.SiteName}}">
<meta property="og:url" content="{{.CurrentURL}}">
<meta property="og:video" content="{{.StreamURL}}">
<meta property="og:video:secure_url" content="{{.StreamURL}}">
<meta property="og:video:type" content="video/mp4">
<meta property="og:video:width" content="{{.Width}}">
<meta property="og:video:height" content="{{.Height}}">
<meta property="og:image" content="{{.Image}}">
<meta name="twitter:card" content="player">
<meta name="twitter:title" content="{{.Title}}">
<meta name="twitter:description" content="{{.Description}}">
<meta name="twitter:image" content="{{.Image}}">
<meta name="twitter:player" content="{{.CurrentURL}}">
<meta name="twitter:player:width" content="{{.Width}}">
<meta name="twitter:player:height" content="{{.Height}}">
<title>{{.Title}}</title>
</head>
</html>
`

const errorTemplateText = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta property="og:title" content="Error - Video Not Found">
<meta property="og:description" content="{{.Message}}">
<meta name="twitter:card" content="summary">
<meta name="twitter:title" content="Error - Video Not Found">
<meta name="twitter:description" content="{{.Message}}">
<title>Error</title>
<style>
body {
  font-family: sans-serif;
  background: #f9f9f9;
  color: #333;
  padding: 2rem;
}
</style>
</head>
<body>
<h1>Error</h1>
<p>{{.Message}}</p>
</body>
</html>
`

var (
	embedTmpl = template.Must(template.New("embed").Parse(embedTemplateText))
	errorTmpl = template.Must(template.New("error").Parse(errorTemplateText))
)

type embedData struct {
	OwnerTitle  string
	Title       string
	Description string
	SiteName    string
	CurrentURL  string
	StreamURL   string
	Image       string
	Width       int
	Height      int
}

func renderEmbed(w io.Writer, video *model.VideoMetadata, streamURL, currentURL string) error {
	return embedTmpl.Execute(w, embedData{
		OwnerTitle:  video.Owner + " - " + video.Title,
		Title:       video.Title,
		Description: video.Description,
		SiteName:    statLine(video),
		CurrentURL:  currentURL,
		StreamURL:   streamURL,
		Image:       video.PreviewImage(),
		Width:       video.Width,
		Height:      video.Height,
	})
}

func renderErrorPage(w io.Writer, message string) error {
	return errorTmpl.Execute(w, struct{ Message string }{Message: message})
}

// statLine builds the og:site_name counter strip.
func statLine(video *model.VideoMetadata) string {
	return "👁️ " + groupDigits(video.Views) +
		" 👍 " + groupDigits(video.Likes) +
		" 🪙 " + groupDigits(video.Coins) +
		" ⭐ " + groupDigits(video.Favorites)
}

// groupDigits formats a non-negative count with thousands separators.
func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
