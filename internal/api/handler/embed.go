package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/bilifx/internal/domain/model"
	"github.com/hszk-dev/bilifx/internal/domain/repository"
	"github.com/hszk-dev/bilifx/internal/relay"
	"github.com/hszk-dev/bilifx/internal/usecase"
)

// EmbedHandlerConfig holds configuration for EmbedHandler.
type EmbedHandlerConfig struct {
	// WatchPageBase is where non-crawler clients are redirected,
	// e.g. https://www.bilibili.com.
	WatchPageBase string
	// ShortLinkBase is the short-link origin used for non-crawler
	// redirects on the /b23 routes.
	ShortLinkBase string
	// RelayEnabled selects between relaying media bytes through this
	// origin and redirecting to the resolved media URL on /dl routes.
	RelayEnabled bool
}

// EmbedHandler serves the embed, short-link and download routes.
type EmbedHandler struct {
	svc    usecase.ResolveService
	relay  *relay.Relay
	cfg    EmbedHandlerConfig
	logger *slog.Logger
}

// NewEmbedHandler creates a new EmbedHandler.
func NewEmbedHandler(svc usecase.ResolveService, rly *relay.Relay, cfg EmbedHandlerConfig, logger *slog.Logger) *EmbedHandler {
	return &EmbedHandler{
		svc:    svc,
		relay:  rly,
		cfg:    cfg,
		logger: logger,
	}
}

// Index handles GET /
func (h *EmbedHandler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Usage: append a Bilibili video ID to the URL, e.g. /BV1xK4y1p7 or /video/BV1xK4y1p7\n")
}

// Favicon handles GET /favicon.ico
func (h *EmbedHandler) Favicon(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// Embed handles GET /{id} and GET /video/{id}
func (h *EmbedHandler) Embed(w http.ResponseWriter, r *http.Request) {
	bvid, err := model.NormalizeVideoID(chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	if !isEmbedCrawler(r.UserAgent()) {
		http.Redirect(w, r, h.cfg.WatchPageBase+"/video/"+bvid, http.StatusFound)
		return
	}

	h.serveEmbed(w, r, bvid)
}

// EmbedShortLink handles GET /b23/{token}
func (h *EmbedHandler) EmbedShortLink(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if !isEmbedCrawler(r.UserAgent()) {
		http.Redirect(w, r, h.cfg.ShortLinkBase+"/"+token, http.StatusFound)
		return
	}

	bvid, err := h.svc.ResolveShortLink(r.Context(), token)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.serveEmbed(w, r, bvid)
}

// EmbedEpisode handles GET /ep/{epid}; the optional episode query parameter
// selects the 1-indexed episode, defaulting to the first.
func (h *EmbedHandler) EmbedEpisode(w http.ResponseWriter, r *http.Request) {
	epID := chi.URLParam(r, "epid")

	episode, err := episodeNumber(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	bvid, err := h.svc.ResolveEpisode(r.Context(), epID, episode)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	if !isEmbedCrawler(r.UserAgent()) {
		http.Redirect(w, r, h.cfg.WatchPageBase+"/video/"+bvid, http.StatusFound)
		return
	}

	h.serveEmbed(w, r, bvid)
}

// Download handles GET /dl/{id}
func (h *EmbedHandler) Download(w http.ResponseWriter, r *http.Request) {
	bvid, err := model.NormalizeVideoID(chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	req := model.StreamRequest{BVID: bvid}
	req.Page, req.Quality, req.Format = streamQuery(r)
	h.serveDownload(w, r, req)
}

// DownloadEpisode handles GET /dl/ep/{epid}; the episode identifier is
// passed straight to the stream resolver.
func (h *EmbedHandler) DownloadEpisode(w http.ResponseWriter, r *http.Request) {
	req := model.StreamRequest{EpisodeID: chi.URLParam(r, "epid")}
	req.Page, req.Quality, req.Format = streamQuery(r)
	h.serveDownload(w, r, req)
}

// DownloadShortLink handles GET /dl/b23/{token}
func (h *EmbedHandler) DownloadShortLink(w http.ResponseWriter, r *http.Request) {
	bvid, err := h.svc.ResolveShortLink(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	req := model.StreamRequest{BVID: bvid}
	req.Page, req.Quality, req.Format = streamQuery(r)
	h.serveDownload(w, r, req)
}

func (h *EmbedHandler) serveEmbed(w http.ResponseWriter, r *http.Request, bvid string) {
	req := model.StreamRequest{BVID: bvid}
	req.Page, req.Quality, req.Format = streamQuery(r)

	out, err := h.svc.ResolveEmbed(r.Context(), req)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderEmbed(w, out.Video, out.StreamURL, requestURL(r)); err != nil {
		h.logger.Error("render embed document", slog.Any("error", err))
	}
}

func (h *EmbedHandler) serveDownload(w http.ResponseWriter, r *http.Request, req model.StreamRequest) {
	mediaURL, err := h.svc.ResolveStreamURL(r.Context(), req)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	if !h.cfg.RelayEnabled {
		http.Redirect(w, r, mediaURL, http.StatusFound)
		return
	}

	stream, err := h.relay.Open(r.Context(), mediaURL)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", stream.ContentType)
	if stream.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(stream.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for {
		chunk, err := stream.Next()
		if len(chunk) > 0 {
			if _, werr := w.Write(chunk); werr != nil {
				h.logger.Info("relay aborted by client", slog.Any("error", werr))
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			h.logger.Error("relay interrupted", slog.Any("error", err))
			return
		}
	}
}

// renderError maps the failure kind to a status and renders the error page
// carrying the failure message. Stack traces never reach the client.
func (h *EmbedHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, model.ErrInvalidIdentifier) || errors.Is(err, repository.ErrVideoNotFound) {
		status = http.StatusNotFound
	}

	h.logger.Error("resolution failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if rerr := renderErrorPage(w, err.Error()); rerr != nil {
		h.logger.Error("render error page", slog.Any("error", rerr))
	}
}

// isEmbedCrawler reports whether the request comes from a link-unfurling
// crawler rather than a browser.
func isEmbedCrawler(userAgent string) bool {
	return strings.Contains(userAgent, "Discordbot")
}

// streamQuery extracts the optional stream parameters from the query string.
// Unparseable values are treated as unset.
func streamQuery(r *http.Request) (page, quality int, format string) {
	q := r.URL.Query()
	page, _ = strconv.Atoi(q.Get("p"))
	quality, _ = strconv.Atoi(q.Get("q"))
	return page, quality, q.Get("format")
}

// episodeNumber reads the 1-indexed episode query parameter, defaulting to 1.
func episodeNumber(r *http.Request) (int, error) {
	v := r.URL.Query().Get("episode")
	if v == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, model.ErrInvalidIdentifier
	}
	return n, nil
}

// requestURL reconstructs the absolute inbound URL for the OG tags.
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
