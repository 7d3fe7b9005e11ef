// Package preview serves a generated header over HTTP the way the firmware
// does: the embedded gzip bytes are sent as-is with Content-Encoding: gzip.
//
// It lets the front-end be checked in a desktop browser before flashing.
package preview

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/julianknutsen/pgmembed/internal/artifact"
)

// CacheControl matches the header the firmware sends with the page.
const CacheControl = "max-age=86400"

// Server serves one header file at "/". The header is re-read on every
// request so a rebuild shows up without restarting.
type Server struct {
	headerPath string
	logger     *slog.Logger
	mux        *http.ServeMux
}

// New creates a Server for the header at headerPath.
func New(headerPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		headerPath: headerPath,
		logger:     logger,
		mux:        http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /{$}", s.handlePage)
	s.mux.HandleFunc("GET /index.html", s.handlePage)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) load() (*artifact.Header, error) {
	f, err := os.Open(s.headerPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return artifact.Parse(f)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	h, err := s.load()
	if err != nil {
		s.fallback(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("Cache-Control", CacheControl)
	w.Header().Set("Vary", "Accept-Encoding")

	if acceptsGzip(r) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Length", strconv.Itoa(len(h.Data)))
		_, _ = w.Write(h.Data)
		return
	}

	// The firmware always sends gzip; decode for clients that refuse it.
	page, err := h.Decompress()
	if err != nil {
		s.fallback(w, err)
		return
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(page)))
	_, _ = w.Write(page)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h, err := s.load()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "%s: %d bytes (%d compressed)\n", h.Symbol, h.OriginalBytes, h.CompressedBytes)
}

// fallback explains why there is nothing to serve.
func (s *Server) fallback(w http.ResponseWriter, err error) {
	s.logger.Warn("Cannot serve header", "path", s.headerPath, "err", err)
	w.Header().Set("Content-Type", "text/plain")
	if errors.Is(err, fs.ErrNotExist) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "Header %s not generated yet. Run 'pgmembed build' first.\n", s.headerPath)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(w, "Header %s cannot be served: %v\n", s.headerPath, err)
}

// acceptsGzip reports whether the client's Accept-Encoding allows gzip. An
// explicit gzip entry wins over "*"; a q-value of zero refuses.
func acceptsGzip(r *http.Request) bool {
	wildcard := false
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		enc, params, _ := strings.Cut(part, ";")
		enc = strings.TrimSpace(enc)
		switch {
		case strings.EqualFold(enc, "gzip"):
			return qualityOf(params) > 0
		case enc == "*":
			wildcard = qualityOf(params) > 0
		}
	}
	return wildcard
}

// qualityOf returns the q parameter of an Accept-Encoding entry, 1 when
// absent and 0 when malformed.
func qualityOf(params string) float64 {
	for _, p := range strings.Split(params, ";") {
		key, val, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "q") {
			continue
		}
		q, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		return q
	}
	return 1
}
