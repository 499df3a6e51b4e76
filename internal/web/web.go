package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"calsite/internal/config"
	appLog "calsite/internal/log"
	"calsite/internal/site"
)

// RebuildFunc runs one generation pass and returns its manifest.
type RebuildFunc func(ctx context.Context) (*site.Manifest, error)

// Server serves the generated site together with a small JSON API:
//
//	GET  /health       liveness, never behind basic auth
//	GET  /api/pages    manifest of the last build
//	POST /api/refresh  rebuild now (only if a RebuildFunc is set)
//	GET  /...          files under output_dir
type Server struct {
	cfg     *config.Config
	mux     *http.ServeMux
	rebuild RebuildFunc

	// Serializes rebuilds triggered over HTTP and by the scheduler.
	buildMu sync.Mutex

	mu       sync.RWMutex
	manifest *site.Manifest
	builtAt  time.Time
}

// NewServer constructs a new Server. rebuild may be nil.
func NewServer(cfg *config.Config, rebuild RebuildFunc) *Server {
	s := &Server{
		cfg:     cfg,
		mux:     http.NewServeMux(),
		rebuild: rebuild,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// SetManifest records the result of a build for /api/pages.
func (s *Server) SetManifest(m *site.Manifest) {
	s.mu.Lock()
	s.manifest = m
	s.builtAt = time.Now()
	s.mu.Unlock()
}

// Rebuild runs the configured RebuildFunc and stores its manifest. Concurrent
// calls are serialized.
func (s *Server) Rebuild(ctx context.Context) error {
	if s.rebuild == nil {
		return errors.New("web: rebuild not configured")
	}
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	m, err := s.rebuild(ctx)
	if err != nil {
		return err
	}
	s.SetManifest(m)
	return nil
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calsite", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe serves s on cfg.Listen until ctx is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "root", s.cfg.OutputDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/pages", s.handlePages)
	s.mux.HandleFunc("/api/refresh", s.handleRefresh)
	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// pagesResponse is the JSON response shape for /api/pages.
type pagesResponse struct {
	BuiltAt  time.Time      `json:"built_at"`
	Manifest *site.Manifest `json:"manifest"`
}

func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := s.pages()
	if resp.Manifest == nil {
		writeError(w, http.StatusServiceUnavailable, "site not built yet")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.rebuild == nil {
		writeError(w, http.StatusNotImplemented, "rebuild not configured")
		return
	}

	if err := s.Rebuild(r.Context()); err != nil {
		appLog.Error("api refresh: rebuild failed", err)
		writeError(w, http.StatusInternalServerError, "rebuild failed")
		return
	}
	writeJSON(w, http.StatusOK, s.pages())
}

func (s *Server) pages() pagesResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pagesResponse{BuiltAt: s.builtAt, Manifest: s.manifest}
}

// staticFileServer serves the generated site from cfg.OutputDir.
func (s *Server) staticFileServer() http.Handler {
	fileServer := http.FileServer(http.Dir(s.cfg.OutputDir))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Unknown /api/* paths are never answered with site HTML.
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			http.NotFound(w, r)
			return
		}

		// Generated links carry base_url_path; strip it before the lookup.
		base := "/" + strings.Trim(s.cfg.BaseURLPath, "/")
		if base != "/" {
			if path != base && !strings.HasPrefix(path, base+"/") {
				http.NotFound(w, r)
				return
			}
			http.StripPrefix(base, fileServer).ServeHTTP(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
