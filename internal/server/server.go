package server

import (
	"context"
	"crypto/rand"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"reviewhub/internal/config"
	"reviewhub/internal/logging"
	"reviewhub/internal/manifest"
)

//go:embed static/index.html static/app.js static/style.css
var staticFS embed.FS

// staticRoutes is the fixed allowlist of servable assets. Request paths
// never reach the filesystem directly.
var staticRoutes = map[string]struct {
	file        string
	contentType string
}{
	"/":          {"static/index.html", "text/html; charset=utf-8"},
	"/app.js":    {"static/app.js", "text/javascript; charset=utf-8"},
	"/style.css": {"static/style.css", "text/css; charset=utf-8"},
}

// Server is a loopback-only HTTP service for one review session. All
// manifest mutations go through the store's atomic save, serialized by an
// in-process mutex; there is no in-memory comment state to diverge from
// disk.
type Server struct {
	cfg          *config.Config
	manifestPath string
	reviewDir    string
	logger       *slog.Logger

	token string

	mu       sync.Mutex
	stopMu   sync.Mutex
	listener net.Listener
	httpSrv  *http.Server
	lock     *flock.Flock
	port     int
	url      string
	running  bool
}

func New(cfg *config.Config, manifestPath string, logger *slog.Logger) *Server {
	return &Server{
		cfg:          cfg,
		manifestPath: manifestPath,
		reviewDir:    filepath.Dir(manifestPath),
		logger:       logging.WithComponent(logger, "server"),
	}
}

// Start binds the loopback interface on the first free port in the
// configured range, acquires the session lock, and begins serving. It
// returns the session URL with the token embedded as a query parameter.
func (s *Server) Start(ctx context.Context) (string, error) {
	if s.running {
		return "", errors.New("server already running")
	}
	if _, err := manifest.Load(s.manifestPath); err != nil {
		return "", fmt.Errorf("open review: %w", err)
	}

	token, err := newToken()
	if err != nil {
		return "", err
	}
	s.token = token

	listener, port, err := s.listen()
	if err != nil {
		return "", err
	}

	s.lock = flock.New(s.cfg.Server.LockPath)
	locked, err := s.lock.TryLock()
	if err != nil {
		_ = listener.Close()
		return "", fmt.Errorf("acquire server lock: %w", err)
	}
	if !locked {
		_ = listener.Close()
		return "", errors.New("another review server holds the session lock")
	}
	record := LockRecord{PID: os.Getpid(), Port: port, StartedAt: time.Now().UTC()}
	if err := writeLockRecord(s.cfg.Server.LockPath, record); err != nil {
		_ = s.lock.Unlock()
		_ = listener.Close()
		return "", err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleStatic)
	mux.HandleFunc("/app.js", s.handleStatic)
	mux.HandleFunc("/style.css", s.handleStatic)
	mux.HandleFunc("/manifest.json", s.handleManifest)
	mux.HandleFunc("/audio", s.handleAudio)
	mux.HandleFunc("/source", s.handleSource)
	mux.HandleFunc("/comments", s.requireToken(s.handleComments))
	mux.HandleFunc("/comments/", s.requireToken(s.handleCommentItem))
	mux.HandleFunc("/complete", s.requireToken(s.handleComplete))

	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.listener = listener
	s.port = port
	s.httpSrv = httpSrv
	s.running = true
	s.url = fmt.Sprintf("http://127.0.0.1:%d/?token=%s", port, token)

	// The goroutines use locals: Stop nils the fields and may run at any
	// point after this, including before Serve is scheduled.
	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", slog.String("error", err.Error()))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("review server listening",
		slog.Int("port", port),
		slog.String("manifest", s.manifestPath))
	return s.url, nil
}

// Stop closes the listener and removes the lock record. Safe to call when
// no server is running, and safe to call from the context watcher and the
// caller at once.
func (s *Server) Stop() {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	if s.httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		s.httpSrv = nil
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	if s.lock != nil {
		if err := os.Remove(s.cfg.Server.LockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("could not remove lock record", slog.String("error", err.Error()))
		}
		_ = s.lock.Unlock()
		s.lock = nil
	}
	s.running = false
}

// URL returns the session URL, valid after Start.
func (s *Server) URL() string { return s.url }

// Port returns the bound port, valid after Start.
func (s *Server) Port() int { return s.port }

// Token returns the per-session authorization token, valid after Start.
func (s *Server) Token() string { return s.token }

func (s *Server) listen() (net.Listener, int, error) {
	for port := s.cfg.Server.PortMin; port <= s.cfg.Server.PortMax; port++ {
		listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			return listener, port, nil
		}
	}
	return nil, 0, fmt.Errorf("no free port in %d..%d", s.cfg.Server.PortMin, s.cfg.Server.PortMax)
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// requireToken guards mutating routes. A missing or mismatched token is
// rejected before any manifest read, so an unauthorized request can never
// mutate state.
func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Review-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" || token != s.token {
			s.writeError(w, http.StatusUnauthorized, "missing or invalid session token")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	route, ok := staticRoutes[r.URL.Path]
	if !ok {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	data, err := staticFS.ReadFile(route.file)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", route.contentType)
	_, _ = w.Write(data)
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	m, err := manifest.Load(s.manifestPath)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	m, err := manifest.Load(s.manifestPath)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if m.Audio == nil || m.Audio.File == "" {
		s.writeError(w, http.StatusNotFound, "no audio for this review")
		return
	}
	// Only the basename is trusted; the media always sits beside the
	// manifest.
	http.ServeFile(w, r, filepath.Join(s.reviewDir, filepath.Base(m.Audio.File)))
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	m, err := manifest.Load(s.manifestPath)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	data, err := os.ReadFile(m.Source)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "source file unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write(data)
}

// commentRequest is the wire shape of a comment submission. An id marks an
// edit of an existing comment; server-assigned fields are ignored on input.
type commentRequest struct {
	ID             string   `json:"id"`
	SectionID      string   `json:"sectionId"`
	AudioTimestamp *float64 `json:"audioTimestamp"`
	Type           string   `json:"type"`
	Priority       string   `json:"priority"`
	Text           string   `json:"text"`
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed comment body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, "comment text is required")
		return
	}

	var saved manifest.Comment
	err := s.mutate(func(m *manifest.Manifest) error {
		if _, ok := m.SectionByID(req.SectionID); !ok {
			return &requestError{http.StatusBadRequest, fmt.Sprintf("unknown section %q", req.SectionID)}
		}
		comment := manifest.Comment{
			ID:             req.ID,
			SectionID:      req.SectionID,
			AudioTimestamp: req.AudioTimestamp,
			Type:           manifest.CommentType(req.Type),
			Priority:       manifest.Priority(req.Priority),
			Text:           req.Text,
		}
		if comment.ID == "" {
			comment.ID = uuid.NewString()
			comment.CreatedAt = time.Now().UTC()
			m.Comments = append(m.Comments, comment)
		} else {
			existing, ok := m.CommentByID(comment.ID)
			if !ok {
				return &requestError{http.StatusNotFound, fmt.Sprintf("unknown comment %q", comment.ID)}
			}
			comment.CreatedAt = existing.CreatedAt
			for i := range m.Comments {
				if m.Comments[i].ID == comment.ID {
					m.Comments[i] = comment
				}
			}
		}
		saved = comment
		if err := m.Validate(); err != nil {
			return &requestError{http.StatusBadRequest, err.Error()}
		}
		return nil
	})
	if err != nil {
		s.writeRequestError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleCommentItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/comments/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "comment not found")
		return
	}

	err := s.mutate(func(m *manifest.Manifest) error {
		kept := m.Comments[:0]
		found := false
		for _, comment := range m.Comments {
			if comment.ID == id {
				found = true
				continue
			}
			kept = append(kept, comment)
		}
		if !found {
			return &requestError{http.StatusNotFound, fmt.Sprintf("unknown comment %q", id)}
		}
		m.Comments = kept
		return nil
	})
	if err != nil {
		s.writeRequestError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var completed *manifest.Manifest
	err := s.mutate(func(m *manifest.Manifest) error {
		if err := m.AdvanceStatus(manifest.StatusReviewed); err != nil {
			return &requestError{http.StatusConflict, err.Error()}
		}
		now := time.Now().UTC()
		m.CompletedAt = &now
		completed = m
		return nil
	})
	if err != nil {
		s.writeRequestError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, completed)
}

// mutate applies one read-modify-write cycle against the on-disk manifest
// under the in-process lock. The reviewer's first mutation moves a ready
// review to in-progress.
func (s *Server) mutate(fn func(*manifest.Manifest) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := manifest.Load(s.manifestPath)
	if err != nil {
		return err
	}
	if m.Status == manifest.StatusReady {
		if err := m.AdvanceStatus(manifest.StatusInProgress); err != nil {
			return err
		}
	}
	if err := fn(m); err != nil {
		return err
	}
	if _, err := manifest.Save(m, s.reviewDir); err != nil {
		return err
	}
	return nil
}

type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

func (s *Server) writeRequestError(w http.ResponseWriter, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		s.writeError(w, reqErr.status, reqErr.message)
		return
	}
	s.writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
