// Package fakeapi is an in-memory stand-in for the certificate template
// backend. It serves the user list and accepts template uploads so the
// client can be exercised locally and in tests.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxUploadSize bounds a template upload.
const DefaultMaxUploadSize = 32 << 20

// StoredFile describes an uploaded file part.
type StoredFile struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Template is an accepted upload.
type Template struct {
	ID        string       `json:"id"`
	Name      string       `json:"templateName"`
	ImageType string       `json:"imageType"`
	CreatedBy string       `json:"createdBy"`
	JRXML     []StoredFile `json:"jrxml"`
	Images    []StoredFile `json:"images"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Server holds users and templates in memory.
type Server struct {
	mu        sync.RWMutex
	token     string
	users     []map[string]any
	envelope  bool
	templates []Template
	maxUpload int64
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithToken requires "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = strings.TrimSpace(token)
	}
}

// WithUsers seeds the raw user records returned by /profile/all.
func WithUsers(records ...map[string]any) Option {
	return func(s *Server) {
		s.users = append([]map[string]any(nil), records...)
	}
}

// WithEnvelope wraps the user list in {"users": [...]}.
func WithEnvelope(enabled bool) Option {
	return func(s *Server) {
		s.envelope = enabled
	}
}

// WithMaxUploadSize overrides DefaultMaxUploadSize.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock stamping templates.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// DefaultUsers mixes the username aliases the real backend is known to send.
func DefaultUsers() []map[string]any {
	return []map[string]any{
		{"id": 1, "username": "admin"},
		{"id": 2, "userName": "nagendra"},
		{"id": 3, "name": "Certificate Desk"},
	}
}

// New builds a server.
func New(options ...Option) *Server {
	s := &Server{
		users:     DefaultUsers(),
		maxUpload: DefaultMaxUploadSize,
		now:       time.Now,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler routes the two endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /profile/all", s.authorized(s.handleListUsers))
	mux.HandleFunc("POST /templates", s.authorized(s.handleCreateTemplate))
	mux.HandleFunc("GET /templates", s.authorized(s.handleListTemplates))
	return mux
}

// Templates returns the accepted uploads in arrival order.
func (s *Server) Templates() []Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Template(nil), s.templates...)
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			s.logger.Info("rejecting unauthenticated request", "path", r.URL.Path)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	var payload any = s.users
	if s.envelope {
		payload = map[string]any{"users": s.users}
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode users", "error", err)
	}
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Templates()); err != nil {
		s.logger.Error("encode templates", "error", err)
	}
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		s.logger.Info("invalid multipart form", "error", err)
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	tpl := Template{
		Name:      strings.TrimSpace(r.FormValue("templateName")),
		ImageType: strings.TrimSpace(r.FormValue("imageType")),
		CreatedBy: strings.TrimSpace(r.FormValue("createdBy")),
	}
	switch {
	case tpl.Name == "":
		http.Error(w, "templateName is required", http.StatusBadRequest)
		return
	case tpl.ImageType == "":
		http.Error(w, "imageType is required", http.StatusBadRequest)
		return
	case tpl.CreatedBy == "":
		http.Error(w, "createdBy is required", http.StatusBadRequest)
		return
	}
	if !s.knownUser(tpl.CreatedBy) {
		http.Error(w, fmt.Sprintf("unknown user %s", tpl.CreatedBy), http.StatusBadRequest)
		return
	}

	jrxml := r.MultipartForm.File["jrxml"]
	if len(jrxml) == 0 {
		http.Error(w, "at least one jrxml file is required", http.StatusBadRequest)
		return
	}
	for _, fh := range jrxml {
		if !strings.EqualFold(filepath.Ext(fh.Filename), ".jrxml") {
			http.Error(w, fmt.Sprintf("%s is not a .jrxml file", fh.Filename), http.StatusBadRequest)
			return
		}
	}
	tpl.JRXML = storedFiles(jrxml)
	tpl.Images = storedFiles(r.MultipartForm.File["images"])

	s.mu.Lock()
	for _, existing := range s.templates {
		if strings.EqualFold(existing.Name, tpl.Name) {
			s.mu.Unlock()
			http.Error(w, "duplicate name", http.StatusConflict)
			return
		}
	}
	tpl.ID = uuid.NewString()
	tpl.CreatedAt = s.now().UTC()
	s.templates = append(s.templates, tpl)
	s.mu.Unlock()

	s.logger.Info("template stored", "id", tpl.ID, "name", tpl.Name, "jrxml", len(tpl.JRXML), "images", len(tpl.Images))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(tpl); err != nil {
		s.logger.Error("encode template", "error", err)
	}
}

func (s *Server) knownUser(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.users {
		if fmt.Sprint(rec["id"]) == id {
			return true
		}
	}
	return false
}

func storedFiles(headers []*multipart.FileHeader) []StoredFile {
	out := make([]StoredFile, 0, len(headers))
	for _, fh := range headers {
		out = append(out, StoredFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
		})
	}
	return out
}
