// Package server exposes the HTTP API: document upload, scoped chat, and
// listing endpoints.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"docuchat/internal/convo"
	"docuchat/internal/ingest"
	"docuchat/internal/ratelimit"
	"docuchat/internal/util"
	"docuchat/pkg/ai"
	"docuchat/pkg/store"
)

// DefaultMaxUploadBytes caps multipart upload size.
const DefaultMaxUploadBytes = 100 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	Ingester      *ingest.Orchestrator
	Conversations *convo.Manager
	Store         store.DocumentStore
	Limiter       *ratelimit.Limiter
	// FilesDir, when set, is served read-only under /files/ so locally
	// stored uploads are reachable at their recorded URLs.
	FilesDir       string
	MaxUploadBytes int64
}

// Server exposes HTTP endpoints for the document chat service.
type Server struct {
	ingester       *ingest.Orchestrator
	conversations  *convo.Manager
	store          store.DocumentStore
	limiter        *ratelimit.Limiter
	filesDir       string
	maxUploadBytes int64
	mux            *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	s := &Server{
		ingester:       cfg.Ingester,
		conversations:  cfg.Conversations,
		store:          cfg.Store,
		limiter:        cfg.Limiter,
		filesDir:       cfg.FilesDir,
		maxUploadBytes: maxUpload,
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/file/upload", s.handleUpload)
	s.mux.HandleFunc("/chat/query", s.handleChatQuery)
	s.mux.HandleFunc("/documents", s.handleListDocuments)
	s.mux.HandleFunc("/summaries", s.handleListSummaries)
	if s.filesDir != "" {
		s.mux.Handle("/files/", http.StripPrefix("/files/", http.FileServer(http.Dir(s.filesDir))))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	owner := strings.TrimSpace(r.FormValue("email"))
	if !validEmail(owner) {
		writeError(w, http.StatusBadRequest, "valid email is required")
		return
	}
	if !s.limiter.Allow(r.Context(), owner) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}

	tmp, err := os.CreateTemp("", "docuchat-upload-*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not buffer upload")
		return
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()
	if _, err := io.Copy(tmp, file); err != nil {
		writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}

	res, err := s.ingester.Ingest(r.Context(), owner, tmp.Name(), filename)
	if err != nil {
		slog.Error("ingest failed", "owner", owner, "filename", filename, "error", err)
		writeServiceError(w, err, "document processing failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type chatRequest struct {
	Email    string `json:"email"`
	Filename string `json:"filename"`
	Question string `json:"question"`
}

func (s *Server) handleChatQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !validEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "valid email is required")
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if !s.limiter.Allow(r.Context(), req.Email) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	ans, err := s.conversations.Ask(r.Context(), req.Email, req.Filename, req.Question)
	if err != nil {
		slog.Error("chat query failed", "owner", req.Email, "filename", req.Filename, "error", err)
		writeServiceError(w, err, "could not answer question")
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	owner := strings.TrimSpace(r.URL.Query().Get("email"))
	if !validEmail(owner) {
		writeError(w, http.StatusBadRequest, "valid email is required")
		return
	}
	docs, err := s.store.ListDocuments(r.Context(), owner)
	if err != nil {
		slog.Error("list documents failed", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "could not list documents")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	owner := strings.TrimSpace(r.URL.Query().Get("email"))
	filename := strings.TrimSpace(r.URL.Query().Get("filename"))
	if !validEmail(owner) {
		writeError(w, http.StatusBadRequest, "valid email is required")
		return
	}
	if filename == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}
	summaries, err := s.store.ListSummaries(r.Context(), owner, filename)
	if err != nil {
		slog.Error("list summaries failed", "owner", owner, "filename", filename, "error", err)
		writeError(w, http.StatusInternalServerError, "could not list summaries")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": summaries})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func validEmail(s string) bool {
	if s == "" {
		return false
	}
	_, err := mail.ParseAddress(s)
	return err == nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps upstream AI failures to 502 so callers can tell a
// provider outage from a bad request.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, ai.ErrEmbeddingService) {
		writeError(w, http.StatusBadGateway, "embedding service unavailable")
		return
	}
	if errors.Is(err, ai.ErrGenerationService) {
		writeError(w, http.StatusBadGateway, "generation service unavailable")
		return
	}
	writeError(w, http.StatusInternalServerError, fallback)
}
