// Package web serves the single-page UI and its JSON API on top of the app
// pipeline. One download runs at a time; requests are synchronous.
package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/grabbit-dl/grabbit/internal/app"
)

//go:embed assets/*
var embeddedAssets embed.FS

const maxRequestBodyBytes = 1 << 20 // 1 MiB

const (
	defaultHistoryLimit = 50
	maxListLimit        = 500
)

// DownloadRequest is the body of POST /api/download.
type DownloadRequest struct {
	URL string `json:"url"`
}

type mediaItem struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Platform string `json:"platform"`
	Type     string `json:"type"`
	Size     string `json:"size"`
	Date     string `json:"date"`
	Path     string `json:"path"`
}

// Server exposes the HTTP API over a shared App.
type Server struct {
	app *app.App
	log *zap.Logger
}

func NewServer(a *app.App, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{app: a, log: logger}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	assets, err := fs.Sub(embeddedAssets, "assets")
	if err != nil {
		panic(fmt.Sprintf("embedded assets: %v", err))
	}
	fileServer := http.FileServer(http.FS(assets))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/download", s.handleDownload)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/media", s.handleMedia)
	mux.HandleFunc("/api/platforms", s.handlePlatforms)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.Handle("/", fileServer)
	return mux
}

// ListenAndServe blocks serving the UI on addr.
func (s *Server) ListenAndServe(addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("serving web UI", zap.String("addr", addr))
	return server.ListenAndServe()
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.URL == "" {
		writeJSONError(w, http.StatusBadRequest, "url is required")
		return
	}

	inv := s.app.Process(r.Context(), req.URL)
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := defaultHistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
				return
			}
			limit = n
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
		writeJSON(w, http.StatusOK, s.app.History().List(limit))
	case http.MethodDelete:
		if err := s.app.History().Clear(); err != nil {
			s.log.Warn("clearing history", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "failed to clear history")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	catalog := s.app.Catalog()
	if catalog == nil {
		writeJSON(w, http.StatusOK, []mediaItem{})
		return
	}
	records, err := catalog.ListMedia(maxListLimit, 0)
	if err != nil {
		s.log.Warn("listing media", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "failed to list media")
		return
	}
	items := make([]mediaItem, 0, len(records))
	for _, rec := range records {
		items = append(items, mediaItem{
			ID:       rec.ID,
			Title:    rec.Title,
			Platform: rec.Platform,
			Type:     rec.MediaType,
			Size:     formatBytes(rec.FileSize),
			Date:     rec.CreatedAt.Format("2006-01-02 15:04"),
			Path:     rec.FilePath,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.app.Platforms())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	count := 0
	if catalog := s.app.Catalog(); catalog != nil {
		if n, err := catalog.Count(); err == nil {
			count = n
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"history": len(s.app.History().List(0)),
		"media":   count,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are gone; nothing left to do.
		return
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// formatBytes formats a byte size into a human-readable string.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
