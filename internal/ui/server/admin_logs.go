package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Its-donkey/quill/logging"
)

// handleAdminLogs returns recent log entries as JSON, optionally filtered by
// level and category. With stream=1 it follows new entries as server-sent
// events instead.
func (s *server) handleAdminLogs(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if _, ok := s.requireAuth(w, r); !ok {
		return
	}
	if r.URL.Query().Get("stream") != "" {
		s.streamLogs(w, r, strings.ToUpper(r.URL.Query().Get("level")), r.URL.Query().Get("category"))
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}
	level := strings.ToUpper(r.URL.Query().Get("level"))
	category := r.URL.Query().Get("category")

	entries := []logging.Entry{}
	if s.logPath != "" {
		recent, err := logging.ReadRecent(s.logPath, limit*2)
		if err != nil {
			s.logger.Error("admin", "read logs failed", err, nil)
			http.Error(w, "failed to read logs", http.StatusInternalServerError)
			return
		}
		entries = recent
	}

	filtered := make([]logging.Entry, 0, len(entries))
	for _, entry := range entries {
		if level != "" && entry.Level != level {
			continue
		}
		if category != "" && entry.Category != category {
			continue
		}
		filtered = append(filtered, entry)
	}
	if len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(map[string]any{"entries": filtered, "limit": limit})
}

const logStreamHeartbeat = 30 * time.Second

func (s *server) streamLogs(w http.ResponseWriter, r *http.Request, level, category string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	entries := make(chan logging.Entry, 64)
	unsubscribe := s.logger.Subscribe(entries)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(logStreamHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.closing:
			return
		case <-heartbeat.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case entry := <-entries:
			if level != "" && entry.Level != level {
				continue
			}
			if category != "" && entry.Category != category {
				continue
			}
			data, err := json.Marshal(entry)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
