package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"

	"github.com/tdh8316/profilescan/internal/platforms"
	"github.com/tdh8316/profilescan/internal/scan"
)

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(chi.URLParam(r, "username"))
	if username == "" {
		s.respondWithError(w, http.StatusBadRequest, "username cannot be empty")
		return
	}

	list := s.platforms
	if csv := r.URL.Query().Get("platforms"); csv != "" {
		list, _ = platforms.Filter(s.platforms, strings.Split(csv, ","))
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.scanTimeout)
	defer cancel()

	report, err := s.scanner.Scan(ctx, username, list, nil)
	switch {
	case errors.Is(err, scan.ErrEmptyUsername):
		s.respondWithError(w, http.StatusBadRequest, "username cannot be empty")
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Sites that answered are still returned; report.Interrupted
		// tells the caller the rest are placeholders.
		s.logger.WithError(err).WithField("username", username).Warn("scan interrupted")
	case err != nil:
		s.logger.WithError(err).WithField("username", username).Error("scan failed")
		s.respondWithError(w, http.StatusInternalServerError, "scan failed")
		return
	}
	s.metrics.IncScans()

	s.respondWithJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := sonic.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).Error("encode response")
		code = http.StatusInternalServerError
		response = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
