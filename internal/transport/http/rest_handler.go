package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"interview-rehearsal-service/internal/app"
	"interview-rehearsal-service/internal/domain"
)

// RESTHandler exposes the interview archive: list, detail, delete, stats.
type RESTHandler struct {
	service *app.InterviewService
}

func NewRESTHandler(service *app.InterviewService) *RESTHandler {
	return &RESTHandler{service: service}
}

// Register mounts the archive routes on the mux.
func (h *RESTHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/interviews", h.handleList)
	mux.HandleFunc("/api/interviews/", h.handleByID)
	mux.HandleFunc("/api/stats", h.handleStats)
}

func (h *RESTHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	items, err := h.service.ListInterviews(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"items": items})
}

func (h *RESTHandler) handleByID(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	idRaw := strings.TrimPrefix(r.URL.Path, "/api/interviews/")
	id, err := strconv.ParseInt(idRaw, 10, 64)
	if err != nil {
		writeError(w, domain.ErrValidation)
		return
	}

	switch r.Method {
	case http.MethodGet:
		detail, err := h.service.GetInterview(r.Context(), id, userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, detail)
	case http.MethodDelete:
		if err := h.service.DeleteInterview(r.Context(), id, userID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *RESTHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stats, err := h.service.UserStats(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, stats)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrInterviewNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
