package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/docqa/internal/api"
	"github.com/cloo-solutions/docqa/internal/api/middleware"
	"github.com/cloo-solutions/docqa/internal/domain"
)

type HistoryService interface {
	List(ctx context.Context, userID string, limit int) ([]*domain.SearchHistory, error)
	Delete(ctx context.Context, userID, id string) error
}

type HistoryHandler struct {
	svc HistoryService
}

func NewHistoryHandler(svc HistoryService) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

type HistoryEntryResponse struct {
	ID         string                  `json:"id"`
	Question   string                  `json:"question"`
	Answer     string                  `json:"answer"`
	ChunksUsed []domain.ChunkReference `json:"chunksUsed"`
	CreatedAt  string                  `json:"createdAt"`
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.svc.List(r.Context(), middleware.GetUserID(r.Context()), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]HistoryEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = HistoryEntryResponse{
			ID:         e.ID,
			Question:   e.Question,
			Answer:     e.Answer,
			ChunksUsed: e.ChunksUsed,
			CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		api.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
