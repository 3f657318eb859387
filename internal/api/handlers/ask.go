package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/docqa/internal/api"
	"github.com/cloo-solutions/docqa/internal/api/middleware"
	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/service"
)

type Asker interface {
	Ask(ctx context.Context, in service.AskInput) (*service.AskResult, error)
}

type TextSearcher interface {
	SearchText(ctx context.Context, question string, topK int) ([]domain.SearchResult, error)
}

type AskHandler struct {
	ask    Asker
	search TextSearcher
}

func NewAskHandler(ask Asker, search TextSearcher) *AskHandler {
	return &AskHandler{ask: ask, search: search}
}

type AskRequest struct {
	Question string `json:"question"`
	Limit    int    `json:"limit,omitempty"`
}

type SearchResponse struct {
	Results []domain.SearchResult `json:"results"`
}

func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.ask.Ask(r.Context(), service.AskInput{
		UserID:   middleware.GetUserID(r.Context()),
		Question: req.Question,
		TopK:     req.Limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

func (h *AskHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		api.HandleError(w, domain.ErrEmptyQuestion)
		return
	}
	if req.Limit < 0 {
		api.Error(w, http.StatusBadRequest, "limit must not be negative")
		return
	}

	results, err := h.search.SearchText(r.Context(), req.Question, req.Limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SearchResponse{Results: results})
}
