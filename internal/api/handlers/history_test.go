package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docqa/internal/domain"
)

func TestHistoryHandler_List(t *testing.T) {
	svc := new(MockHistoryService)
	handler := NewHistoryHandler(svc)

	svc.On("List", mock.Anything, "alice", 5).Return([]*domain.SearchHistory{
		{
			ID:         "h1",
			UserID:     "alice",
			Question:   "q",
			Answer:     "a",
			ChunksUsed: []domain.ChunkReference{{ID: "c1", DocumentID: "d1"}},
			CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}, nil)

	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/search-history?limit=5", nil), "alice", false)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data []HistoryEntryResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "h1", resp.Data[0].ID)
	assert.Equal(t, "2026-01-02T03:04:05Z", resp.Data[0].CreatedAt)
	require.Len(t, resp.Data[0].ChunksUsed, 1)
}

func TestHistoryHandler_List_InvalidLimit(t *testing.T) {
	svc := new(MockHistoryService)
	handler := NewHistoryHandler(svc)

	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/search-history?limit=x", nil), "alice", false)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "List")
}

func TestHistoryHandler_Delete(t *testing.T) {
	svc := new(MockHistoryService)
	handler := NewHistoryHandler(svc)
	svc.On("Delete", mock.Anything, "alice", "h1").Return(nil)

	req := withPrincipal(httptest.NewRequest(http.MethodDelete, "/search-history/h1", nil), "alice", false)
	req = withURLParam(req, "id", "h1")
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func TestHistoryHandler_Delete_OtherUsersEntry(t *testing.T) {
	svc := new(MockHistoryService)
	handler := NewHistoryHandler(svc)
	svc.On("Delete", mock.Anything, "bob", "h1").Return(domain.ErrSearchHistoryNotFound)

	req := withPrincipal(httptest.NewRequest(http.MethodDelete, "/search-history/h1", nil), "bob", false)
	req = withURLParam(req, "id", "h1")
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
