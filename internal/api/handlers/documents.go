package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/api"
	"github.com/cloo-solutions/docqa/internal/api/middleware"
	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/service"
)

type Ingester interface {
	Ingest(ctx context.Context, in service.IngestInput) (*service.IngestResult, error)
}

type DocumentAdmin interface {
	List(ctx context.Context, cursor string, limit int) (*service.DocumentPageResult, error)
	Get(ctx context.Context, id string) (*domain.Document, error)
	Delete(ctx context.Context, id string) error
	ViewURL(ctx context.Context, id string) (string, error)
}

type Reembedder interface {
	Reembed(ctx context.Context, documentID string) (*service.ReembedResult, error)
}

type Extractor interface {
	Extract(ctx context.Context, fileType domain.FileType, data []byte) (string, error)
}

type DocumentHandler struct {
	ingest         Ingester
	docs           DocumentAdmin
	reembed        Reembedder
	extractor      Extractor
	maxUploadBytes int64
}

func NewDocumentHandler(ingest Ingester, docs DocumentAdmin, reembed Reembedder, extractor Extractor, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{
		ingest:         ingest,
		docs:           docs,
		reembed:        reembed,
		extractor:      extractor,
		maxUploadBytes: maxUploadBytes,
	}
}

type DocumentResponse struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	FileName   string  `json:"fileName"`
	FileType   string  `json:"fileType"`
	FilePath   *string `json:"filePath,omitempty"`
	UploadedAt string  `json:"uploadedAt"`
}

type DocumentListResponse struct {
	Items      []*DocumentResponse `json:"items"`
	NextCursor string              `json:"nextCursor,omitempty"`
	HasMore    bool                `json:"hasMore"`
}

type ViewURLResponse struct {
	URL string `json:"url"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:         d.ID,
		Title:      d.Title,
		FileName:   d.FileName,
		FileType:   string(d.FileType),
		FilePath:   d.FilePath,
		UploadedAt: d.UploadedAt.UTC().Format(time.RFC3339),
	}
}

// Upload accepts a multipart form with a "file" part and an optional
// "title" field.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.HandleError(w, domain.ErrFileTooLarge)
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		api.HandleError(w, domain.ErrFileTooLarge)
		return
	}

	contentType := header.Header.Get("Content-Type")
	fileType, err := domain.DetectFileType(header.Filename, contentType)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	text, err := h.extractor.Extract(r.Context(), fileType, data)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	result, err := h.ingest.Ingest(r.Context(), service.IngestInput{
		Title:       r.FormValue("title"),
		FileName:    header.Filename,
		FileType:    fileType,
		ContentType: contentType,
		Text:        text,
		File:        data,
	})
	if err != nil {
		middleware.Logger(r.Context()).Error("document ingestion failed",
			zap.String("file_name", header.Filename),
			zap.Error(err),
		)
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, result)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	page, err := h.docs.List(r.Context(), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*DocumentResponse, len(page.Items))
	for i, d := range page.Items {
		items[i] = documentToResponse(d)
	}
	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:      items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.docs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		api.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Regenerate recomputes the embeddings of an existing document.
func (h *DocumentHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	result, err := h.reembed.Reembed(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, result)
}

func (h *DocumentHandler) View(w http.ResponseWriter, r *http.Request) {
	url, err := h.docs.ViewURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, ViewURLResponse{URL: url})
}
