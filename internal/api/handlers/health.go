package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/cloo-solutions/docqa/internal/api"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports database reachability and which optional providers
// are configured. A nil pinger means the dependency is not configured.
type HealthHandler struct {
	db             Pinger
	storage        Pinger
	openaiEnabled  bool
	embeddingModel string
}

func NewHealthHandler(db, storage Pinger, openaiEnabled bool, embeddingModel string) *HealthHandler {
	return &HealthHandler{db: db, storage: storage, openaiEnabled: openaiEnabled, embeddingModel: embeddingModel}
}

type HealthCheck struct {
	Configured bool   `json:"configured"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status         string                 `json:"status"`
	EmbeddingModel string                 `json:"embeddingModel,omitempty"`
	Checks         map[string]HealthCheck `json:"checks"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:         "ok",
		EmbeddingModel: h.embeddingModel,
		Checks: map[string]HealthCheck{
			"database": ping(ctx, h.db),
			"storage":  ping(ctx, h.storage),
			"openai":   {Configured: h.openaiEnabled, OK: h.openaiEnabled},
		},
	}

	status := http.StatusOK
	if !resp.Checks["database"].OK {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	} else if !resp.Checks["openai"].OK {
		resp.Status = "degraded"
	}
	api.JSON(w, status, resp)
}

func ping(ctx context.Context, p Pinger) HealthCheck {
	if p == nil {
		return HealthCheck{}
	}
	if err := p.Ping(ctx); err != nil {
		return HealthCheck{Configured: true, Error: err.Error()}
	}
	return HealthCheck{Configured: true, OK: true}
}
