//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/cloo-solutions/docqa/internal/api/handlers"
	"github.com/cloo-solutions/docqa/internal/cli/admin"
	"github.com/cloo-solutions/docqa/internal/config"
	"github.com/cloo-solutions/docqa/internal/server"
	"github.com/cloo-solutions/docqa/internal/testutil"
)

const (
	embeddingDims = 16
	adminToken    = "dqa_e2e_admin"
	userToken     = "dqa_e2e_user"
	cannedAnswer  = "Paris is the capital of France."
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	RustFSC    *testutil.RustFSContainer
	App        *admin.App
	Server     *httptest.Server
	OpenAI     *fakeOpenAI
	HTTPClient *http.Client
}

// SetupE2EEnv starts Postgres and RustFS, a fake OpenAI endpoint, and the
// full API server wired the same way `docqad serve` wires it.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	migrationPool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")
	migrationPool.Close()

	fake := newFakeOpenAI()

	cfg := &config.Config{
		Port:                  "0",
		Environment:           "test",
		DatabaseURL:           pgC.ConnectionString(),
		DatabaseMaxConns:      5,
		S3Endpoint:            s3C.Endpoint(),
		S3AccessKey:           testutil.RustFSAccessKey,
		S3SecretKey:           testutil.RustFSSecretKey,
		S3Bucket:              "docqa-e2e",
		S3Region:              "us-east-1",
		OpenAIAPIKey:          "sk-test",
		OpenAIBaseURL:         fake.server.URL + "/v1",
		EmbeddingModel:        "text-embedding-3-small",
		EmbeddingDimensions:   embeddingDims,
		EmbeddingBatchSize:    100,
		ChatModel:             "gpt-4o-mini",
		ChatTemperature:       0.7,
		ChatMaxTokens:         200,
		ChunkMinSize:          300,
		ChunkMaxSize:          500,
		InsertBatchSize:       100,
		MatchThreshold:        0.1,
		SearchTopK:            5,
		SearchFallbackOnEmpty: true,
		APIKeys:               map[string]string{adminToken: "root", userToken: "alice"},
		AdminUsers:            []string{"root"},
		MaxUploadBytes:        1 << 20,
	}

	logger := zaptest.NewLogger(t)
	app, err := admin.NewApp(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("failed to build app: %v", err)
	}

	router := server.NewRouter(server.RouterConfig{
		Logger:          logger,
		AuthValidator:   app.Auth,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		HealthHandler:   handlers.NewHealthHandler(app.Pool, app.Storage, true, cfg.EmbeddingModel),
		AskHandler:      handlers.NewAskHandler(app.Ask, app.Search),
		HistoryHandler:  handlers.NewHistoryHandler(app.HistorySvc),
		DocumentHandler: handlers.NewDocumentHandler(app.Ingest, app.DocumentSvc, app.Reembed, app.Extractors, cfg.MaxUploadBytes),
	})

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		App:        app,
		Server:     httptest.NewServer(router),
		OpenAI:     fake,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.App != nil {
		e.App.Close()
	}
	e.OpenAI.server.Close()
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Status int
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
}

func (e *E2ETestEnv) Get(path, token string) *APIResponse {
	return e.do(http.MethodGet, path, nil, "", token)
}

func (e *E2ETestEnv) Post(path string, body interface{}, token string) *APIResponse {
	data, err := json.Marshal(body)
	if err != nil {
		e.T.Fatalf("failed to marshal body: %v", err)
	}
	return e.do(http.MethodPost, path, bytes.NewReader(data), "application/json", token)
}

func (e *E2ETestEnv) Delete(path, token string) *APIResponse {
	return e.do(http.MethodDelete, path, nil, "", token)
}

// Upload posts a multipart document upload.
func (e *E2ETestEnv) Upload(fileName, title string, content []byte, token string) *APIResponse {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if title != "" {
		_ = mw.WriteField("title", title)
	}
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		e.T.Fatalf("failed to create form file: %v", err)
	}
	_, _ = part.Write(content)
	_ = mw.Close()
	return e.do(http.MethodPost, "/admin/documents", body, mw.FormDataContentType(), token)
}

func (e *E2ETestEnv) do(method, path string, body io.Reader, contentType, token string) *APIResponse {
	req, err := http.NewRequest(method, e.Server.URL+path, body)
	if err != nil {
		e.T.Fatalf("failed to build request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := &APIResponse{Status: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		e.T.Fatalf("failed to read response: %v", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			e.T.Fatalf("invalid JSON from %s %s: %s", method, path, raw)
		}
	}
	return out
}

// Decode unmarshals the data envelope into v.
func (r *APIResponse) Decode(t *testing.T, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(r.Data, v); err != nil {
		t.Fatalf("failed to decode data %s: %v", r.Data, err)
	}
}

// DownloadFile downloads a file from the presigned URL
func (e *E2ETestEnv) DownloadFile(url string) ([]byte, error) {
	resp, err := e.HTTPClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// fakeOpenAI serves deterministic bag-of-words embeddings and a canned chat
// completion so similarity ranking is predictable.
type fakeOpenAI struct {
	server *httptest.Server
}

func newFakeOpenAI() *fakeOpenAI {
	f := &fakeOpenAI{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", f.embeddings)
	mux.HandleFunc("/v1/chat/completions", f.chat)
	f.server = httptest.NewServer(mux)
	return f
}

func (f *fakeOpenAI) embeddings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data := make([]map[string]interface{}, len(req.Input))
	for i, text := range req.Input {
		data[i] = map[string]interface{}{
			"object":    "embedding",
			"index":     i,
			"embedding": bagOfWords(text),
		}
	}
	writeFakeJSON(w, map[string]interface{}{
		"object": "list",
		"model":  req.Model,
		"data":   data,
		"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
	})
}

func (f *fakeOpenAI) chat(w http.ResponseWriter, r *http.Request) {
	writeFakeJSON(w, map[string]interface{}{
		"id":      "chatcmpl-e2e",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   "gpt-4o-mini",
		"choices": []map[string]interface{}{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]string{"role": "assistant", "content": cannedAnswer},
		}},
		"usage": map[string]int{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
	})
}

func writeFakeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func bagOfWords(text string) []float32 {
	vec := make([]float32, embeddingDims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,?!")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[h.Sum32()%embeddingDims]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
