//go:build e2e

package e2e

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ingestData struct {
	DocumentID  string  `json:"documentId"`
	ChunksCount int     `json:"chunksCount"`
	FilePath    *string `json:"filePath"`
}

type searchData struct {
	Results []struct {
		ID            string  `json:"id"`
		DocumentID    string  `json:"documentId"`
		DocumentTitle string  `json:"documentTitle"`
		Content       string  `json:"content"`
		Similarity    float64 `json:"similarity"`
	} `json:"results"`
}

var geography = []byte(strings.Repeat("Paris is the capital of France and sits on the Seine river. ", 20) +
	"\n\n" + strings.Repeat("Berlin is the capital of Germany and has many museums. ", 20))

func TestE2E_DocumentLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	health := env.Get("/health", "")
	require.Equal(t, http.StatusOK, health.Status)

	upload := env.Upload("geography.txt", "Geography", geography, adminToken)
	require.Equal(t, http.StatusCreated, upload.Status, upload.Error)
	var doc ingestData
	upload.Decode(t, &doc)
	require.NotEmpty(t, doc.DocumentID)
	assert.Greater(t, doc.ChunksCount, 1)
	require.NotNil(t, doc.FilePath)

	t.Run("non-admin cannot upload", func(t *testing.T) {
		resp := env.Upload("other.txt", "", []byte("hello"), userToken)
		assert.Equal(t, http.StatusForbidden, resp.Status)
	})

	t.Run("list and get", func(t *testing.T) {
		list := env.Get("/admin/documents", adminToken)
		require.Equal(t, http.StatusOK, list.Status)
		var page struct {
			Items []struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"items"`
			HasMore bool `json:"hasMore"`
		}
		list.Decode(t, &page)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "Geography", page.Items[0].Title)
		assert.False(t, page.HasMore)

		get := env.Get("/admin/documents/"+doc.DocumentID, adminToken)
		assert.Equal(t, http.StatusOK, get.Status)
	})

	t.Run("search ranks matching chunk first", func(t *testing.T) {
		resp := env.Post("/search", map[string]interface{}{"question": "capital of France Paris Seine", "limit": 3}, userToken)
		require.Equal(t, http.StatusOK, resp.Status, resp.Error)
		var data searchData
		resp.Decode(t, &data)
		require.NotEmpty(t, data.Results)
		assert.Equal(t, doc.DocumentID, data.Results[0].DocumentID)
		assert.Equal(t, "Geography", data.Results[0].DocumentTitle)
		assert.Contains(t, data.Results[0].Content, "Paris")
	})

	t.Run("ask records history", func(t *testing.T) {
		resp := env.Post("/ask", map[string]string{"question": "What is the capital of France?"}, userToken)
		require.Equal(t, http.StatusOK, resp.Status, resp.Error)
		var answer struct {
			Answer  string `json:"answer"`
			Sources []struct {
				DocumentID string `json:"documentId"`
			} `json:"sources"`
		}
		resp.Decode(t, &answer)
		assert.Equal(t, cannedAnswer, answer.Answer)
		require.NotEmpty(t, answer.Sources)

		history := env.Get("/search-history", userToken)
		require.Equal(t, http.StatusOK, history.Status)
		var entries []struct {
			ID       string `json:"id"`
			Question string `json:"question"`
		}
		history.Decode(t, &entries)
		require.Len(t, entries, 1)
		assert.Equal(t, "What is the capital of France?", entries[0].Question)

		other := env.Delete("/search-history/"+entries[0].ID, adminToken)
		assert.Equal(t, http.StatusNotFound, other.Status)

		del := env.Delete("/search-history/"+entries[0].ID, userToken)
		assert.Equal(t, http.StatusNoContent, del.Status)
	})

	t.Run("regenerate embeddings", func(t *testing.T) {
		resp := env.Post("/admin/documents/"+doc.DocumentID+"/regenerate", map[string]string{}, adminToken)
		require.Equal(t, http.StatusOK, resp.Status, resp.Error)
		var result ingestData
		resp.Decode(t, &result)
		assert.Equal(t, doc.ChunksCount, result.ChunksCount)
	})

	t.Run("view original file", func(t *testing.T) {
		resp := env.Get("/admin/documents/"+doc.DocumentID+"/view", adminToken)
		require.Equal(t, http.StatusOK, resp.Status, resp.Error)
		var view struct {
			URL string `json:"url"`
		}
		resp.Decode(t, &view)

		content, err := env.DownloadFile(view.URL)
		require.NoError(t, err)
		assert.Equal(t, geography, content)
	})

	t.Run("delete cascades", func(t *testing.T) {
		resp := env.Delete("/admin/documents/"+doc.DocumentID, adminToken)
		require.Equal(t, http.StatusNoContent, resp.Status)

		get := env.Get("/admin/documents/"+doc.DocumentID, adminToken)
		assert.Equal(t, http.StatusNotFound, get.Status)

		count, err := env.App.Chunks.Count(env.Ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestE2E_RejectsBadRequests(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	assert.Equal(t, http.StatusUnauthorized, env.Get("/search-history", "").Status)
	assert.Equal(t, http.StatusUnauthorized, env.Get("/search-history", "dqa_wrong").Status)

	empty := env.Post("/ask", map[string]string{"question": "  "}, userToken)
	assert.Equal(t, http.StatusBadRequest, empty.Status)

	unsupported := env.Upload("image.png", "", []byte{0x89, 'P', 'N', 'G'}, adminToken)
	assert.Equal(t, http.StatusBadRequest, unsupported.Status)

	blank := env.Upload("blank.txt", "", []byte("   \n\n  "), adminToken)
	assert.Equal(t, http.StatusBadRequest, blank.Status)

	missing := env.Get("/admin/documents/00000000-0000-0000-0000-000000000000", adminToken)
	assert.Equal(t, http.StatusNotFound, missing.Status)
}
