package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testModel    = "distilbert/distilbert-base-uncased-finetuned-sst-2-english"
	testRevision = "714eb0f"
)

func newHubServer(t *testing.T, files map[string]string, requests *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)
		body, ok := files[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
}

func TestFetcher_Fetch(t *testing.T) {
	files := map[string]string{
		"/" + testModel + "/resolve/" + testRevision + "/config.json":     `{"id2label":{"0":"NEGATIVE","1":"POSITIVE"}}`,
		"/" + testModel + "/resolve/" + testRevision + "/vocab.txt":       "[PAD]\n[UNK]\n[CLS]\n[SEP]\n",
		"/" + testModel + "/resolve/" + testRevision + "/onnx/model.onnx": "onnx-bytes",
	}

	t.Run("downloads missing files into the revision directory", func(t *testing.T) {
		var requests int32
		server := newHubServer(t, files, &requests)
		defer server.Close()

		fetcher := NewFetcher(server.URL, t.TempDir(), "", 5*time.Second)

		dir, err := fetcher.Fetch(context.Background(), testModel, testRevision, "config.json", "vocab.txt", "onnx/model.onnx")

		require.NoError(t, err)
		assert.Equal(t, fetcher.Dir(testModel, testRevision), dir)
		assert.Equal(t, int32(3), atomic.LoadInt32(&requests))

		data, err := os.ReadFile(filepath.Join(dir, "onnx", "model.onnx"))
		require.NoError(t, err)
		assert.Equal(t, "onnx-bytes", string(data))
	})

	t.Run("reuses cached files without network access", func(t *testing.T) {
		var requests int32
		server := newHubServer(t, files, &requests)
		defer server.Close()

		fetcher := NewFetcher(server.URL, t.TempDir(), "", 5*time.Second)

		_, err := fetcher.Fetch(context.Background(), testModel, testRevision, "config.json")
		require.NoError(t, err)
		_, err = fetcher.Fetch(context.Background(), testModel, testRevision, "config.json")
		require.NoError(t, err)

		assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
	})

	t.Run("missing file at revision", func(t *testing.T) {
		var requests int32
		server := newHubServer(t, files, &requests)
		defer server.Close()

		fetcher := NewFetcher(server.URL, t.TempDir(), "", 5*time.Second)

		_, err := fetcher.Fetch(context.Background(), testModel, "0000000", "config.json")

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("failed download leaves no partial file", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		fetcher := NewFetcher(server.URL, t.TempDir(), "", 5*time.Second)

		_, err := fetcher.Fetch(context.Background(), testModel, testRevision, "vocab.txt")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
		_, statErr := os.Stat(filepath.Join(fetcher.Dir(testModel, testRevision), "vocab.txt"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("sends bearer token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer hf_token", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte("{}"))
		}))
		defer server.Close()

		fetcher := NewFetcher(server.URL, t.TempDir(), "hf_token", 5*time.Second)

		_, err := fetcher.Fetch(context.Background(), testModel, testRevision, "config.json")

		assert.NoError(t, err)
	})

	t.Run("requires model and revision", func(t *testing.T) {
		fetcher := NewFetcher("http://localhost", t.TempDir(), "", time.Second)

		_, err := fetcher.Fetch(context.Background(), testModel, "", "config.json")

		assert.Error(t, err)
	})
}
