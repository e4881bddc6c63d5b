package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/XBanTs/ai-sentiment-analysis/internal/adapter/client"
	"github.com/XBanTs/ai-sentiment-analysis/internal/adapter/hub"
	"github.com/XBanTs/ai-sentiment-analysis/internal/domain/entity"
	"github.com/XBanTs/ai-sentiment-analysis/internal/infrastructure/config"
	"github.com/XBanTs/ai-sentiment-analysis/internal/infrastructure/metrics"
)

const (
	testModel    = "distilbert/distilbert-base-uncased-finetuned-sst-2-english"
	testRevision = "714eb0f"
)

type teiServer struct {
	*httptest.Server
	predictions int32
}

func newTEIServer(t *testing.T, info client.InfoResponse, predictStatus int) *teiServer {
	t.Helper()
	s := &teiServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/info", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(info)
	})
	mux.HandleFunc("/predict", func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&s.predictions, 1)
		if predictStatus != http.StatusOK {
			w.WriteHeader(predictStatus)
			_, _ = w.Write([]byte("model crashed"))
			return
		}
		_ = json.NewEncoder(w).Encode([]client.Prediction{
			{Label: "POSITIVE", Score: 0.98},
			{Label: "NEGATIVE", Score: 0.02},
		})
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func remoteConfig(endpoint string) *config.ModelConfig {
	return &config.ModelConfig{
		Backend:        config.BackendRemote,
		ID:             testModel,
		Revision:       testRevision,
		Endpoint:       endpoint,
		RequestTimeout: 5 * time.Second,
	}
}

func TestLoad_Remote(t *testing.T) {
	t.Run("loads and classifies", func(t *testing.T) {
		srv := newTEIServer(t, client.InfoResponse{ModelID: testModel, ModelSHA: testRevision + "fa89d2"}, http.StatusOK)

		res, err := Load(context.Background(), remoteConfig(srv.URL))

		require.NoError(t, err)
		defer res.Close()
		assert.Equal(t, config.BackendRemote, res.Info().Backend)
		assert.Equal(t, testModel, res.Info().Model)
		assert.Equal(t, testRevision, res.Info().Revision)
		assert.Equal(t, int32(1), atomic.LoadInt32(&srv.predictions), "warm-up call")

		result, err := res.Classify(context.Background(), "I love this product!", "req-1")

		require.NoError(t, err)
		assert.Equal(t, "POSITIVE", result.Label)
		assert.Equal(t, 0.98, result.Score)
	})

	t.Run("unverifiable revision is accepted", func(t *testing.T) {
		srv := newTEIServer(t, client.InfoResponse{ModelID: testModel}, http.StatusOK)

		res, err := Load(context.Background(), remoteConfig(srv.URL), WithLogger(zap.NewNop()))

		require.NoError(t, err)
		assert.NotNil(t, res)
	})

	t.Run("wrong revision is fatal", func(t *testing.T) {
		srv := newTEIServer(t, client.InfoResponse{ModelID: testModel, ModelSHA: "0000000"}, http.StatusOK)

		res, err := Load(context.Background(), remoteConfig(srv.URL))

		assert.Nil(t, res)
		var initErr *InitError
		require.ErrorAs(t, err, &initErr)
		assert.Equal(t, testRevision, initErr.Info.Revision)
		assert.Contains(t, err.Error(), "serves revision")
	})

	t.Run("failing warm-up is fatal", func(t *testing.T) {
		srv := newTEIServer(t, client.InfoResponse{ModelID: testModel, ModelSHA: testRevision}, http.StatusInternalServerError)

		res, err := Load(context.Background(), remoteConfig(srv.URL))

		assert.Nil(t, res)
		var initErr *InitError
		require.ErrorAs(t, err, &initErr)
		assert.Contains(t, err.Error(), "warm-up classification failed")
	})

	t.Run("unreachable server is fatal", func(t *testing.T) {
		res, err := Load(context.Background(), remoteConfig("http://localhost:99999"))

		assert.Nil(t, res)
		var initErr *InitError
		assert.ErrorAs(t, err, &initErr)
	})
}

func TestLoad_ONNXMissingArtifacts(t *testing.T) {
	hubServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer hubServer.Close()

	cfg := &config.ModelConfig{
		Backend:  config.BackendONNX,
		ID:       testModel,
		Revision: "does-not-exist",
		HubURL:   hubServer.URL,
		CacheDir: t.TempDir(),
		ONNXFile: "onnx/model.onnx",
	}

	res, err := Load(context.Background(), cfg)

	assert.Nil(t, res)
	var initErr *InitError
	require.ErrorAs(t, err, &initErr)
	assert.ErrorIs(t, err, hub.ErrNotFound)
	assert.Equal(t, config.BackendONNX, initErr.Info.Backend)
}

func TestLoad_UnknownBackend(t *testing.T) {
	res, err := Load(context.Background(), &config.ModelConfig{Backend: "tensorflow", ID: testModel, Revision: testRevision})

	assert.Nil(t, res)
	var initErr *InitError
	assert.ErrorAs(t, err, &initErr)
}

func TestLoad_WithCacheAndMetrics(t *testing.T) {
	srv := newTEIServer(t, client.InfoResponse{ModelID: testModel, ModelSHA: testRevision}, http.StatusOK)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	reg := prometheus.NewRegistry()

	cfg := remoteConfig(srv.URL)
	cfg.MaxConcurrency = 2
	res, err := Load(context.Background(), cfg,
		WithCache(rdb, time.Minute),
		WithMetrics(metrics.New(reg)),
		WithLogger(zap.NewNop()),
	)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		result, err := res.Classify(context.Background(), "I love this product!", "")
		require.NoError(t, err)
		assert.Equal(t, "POSITIVE", result.Label)
	}

	// warm-up plus one real inference; the rest are cache hits
	assert.Equal(t, int32(2), atomic.LoadInt32(&srv.predictions))

	count, err := testutil.GatherAndCount(reg, "sentiment_cache_lookups_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "hit and miss series")
}

// MockClassifier is a mock implementation of Classifier
type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(ctx context.Context, text, requestID string) (*entity.SentimentResult, error) {
	args := m.Called(ctx, text, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.SentimentResult), args.Error(1)
}

func TestLimitedClassifier(t *testing.T) {
	t.Run("passes through when a slot is free", func(t *testing.T) {
		next := new(MockClassifier)
		next.On("Classify", mock.Anything, "hello", "").Return(&entity.SentimentResult{Label: "POSITIVE", Score: 0.9}, nil)
		l := &limitedClassifier{next: next, sem: semaphore.NewWeighted(1)}

		result, err := l.Classify(context.Background(), "hello", "")

		require.NoError(t, err)
		assert.Equal(t, "POSITIVE", result.Label)
	})

	t.Run("waiting honours cancellation", func(t *testing.T) {
		next := new(MockClassifier)
		sem := semaphore.NewWeighted(1)
		require.True(t, sem.TryAcquire(1))
		l := &limitedClassifier{next: next, sem: sem}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		result, err := l.Classify(ctx, "hello", "")

		assert.Nil(t, result)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		next.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestInstrumentedClassifier(t *testing.T) {
	reg := prometheus.NewRegistry()
	next := new(MockClassifier)
	next.On("Classify", mock.Anything, "good", "").Return(&entity.SentimentResult{Label: "POSITIVE", Score: 0.9}, nil)
	next.On("Classify", mock.Anything, "bad", "").Return(nil, errors.New("model error"))
	i := &instrumentedClassifier{next: next, backend: "onnx", metrics: metrics.New(reg), logger: zap.NewNop()}

	_, err := i.Classify(context.Background(), "good", "")
	require.NoError(t, err)
	_, err = i.Classify(context.Background(), "bad", "")
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "sentiment_classifications_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "success and error series")
}
