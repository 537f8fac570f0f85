package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"signal-alert-engine/config"
	"signal-alert-engine/internal/dto"
	"signal-alert-engine/internal/model"
	"signal-alert-engine/internal/notifier"
	"signal-alert-engine/internal/repository"
	"signal-alert-engine/internal/service"
	"signal-alert-engine/pkg/logger"
	"signal-alert-engine/pkg/middleware"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPriceFeed struct {
	mu     sync.Mutex
	prices map[string]float64
}

func (f *stubPriceFeed) GetPrices(ctx context.Context, currency string, ids []string) ([]dto.PriceSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []dto.PriceSnapshot
	for _, id := range ids {
		if p, ok := f.prices[id]; ok {
			out = append(out, dto.PriceSnapshot{AssetID: id, Price: p})
		}
	}
	return out, nil
}

type stubSentiment struct{}

func (stubSentiment) GetSentiment(ctx context.Context, assetID string) (*dto.SentimentReading, error) {
	return nil, nil
}

type stubSignals struct {
	signals map[string][]dto.TradingSignal
}

func (s *stubSignals) GenerateSignals(ctx context.Context, assetID, timeframe string) ([]dto.TradingSignal, error) {
	if assetID == "" {
		return nil, &dto.ValidationError{Field: "asset_id", Message: "is required"}
	}
	return s.signals[assetID], nil
}

func (s *stubSignals) GetBestSignal(ctx context.Context, assetID, timeframe string) (*dto.TradingSignal, error) {
	list := s.signals[assetID]
	if len(list) == 0 {
		return nil, &dto.NoSignalError{AssetID: assetID, Timeframe: timeframe}
	}
	best := list[0].Clone()
	return &best, nil
}

func (s *stubSignals) GetSignals(ctx context.Context, assets, timeframes []string) ([]dto.SignalResult, map[string]error) {
	out := make([]dto.SignalResult, 0, len(assets))
	for _, a := range assets {
		out = append(out, dto.SignalResult{AssetID: a, Signals: s.signals[a]})
	}
	return out, nil
}

func (s *stubSignals) GetBestSignals(ctx context.Context, assets []string, timeframe string) map[string]*dto.TradingSignal {
	out := make(map[string]*dto.TradingSignal)
	for _, a := range assets {
		if best, err := s.GetBestSignal(ctx, a, timeframe); err == nil {
			out[a] = best
		}
	}
	return out
}

type stubScheduler struct{}

func (stubScheduler) Start(ctx context.Context) error { return nil }
func (stubScheduler) Stop()                           {}

func (stubScheduler) GetJobSchedule(ctx context.Context) []model.JobStatus {
	return []model.JobStatus{{Job: model.Job{Name: "check-alerts", Type: "alert_trigger_check", Spec: "@every 1m"}}}
}

func (stubScheduler) RunJobTask(ctx context.Context, name string) (*model.JobRun, error) {
	if name != "check-alerts" {
		return nil, dto.ErrJobNotFound
	}
	return &model.JobRun{JobName: name, Status: model.StatusCompleted, ExitCode: 204}, nil
}

type testServer struct {
	echo *echo.Echo
	feed *stubPriceFeed
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Signal: config.Signal{DefaultTimeframe: dto.Interval1Day},
		Alert:  config.Alert{Currency: "eur", SystemOwner: "system", MaxConcurrency: 2, FeedTimeout: time.Second},
	}
	log := logger.NewNop()
	feed := &stubPriceFeed{prices: map[string]float64{"bitcoin": 50000}}
	signals := &stubSignals{signals: map[string][]dto.TradingSignal{
		"bitcoin": {{AssetID: "bitcoin", Type: dto.SignalBuy, Confidence: 80, Timeframe: dto.Interval1Day}},
	}}
	dispatcher := notifier.NewDispatcher(log, nil, time.Second)
	t.Cleanup(dispatcher.Wait)

	svc := &service.Service{
		SchedulerService: stubScheduler{},
		SignalService:    signals,
		AlertService: service.NewAlertService(cfg, log, repository.NewAlertMemoryRepository(),
			feed, stubSentiment{}, signals, dispatcher, nil),
	}

	e := echo.New()
	NewHttpAPIHandler(context.Background(), e, log, svc, nil).SetupRoutes()
	return &testServer{echo: e, feed: feed}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path, owner, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if owner != "" {
		req.Header.Set(middleware.OwnerHeader, owner)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &dto.ValidationError{Field: "x", Message: "bad"}, http.StatusBadRequest},
		{"alert not found", dto.ErrAlertNotFound, http.StatusNotFound},
		{"job not found", dto.ErrJobNotFound, http.StatusNotFound},
		{"no signal", &dto.NoSignalError{AssetID: "bitcoin"}, http.StatusUnprocessableEntity},
		{"price unavailable", &dto.PriceUnavailableError{AssetID: "bitcoin"}, http.StatusServiceUnavailable},
		{"persistence", &dto.PersistenceError{Op: "list", Err: assert.AnError}, http.StatusInternalServerError},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", env.Message)
}

func TestAlerts_RequireOwner(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(t, http.MethodGet, "/api/v1/alerts", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAlerts_Lifecycle(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/alerts", "alice",
		`{"asset_id":"bitcoin","condition":"above","target_price":60000}`)
	require.Equal(t, http.StatusCreated, code, env.Message)

	var created model.PriceAlert
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "alice", created.Owner)
	assert.Equal(t, "eur", created.Currency)

	t.Run("get", func(t *testing.T) {
		code, _ := s.do(t, http.MethodGet, "/api/v1/alerts/"+created.ID, "alice", "")
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("other owner cannot see it", func(t *testing.T) {
		code, _ := s.do(t, http.MethodGet, "/api/v1/alerts/"+created.ID, "bob", "")
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("list", func(t *testing.T) {
		code, env := s.do(t, http.MethodGet, "/api/v1/alerts?asset_id=bitcoin", "alice", "")
		require.Equal(t, http.StatusOK, code)
		var alerts []model.PriceAlert
		require.NoError(t, json.Unmarshal(env.Data, &alerts))
		assert.Len(t, alerts, 1)
	})

	t.Run("update", func(t *testing.T) {
		code, env := s.do(t, http.MethodPatch, "/api/v1/alerts/"+created.ID, "alice", `{"target_price":55000}`)
		require.Equal(t, http.StatusOK, code)
		var updated model.PriceAlert
		require.NoError(t, json.Unmarshal(env.Data, &updated))
		assert.Equal(t, 55000.0, updated.TargetPrice)
	})

	t.Run("check triggers once", func(t *testing.T) {
		s.feed.mu.Lock()
		s.feed.prices["bitcoin"] = 56000
		s.feed.mu.Unlock()

		code, env := s.do(t, http.MethodPost, "/api/v1/alerts/check", "", "")
		require.Equal(t, http.StatusOK, code)
		var triggered []model.PriceAlert
		require.NoError(t, json.Unmarshal(env.Data, &triggered))
		require.Len(t, triggered, 1)
		assert.Equal(t, created.ID, triggered[0].ID)

		code, env = s.do(t, http.MethodPost, "/api/v1/alerts/check", "", "")
		require.Equal(t, http.StatusOK, code)
		var again []model.PriceAlert
		require.NoError(t, json.Unmarshal(env.Data, &again))
		assert.Len(t, again, 0)
	})

	t.Run("triggered alert cannot be updated", func(t *testing.T) {
		code, _ := s.do(t, http.MethodPatch, "/api/v1/alerts/"+created.ID, "alice", `{"target_price":1}`)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("delete", func(t *testing.T) {
		code, _ := s.do(t, http.MethodDelete, "/api/v1/alerts/"+created.ID, "alice", "")
		assert.Equal(t, http.StatusOK, code)
		code, _ = s.do(t, http.MethodDelete, "/api/v1/alerts/"+created.ID, "alice", "")
		assert.Equal(t, http.StatusNotFound, code)
	})
}

func TestAlerts_CreateValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"asset_id":`, http.StatusBadRequest},
		{"bad condition", `{"asset_id":"bitcoin","condition":"sideways","target_price":1}`, http.StatusBadRequest},
		{"zero target", `{"asset_id":"bitcoin","condition":"below","target_price":0}`, http.StatusBadRequest},
		{"missing asset", `{"condition":"below","target_price":10}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := s.do(t, http.MethodPost, "/api/v1/alerts", "alice", tt.body)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestAlerts_GetUnknown(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(t, http.MethodGet, "/api/v1/alerts/not-a-uuid", "alice", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSignals(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"asset signals", "/api/v1/signals/bitcoin", http.StatusOK},
		{"best signal", "/api/v1/signals/bitcoin/best", http.StatusOK},
		{"no qualifying signal", "/api/v1/signals/dogecoin/best", http.StatusUnprocessableEntity},
		{"batch", "/api/v1/signals?assets=bitcoin,ethereum&timeframes=1d", http.StatusOK},
		{"batch without assets", "/api/v1/signals", http.StatusBadRequest},
		{"best batch", "/api/v1/signals/best?assets=bitcoin", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := s.do(t, http.MethodGet, tt.path, "", "")
			assert.Equal(t, tt.want, code)
		})
	}

	t.Run("batch keeps requested assets", func(t *testing.T) {
		_, env := s.do(t, http.MethodGet, "/api/v1/signals?assets=bitcoin&assets=ethereum", "", "")
		var results []dto.SignalResult
		require.NoError(t, json.Unmarshal(env.Data, &results))
		assert.Len(t, results, 2)
	})
}

func TestJobs(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodGet, "/api/v1/jobs", "", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/jobs/check-alerts/run", "", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/jobs/unknown/run", "", "")
	assert.Equal(t, http.StatusNotFound, code)
}
