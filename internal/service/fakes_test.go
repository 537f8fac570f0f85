package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"signal-alert-engine/config"
	"signal-alert-engine/internal/dto"
	"signal-alert-engine/internal/indicator"
	"signal-alert-engine/internal/model"
	"signal-alert-engine/internal/repository"
	"signal-alert-engine/pkg/cache"
	"signal-alert-engine/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Signal: config.Signal{
			CacheTTL:         time.Minute,
			ComputeTimeout:   5 * time.Second,
			MaxConcurrency:   4,
			DefaultTimeframe: dto.Interval1Day,
			CandleLimit:      50,
			Assets: []config.Asset{
				{ID: "bitcoin", Symbol: "BTC", Pair: "BTCUSDT"},
				{ID: "ethereum", Symbol: "ETH", Pair: "ETHUSDT"},
			},
		},
		Alert: config.Alert{
			Currency:       "eur",
			SystemOwner:    "system",
			TopAssets:      []string{"bitcoin", "ethereum", "cardano"},
			MaxConcurrency: 4,
			RetentionDays:  30,
			FeedTimeout:    time.Second,
		},
	}
}

func makeSeries(assetID string, n int, base float64) *dto.CandleSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]dto.Candle, n)
	for i := range candles {
		open := base + float64(i%3)
		closePrice := open + 1
		candles[i] = dto.Candle{
			OpenTime: start.Add(time.Duration(i) * 24 * time.Hour),
			Open:     open,
			High:     closePrice + 2,
			Low:      open - 2,
			Close:    closePrice,
			Volume:   1000,
		}
	}
	return &dto.CandleSeries{AssetID: assetID, Symbol: "TEST", Timeframe: dto.Interval1Day, Source: dto.SourceBinance, Candles: candles}
}

type fakeCandles struct {
	calls  atomic.Int32
	delay  time.Duration
	failOn map[string]error
	source string
}

func (f *fakeCandles) Get(ctx context.Context, param dto.GetCandlesParam) (*dto.CandleSeries, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.failOn[param.AssetID]; ok {
		return nil, err
	}
	series := makeSeries(param.AssetID, 30, 100)
	series.Symbol = param.Symbol
	series.Timeframe = param.Timeframe
	if f.source != "" {
		series.Source = f.source
	}
	return series, nil
}

type fakeSentiment struct {
	reading *dto.SentimentReading
	err     error
}

func (f *fakeSentiment) GetSentiment(ctx context.Context, assetID string) (*dto.SentimentReading, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.reading == nil {
		return nil, nil
	}
	r := *f.reading
	r.AssetID = assetID
	return &r, nil
}

type fakeOnChain struct {
	readings []dto.OnChainReading
}

func (f *fakeOnChain) GetReadings(ctx context.Context, assetID string) ([]dto.OnChainReading, error) {
	return f.readings, nil
}

// staticEvaluator emits the same raw signals for any series.
type staticEvaluator struct {
	signals []dto.RawSignal
}

func (e staticEvaluator) Name() string { return "static" }

func (e staticEvaluator) Evaluate(series dto.CandleSeries) []dto.RawSignal {
	out := make([]dto.RawSignal, len(e.signals))
	for i, s := range e.signals {
		s.AssetID = series.AssetID
		s.Symbol = series.Symbol
		s.Timeframe = series.Timeframe
		s.Price = series.LastClose()
		s.Estimated = series.Estimated()
		out[i] = s
	}
	return out
}

func newTestSignalService(candles repository.CandleRepository, sentiment repository.SentimentRepository, onChain repository.OnChainRepository, evaluators ...indicator.Evaluator) *signalService {
	cfg := testConfig()
	log := logger.NewNop()
	return &signalService{
		cfg:           cfg,
		log:           log,
		candleRepo:    candles,
		sentimentRepo: sentiment,
		onChainRepo:   onChain,
		evaluators:    evaluators,
		cache:         cache.NewFlightCache[[]dto.TradingSignal]("signals", cfg.Signal.CacheTTL, log),
	}
}

type fakePriceFeed struct {
	mu     sync.Mutex
	prices map[string]float64
	errs   map[string]error
	calls  atomic.Int32
}

func (f *fakePriceFeed) GetPrices(ctx context.Context, currency string, ids []string) ([]dto.PriceSnapshot, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []dto.PriceSnapshot
	for _, id := range ids {
		if err, ok := f.errs[id]; ok {
			return nil, err
		}
		if p, ok := f.prices[id]; ok {
			out = append(out, dto.PriceSnapshot{AssetID: id, Price: p})
		}
	}
	return out, nil
}

func (f *fakePriceFeed) set(id string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[id] = price
}

type fakeSignalService struct {
	best map[string]*dto.TradingSignal
}

func (f *fakeSignalService) GenerateSignals(ctx context.Context, assetID, timeframe string) ([]dto.TradingSignal, error) {
	if b, ok := f.best[assetID]; ok {
		return []dto.TradingSignal{b.Clone()}, nil
	}
	return nil, nil
}

func (f *fakeSignalService) GetBestSignal(ctx context.Context, assetID, timeframe string) (*dto.TradingSignal, error) {
	b, ok := f.best[assetID]
	if !ok {
		return nil, &dto.NoSignalError{AssetID: assetID, Timeframe: timeframe}
	}
	c := b.Clone()
	return &c, nil
}

func (f *fakeSignalService) GetSignals(ctx context.Context, assets, timeframes []string) ([]dto.SignalResult, map[string]error) {
	return nil, nil
}

func (f *fakeSignalService) GetBestSignals(ctx context.Context, assets []string, timeframe string) map[string]*dto.TradingSignal {
	return f.best
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []dto.NotificationEvent
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, event dto.NotificationEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *recordingDispatcher) Wait() {}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}

// failingAlertRepo wraps a working store and fails selected writes.
type failingAlertRepo struct {
	repository.AlertRepository
	markErr error
	listErr error
}

func (f *failingAlertRepo) MarkNotified(ctx context.Context, id string, at time.Time, price float64) (bool, error) {
	if f.markErr != nil {
		return false, f.markErr
	}
	return f.AlertRepository.MarkNotified(ctx, id, at, price)
}

func (f *failingAlertRepo) List(ctx context.Context, param model.GetPriceAlertParam) ([]model.PriceAlert, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.AlertRepository.List(ctx, param)
}
