package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"signal-alert-engine/config"
	"signal-alert-engine/internal/dto"
	"signal-alert-engine/internal/indicator"
	"signal-alert-engine/internal/repository"
	"signal-alert-engine/pkg/cache"
	"signal-alert-engine/pkg/logger"
	"signal-alert-engine/pkg/metrics"
	"signal-alert-engine/pkg/utils"

	"golang.org/x/sync/errgroup"
)

type SignalService interface {
	GenerateSignals(ctx context.Context, assetID, timeframe string) ([]dto.TradingSignal, error)
	GetBestSignal(ctx context.Context, assetID, timeframe string) (*dto.TradingSignal, error)
	GetSignals(ctx context.Context, assets, timeframes []string) ([]dto.SignalResult, map[string]error)
	GetBestSignals(ctx context.Context, assets []string, timeframe string) map[string]*dto.TradingSignal
}

type signalService struct {
	cfg           *config.Config
	log           *logger.Logger
	candleRepo    repository.CandleRepository
	sentimentRepo repository.SentimentRepository
	onChainRepo   repository.OnChainRepository
	evaluators    []indicator.Evaluator
	cache         *cache.FlightCache[[]dto.TradingSignal]
	metrics       *metrics.Recorder
}

func NewSignalService(
	cfg *config.Config,
	log *logger.Logger,
	candleRepo repository.CandleRepository,
	sentimentRepo repository.SentimentRepository,
	onChainRepo repository.OnChainRepository,
	signalCache *cache.FlightCache[[]dto.TradingSignal],
	rec *metrics.Recorder,
) SignalService {
	return &signalService{
		cfg:           cfg,
		log:           log,
		candleRepo:    candleRepo,
		sentimentRepo: sentimentRepo,
		onChainRepo:   onChainRepo,
		evaluators:    indicator.Default(),
		cache:         signalCache,
		metrics:       rec,
	}
}

func signalCacheKey(assetID, timeframe string) string {
	return strings.ToLower(assetID) + ":" + timeframe
}

func (s *signalService) normalize(assetID, timeframe string) (string, string, error) {
	assetID = strings.ToLower(strings.TrimSpace(assetID))
	if assetID == "" {
		return "", "", &dto.ValidationError{Field: "asset_id", Message: "is required"}
	}
	if timeframe == "" {
		timeframe = s.cfg.Signal.DefaultTimeframe
	}
	if !utils.ContainsString(dto.SupportedIntervals(), timeframe) {
		return "", "", &dto.ValidationError{
			Field:   "timeframe",
			Message: fmt.Sprintf("unsupported timeframe %q, expected one of %s", timeframe, strings.Join(dto.SupportedIntervals(), ", ")),
		}
	}
	return assetID, timeframe, nil
}

// GenerateSignals returns the enhanced signals for one asset and timeframe.
// Concurrent calls for the same pair share one pipeline run.
func (s *signalService) GenerateSignals(ctx context.Context, assetID, timeframe string) ([]dto.TradingSignal, error) {
	assetID, timeframe, err := s.normalize(assetID, timeframe)
	if err != nil {
		return nil, err
	}

	signals, outcome, err := s.cache.Get(ctx, signalCacheKey(assetID, timeframe), func(ctx context.Context) ([]dto.TradingSignal, error) {
		return s.runPipeline(ctx, assetID, timeframe)
	})
	if err != nil {
		return nil, err
	}
	s.log.DebugContext(ctx, "signals served",
		logger.StringField("asset_id", assetID),
		logger.StringField("timeframe", timeframe),
		logger.StringField("cache", string(outcome)),
	)

	out := make([]dto.TradingSignal, len(signals))
	for i, sig := range signals {
		out[i] = sig.Clone()
	}
	return out, nil
}

func (s *signalService) runPipeline(ctx context.Context, assetID, timeframe string) ([]dto.TradingSignal, error) {
	defer s.metrics.ObserveSince("signal_pipeline", time.Now())

	asset := s.cfg.Signal.AssetByID(assetID)
	series, err := s.candleRepo.Get(ctx, dto.GetCandlesParam{
		AssetID:   assetID,
		Symbol:    asset.Symbol,
		Pair:      asset.Pair,
		Timeframe: timeframe,
		Limit:     s.cfg.Signal.CandleLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load candles for %s %s: %w", assetID, timeframe, err)
	}

	combined := CombineSignals(indicator.EvaluateAll(s.evaluators, *series))

	directional := false
	for _, sig := range combined {
		if sig.Type.Direction() != dto.SignalNeutral {
			directional = true
			break
		}
	}

	var (
		sentiment *dto.SentimentReading
		onChain   dto.OnChainSentiment
	)
	if directional {
		sentiment, onChain = s.loadContext(ctx, assetID)
	}

	stopLoss, takeProfit, hasRisk := indicator.RiskLevels(*series)
	out := make([]dto.TradingSignal, 0, len(combined))
	for _, sig := range combined {
		enhanced := EnhanceSignal(sig, sentiment, onChain)
		if enhanced.Type.IsBuyLike() && hasRisk {
			enhanced.StopLossPct = utils.ToPointer(stopLoss)
			enhanced.TakeProfitPct = utils.ToPointer(takeProfit)
		}
		s.metrics.RecordSignal(string(enhanced.Type))
		out = append(out, enhanced)
	}

	s.log.InfoContext(ctx, "signal pipeline finished",
		logger.StringField("asset_id", assetID),
		logger.StringField("timeframe", timeframe),
		logger.StringField("candle_source", series.Source),
		logger.IntField("signals", len(out)),
	)
	return out, nil
}

// loadContext fetches sentiment and on-chain readings in parallel. A failing
// source leaves its reading unavailable and does not cancel the other.
func (s *signalService) loadContext(ctx context.Context, assetID string) (*dto.SentimentReading, dto.OnChainSentiment) {
	var (
		sentiment *dto.SentimentReading
		readings  []dto.OnChainReading
	)

	var g errgroup.Group
	g.Go(func() error {
		reading, err := s.sentimentRepo.GetSentiment(ctx, assetID)
		if err != nil {
			s.log.WarnContext(ctx, "sentiment unavailable", logger.StringField("asset_id", assetID), logger.ErrorField(err))
			return nil
		}
		sentiment = reading
		return nil
	})
	g.Go(func() error {
		result, err := s.onChainRepo.GetReadings(ctx, assetID)
		if err != nil {
			s.log.WarnContext(ctx, "on-chain readings unavailable", logger.StringField("asset_id", assetID), logger.ErrorField(err))
			return nil
		}
		readings = result
		return nil
	})
	_ = g.Wait()

	return sentiment, AggregateOnChain(readings)
}

// GetBestSignal picks the highest-confidence directional signal. On a tie the
// earlier signal wins.
func (s *signalService) GetBestSignal(ctx context.Context, assetID, timeframe string) (*dto.TradingSignal, error) {
	signals, err := s.GenerateSignals(ctx, assetID, timeframe)
	if err != nil {
		return nil, err
	}

	var best *dto.TradingSignal
	for i := range signals {
		if signals[i].Type.Direction() == dto.SignalNeutral {
			continue
		}
		if best == nil || signals[i].Confidence > best.Confidence {
			best = &signals[i]
		}
	}
	if best == nil {
		_, tf, _ := s.normalize(assetID, timeframe)
		return nil, &dto.NoSignalError{AssetID: strings.ToLower(assetID), Timeframe: tf}
	}
	return best, nil
}

// GetSignals runs one pipeline per (asset, timeframe) pair. A failed pair is
// reported in the error map under "asset:timeframe" and never aborts others.
func (s *signalService) GetSignals(ctx context.Context, assets, timeframes []string) ([]dto.SignalResult, map[string]error) {
	assets = utils.Dedup(assets)
	if len(timeframes) == 0 {
		timeframes = []string{s.cfg.Signal.DefaultTimeframe}
	}
	timeframes = utils.Dedup(timeframes)

	results := make([]dto.SignalResult, len(assets)*len(timeframes))
	errs := make(map[string]error)
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.maxConcurrency())
	for i, assetID := range assets {
		for j, timeframe := range timeframes {
			idx := i*len(timeframes) + j
			assetID, timeframe := assetID, timeframe
			g.Go(func() error {
				result := dto.SignalResult{AssetID: assetID, Timeframe: timeframe}
				signals, err := s.GenerateSignals(ctx, assetID, timeframe)
				if err != nil {
					result.Error = err.Error()
					mu.Lock()
					errs[signalCacheKey(assetID, timeframe)] = err
					mu.Unlock()
				} else {
					result.Signals = signals
				}
				results[idx] = result
				return nil
			})
		}
	}
	_ = g.Wait()

	return results, errs
}

// GetBestSignals maps each asset to its best signal. Assets without one are
// left out.
func (s *signalService) GetBestSignals(ctx context.Context, assets []string, timeframe string) map[string]*dto.TradingSignal {
	assets = utils.Dedup(assets)
	out := make(map[string]*dto.TradingSignal, len(assets))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.maxConcurrency())
	for _, assetID := range assets {
		assetID := assetID
		g.Go(func() error {
			best, err := s.GetBestSignal(ctx, assetID, timeframe)
			if err != nil {
				s.log.DebugContext(ctx, "no best signal", logger.StringField("asset_id", assetID), logger.ErrorField(err))
				return nil
			}
			mu.Lock()
			out[assetID] = best
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (s *signalService) maxConcurrency() int {
	if s.cfg.Signal.MaxConcurrency > 0 {
		return s.cfg.Signal.MaxConcurrency
	}
	return 4
}
