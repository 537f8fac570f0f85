package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"signal-alert-engine/config"
	"signal-alert-engine/internal/dto"
	"signal-alert-engine/pkg/cache"
	"signal-alert-engine/pkg/httpclient"
	"signal-alert-engine/pkg/logger"
	"signal-alert-engine/pkg/metrics"
	"signal-alert-engine/pkg/utils"
)

const keySentiment = "sentiment:%s"

type SentimentRepository interface {
	GetSentiment(ctx context.Context, assetID string) (*dto.SentimentReading, error)
}

type sentimentRepository struct {
	httpClient httpclient.HTTPClient
	cache      cache.Cache
	ttl        time.Duration
	log        *logger.Logger
	metrics    *metrics.Recorder
}

func NewSentimentRepository(cfg config.ExternalAPI, log *logger.Logger, rec *metrics.Recorder) SentimentRepository {
	return &sentimentRepository{
		httpClient: httpclient.New(cfg.BaseURL, cfg.Timeout,
			httpclient.WithRateLimit(cfg.MaxRequestPerMinute),
			httpclient.WithMaxRetryElapsed(cfg.MaxRetryElapsed),
			httpclient.WithHeader("X-API-Key", cfg.APIKey),
		),
		cache:   cache.NewCache(cfg.CacheDuration, 0),
		ttl:     cfg.CacheDuration,
		log:     log,
		metrics: rec,
	}
}

type sentimentResponse struct {
	Symbol    string  `json:"symbol"`
	Score     float64 `json:"score"`
	Source    string  `json:"source"`
	Timestamp string  `json:"timestamp"`
	Trend     string  `json:"trend"`
}

// scoreFromUnit maps a provider score in [0, 1] onto [-100, 100].
func scoreFromUnit(v float64) float64 {
	return utils.Clamp(v, 0, 1)*200 - 100
}

func (r *sentimentRepository) GetSentiment(ctx context.Context, assetID string) (*dto.SentimentReading, error) {
	key := fmt.Sprintf(keySentiment, assetID)
	if cached, ok := cache.GetTyped[dto.SentimentReading](r.cache, key); ok {
		return &cached, nil
	}

	reading, err := r.fetch(ctx, assetID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.metrics.RecordUpstreamError("sentiment")
		r.metrics.RecordFallback("sentiment")
		r.log.WarnContext(ctx, "sentiment source unavailable, using estimated reading",
			logger.StringField("asset_id", assetID),
			logger.ErrorField(err),
		)
		estimated := syntheticSentiment(assetID, utils.Now())
		reading = &estimated
	}

	r.cache.Set(key, *reading, r.ttl)
	return reading, nil
}

func (r *sentimentRepository) fetch(ctx context.Context, assetID string) (*dto.SentimentReading, error) {
	var resp sentimentResponse
	if _, err := r.httpClient.Get(ctx, "/sentiment/"+assetID, nil, nil, &resp); err != nil {
		return nil, &dto.ExternalServiceError{Service: "sentiment", Err: err}
	}

	score := scoreFromUnit(resp.Score)
	var breakdown dto.SentimentBreakdown
	switch strings.ToLower(resp.Source) {
	case "twitter":
		breakdown.Twitter = score
	case "reddit":
		breakdown.Reddit = score
	default:
		breakdown.News = score
	}

	asOf, err := time.Parse(time.RFC3339, resp.Timestamp)
	if err != nil {
		asOf = utils.Now()
	}
	trend := resp.Trend
	if trend == "" {
		trend = dto.TrendStable
	}

	return &dto.SentimentReading{
		AssetID:      assetID,
		OverallScore: score,
		Breakdown:    breakdown,
		Trend:        trend,
		AsOf:         asOf,
		Source:       dto.SourceLive,
	}, nil
}
