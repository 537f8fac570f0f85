package repository

import (
	"context"
	"fmt"
	"time"

	"signal-alert-engine/config"
	"signal-alert-engine/internal/dto"
	"signal-alert-engine/pkg/cache"
	"signal-alert-engine/pkg/httpclient"
	"signal-alert-engine/pkg/logger"
	"signal-alert-engine/pkg/metrics"
	"signal-alert-engine/pkg/utils"
)

const keyOnChain = "onchain:%s"

// OnChainRepository only covers the configured assets; any other asset
// yields an empty set.
type OnChainRepository interface {
	GetReadings(ctx context.Context, assetID string) ([]dto.OnChainReading, error)
}

type onChainRepository struct {
	httpClient httpclient.HTTPClient
	cache      cache.Cache
	ttl        time.Duration
	supported  []string
	log        *logger.Logger
	metrics    *metrics.Recorder
}

func NewOnChainRepository(cfg config.OnChain, log *logger.Logger, rec *metrics.Recorder) OnChainRepository {
	return &onChainRepository{
		httpClient: httpclient.New(cfg.BaseURL, cfg.Timeout,
			httpclient.WithRateLimit(cfg.MaxRequestPerMinute),
			httpclient.WithMaxRetryElapsed(cfg.MaxRetryElapsed),
			httpclient.WithHeader("X-API-Key", cfg.APIKey),
		),
		cache:     cache.NewCache(cfg.CacheDuration, 0),
		ttl:       cfg.CacheDuration,
		supported: cfg.SupportedAssets,
		log:       log,
		metrics:   rec,
	}
}

type onChainResponse struct {
	Metrics []struct {
		Name          string  `json:"name"`
		Value         float64 `json:"value"`
		PreviousValue float64 `json:"previous_value"`
		Bullish       bool    `json:"bullish"`
		Description   string  `json:"interpretation"`
	} `json:"metrics"`
}

func (r *onChainRepository) GetReadings(ctx context.Context, assetID string) ([]dto.OnChainReading, error) {
	if !utils.ContainsString(r.supported, assetID) {
		return nil, nil
	}

	key := fmt.Sprintf(keyOnChain, assetID)
	if cached, ok := cache.GetTyped[[]dto.OnChainReading](r.cache, key); ok {
		return cached, nil
	}

	readings, err := r.fetch(ctx, assetID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.metrics.RecordUpstreamError("onchain")
		r.metrics.RecordFallback("onchain")
		r.log.WarnContext(ctx, "on-chain source unavailable, using estimated metrics",
			logger.StringField("asset_id", assetID),
			logger.ErrorField(err),
		)
		readings = syntheticOnChain(assetID, utils.Now())
	}

	r.cache.Set(key, readings, r.ttl)
	return readings, nil
}

func (r *onChainRepository) fetch(ctx context.Context, assetID string) ([]dto.OnChainReading, error) {
	var resp onChainResponse
	if _, err := r.httpClient.Get(ctx, "/onchain/"+assetID, nil, nil, &resp); err != nil {
		return nil, &dto.ExternalServiceError{Service: "onchain", Err: err}
	}
	if len(resp.Metrics) == 0 {
		return nil, &dto.ExternalServiceError{Service: "onchain", Err: fmt.Errorf("empty metric set for %s", assetID)}
	}

	out := make([]dto.OnChainReading, 0, len(resp.Metrics))
	for _, m := range resp.Metrics {
		out = append(out, newOnChainReading(m.Name, m.Value, m.PreviousValue, m.Bullish, m.Description, dto.SourceLive))
	}
	return out, nil
}
