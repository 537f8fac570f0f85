package repository

import (
	"context"

	"signal-alert-engine/internal/dto"
	"signal-alert-engine/pkg/logger"
	"signal-alert-engine/pkg/metrics"
)

// PriceFeedRepository returns current prices. It has no synthetic fallback:
// a trigger decision must never be made on an invented price.
type PriceFeedRepository interface {
	GetPrices(ctx context.Context, currency string, ids []string) ([]dto.PriceSnapshot, error)
}

type priceFeedRepository struct {
	coinGecko CoinGeckoRepository
	log       *logger.Logger
	metrics   *metrics.Recorder
}

func NewPriceFeedRepository(coinGecko CoinGeckoRepository, log *logger.Logger, rec *metrics.Recorder) PriceFeedRepository {
	return &priceFeedRepository{
		coinGecko: coinGecko,
		log:       log,
		metrics:   rec,
	}
}

func (r *priceFeedRepository) GetPrices(ctx context.Context, currency string, ids []string) ([]dto.PriceSnapshot, error) {
	prices, err := r.coinGecko.GetMarkets(ctx, currency, ids)
	if err != nil {
		r.metrics.RecordUpstreamError("price_feed")
		return nil, &dto.ExternalServiceError{Service: "price_feed", Err: err}
	}
	if len(prices) < len(ids) {
		r.log.DebugContext(ctx, "price feed returned a partial batch",
			logger.IntField("requested", len(ids)),
			logger.IntField("received", len(prices)),
		)
	}
	return prices, nil
}
