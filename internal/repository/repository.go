package repository

import (
	"fmt"

	"signal-alert-engine/config"
	"signal-alert-engine/pkg/logger"
	"signal-alert-engine/pkg/metrics"

	"gorm.io/gorm"
)

type Repository struct {
	PriceFeedRepo PriceFeedRepository
	CandleRepo    CandleRepository
	SentimentRepo SentimentRepository
	OnChainRepo   OnChainRepository
	AlertRepo     AlertRepository
}

// NewRepository wires every port. db may be nil when the alert store is
// configured as "memory".
func NewRepository(cfg *config.Config, db *gorm.DB, log *logger.Logger, rec *metrics.Recorder) (*Repository, error) {
	var alertRepo AlertRepository
	switch cfg.Alert.StoreDriver {
	case "memory":
		alertRepo = NewAlertMemoryRepository()
	case "postgres", "":
		if db == nil {
			return nil, fmt.Errorf("alert store %q needs a database connection", "postgres")
		}
		alertRepo = NewAlertRepository(db)
	default:
		return nil, fmt.Errorf("unknown alert store driver %q", cfg.Alert.StoreDriver)
	}

	priceFeedGecko := NewCoinGeckoRepository(cfg.PriceFeed, log)
	candleGecko := NewCoinGeckoRepository(cfg.Candles.CoinGecko, log)
	binanceRepo := NewBinanceRepository(cfg.Candles.Binance, log)

	return &Repository{
		PriceFeedRepo: NewPriceFeedRepository(priceFeedGecko, log, rec),
		CandleRepo:    NewCandleRepository(binanceRepo, candleGecko, log, rec),
		SentimentRepo: NewSentimentRepository(cfg.Sentiment, log, rec),
		OnChainRepo:   NewOnChainRepository(cfg.OnChain, log, rec),
		AlertRepo:     alertRepo,
	}, nil
}
