package repository

import (
	"context"
	"math"

	"signal-alert-engine/internal/dto"
	"signal-alert-engine/pkg/logger"
	"signal-alert-engine/pkg/metrics"
	"signal-alert-engine/pkg/utils"
)

// CandleRepository never fails because an upstream is down. It walks the
// source chain binance, coingecko, synthetic and tags the series with the
// source that answered.
type CandleRepository interface {
	Get(ctx context.Context, param dto.GetCandlesParam) (*dto.CandleSeries, error)
}

type candleRepository struct {
	binanceRepo   BinanceRepository
	coinGeckoRepo CoinGeckoRepository
	log           *logger.Logger
	metrics       *metrics.Recorder
}

func NewCandleRepository(binanceRepo BinanceRepository, coinGeckoRepo CoinGeckoRepository, log *logger.Logger, rec *metrics.Recorder) CandleRepository {
	return &candleRepository{
		binanceRepo:   binanceRepo,
		coinGeckoRepo: coinGeckoRepo,
		log:           log,
		metrics:       rec,
	}
}

func (r *candleRepository) Get(ctx context.Context, param dto.GetCandlesParam) (*dto.CandleSeries, error) {
	series := dto.CandleSeries{
		AssetID:   param.AssetID,
		Symbol:    param.Symbol,
		Timeframe: param.Timeframe,
	}

	candles, err := r.binanceRepo.GetKlines(ctx, param.Pair, param.Timeframe, param.Limit)
	if err == nil && len(candles) > 0 {
		series.Source = dto.SourceBinance
		series.Candles = candles
		return &series, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	r.metrics.RecordUpstreamError(dto.SourceBinance)
	r.log.WarnContext(ctx, "binance klines unavailable, trying coingecko",
		logger.StringField("pair", param.Pair),
		logger.StringField("timeframe", param.Timeframe),
		logger.ErrorField(err),
	)

	days := int(math.Ceil(dto.IntervalDays(param.Timeframe) * float64(param.Limit)))
	if days < 1 {
		days = 1
	}
	candles, err = r.coinGeckoRepo.GetMarketChart(ctx, param.AssetID, "usd", days)
	if err == nil && len(candles) > 0 {
		if param.Limit > 0 && len(candles) > param.Limit {
			candles = candles[len(candles)-param.Limit:]
		}
		series.Source = dto.SourceCoinGecko
		series.Candles = candles
		return &series, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	r.metrics.RecordUpstreamError(dto.SourceCoinGecko)
	r.metrics.RecordFallback("candles")
	r.log.WarnContext(ctx, "no candle source available, using estimated series",
		logger.StringField("asset_id", param.AssetID),
		logger.ErrorField(err),
	)

	estimated := syntheticCandles(param, utils.Now())
	return &estimated, nil
}
