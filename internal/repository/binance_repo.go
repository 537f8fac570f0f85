package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"signal-alert-engine/config"
	"signal-alert-engine/internal/dto"
	"signal-alert-engine/pkg/httpclient"
	"signal-alert-engine/pkg/logger"
)

type BinanceRepository interface {
	GetKlines(ctx context.Context, pair string, interval string, limit int) ([]dto.Candle, error)
}

type binanceRepository struct {
	httpClient httpclient.HTTPClient
	logger     *logger.Logger
}

func NewBinanceRepository(cfg config.ExternalAPI, log *logger.Logger) BinanceRepository {
	return &binanceRepository{
		httpClient: httpclient.New(cfg.BaseURL, cfg.Timeout,
			httpclient.WithRateLimit(cfg.MaxRequestPerMinute),
			httpclient.WithMaxRetryElapsed(cfg.MaxRetryElapsed),
		),
		logger: log,
	}
}

func (r *binanceRepository) GetKlines(ctx context.Context, pair string, interval string, limit int) ([]dto.Candle, error) {
	queryParams := map[string]string{
		"symbol":   pair,
		"interval": interval,
		"limit":    strconv.Itoa(limit),
	}

	var klines [][]interface{}
	if _, err := r.httpClient.Get(ctx, "/api/v3/klines", queryParams, nil, &klines); err != nil {
		return nil, fmt.Errorf("failed to fetch klines from binance: %w", err)
	}

	result := make([]dto.Candle, 0, len(klines))
	for _, k := range klines {
		if len(k) < 6 {
			continue
		}
		openTime, _ := k[0].(float64)
		candle := dto.Candle{OpenTime: time.UnixMilli(int64(openTime)).UTC()}
		fields := []*float64{&candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume}
		valid := true
		for i, dst := range fields {
			s, _ := k[i+1].(string)
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				valid = false
				break
			}
			*dst = v
		}
		if !valid {
			r.logger.WarnContext(ctx, "skipping malformed binance kline", logger.StringField("pair", pair))
			continue
		}
		result = append(result, candle)
	}

	return result, nil
}
