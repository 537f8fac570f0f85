package repository

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"signal-alert-engine/config"
	"signal-alert-engine/internal/dto"
	"signal-alert-engine/pkg/httpclient"
	"signal-alert-engine/pkg/logger"
)

type CoinGeckoRepository interface {
	GetMarkets(ctx context.Context, currency string, ids []string) ([]dto.PriceSnapshot, error)
	GetMarketChart(ctx context.Context, id, currency string, days int) ([]dto.Candle, error)
}

type coinGeckoRepository struct {
	httpClient httpclient.HTTPClient
	logger     *logger.Logger
}

func NewCoinGeckoRepository(cfg config.ExternalAPI, log *logger.Logger) CoinGeckoRepository {
	return &coinGeckoRepository{
		httpClient: httpclient.New(cfg.BaseURL, cfg.Timeout,
			httpclient.WithRateLimit(cfg.MaxRequestPerMinute),
			httpclient.WithMaxRetryElapsed(cfg.MaxRetryElapsed),
			httpclient.WithHeader("x-cg-demo-api-key", cfg.APIKey),
		),
		logger: log,
	}
}

type coinGeckoMarket struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"`
	CurrentPrice             *float64 `json:"current_price"`
	PriceChangePercentage24h float64  `json:"price_change_percentage_24h"`
	LastUpdated              string   `json:"last_updated"`
}

// GetMarkets returns snapshots for the ids the provider knows about. Unknown
// ids and entries without a price are left out.
func (r *coinGeckoRepository) GetMarkets(ctx context.Context, currency string, ids []string) ([]dto.PriceSnapshot, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	queryParams := map[string]string{
		"vs_currency": strings.ToLower(currency),
		"ids":         strings.Join(ids, ","),
	}

	var markets []coinGeckoMarket
	if _, err := r.httpClient.Get(ctx, "/coins/markets", queryParams, nil, &markets); err != nil {
		return nil, fmt.Errorf("failed to fetch markets from coingecko: %w", err)
	}

	out := make([]dto.PriceSnapshot, 0, len(markets))
	for _, m := range markets {
		if m.CurrentPrice == nil {
			continue
		}
		updated, err := time.Parse(time.RFC3339, m.LastUpdated)
		if err != nil {
			updated = time.Now().UTC()
		}
		out = append(out, dto.PriceSnapshot{
			AssetID:      m.ID,
			Symbol:       strings.ToUpper(m.Symbol),
			Price:        *m.CurrentPrice,
			Change24hPct: m.PriceChangePercentage24h,
			UpdatedAt:    updated,
		})
	}
	return out, nil
}

type coinGeckoChart struct {
	Prices       [][]float64 `json:"prices"`
	TotalVolumes [][]float64 `json:"total_volumes"`
}

// GetMarketChart builds candles from the close-only price series. Open is
// the previous close and the wicks span open and close, so the OHLC shape is
// an approximation.
func (r *coinGeckoRepository) GetMarketChart(ctx context.Context, id, currency string, days int) ([]dto.Candle, error) {
	queryParams := map[string]string{
		"vs_currency": strings.ToLower(currency),
		"days":        strconv.Itoa(days),
	}

	var chart coinGeckoChart
	if _, err := r.httpClient.Get(ctx, "/coins/"+id+"/market_chart", queryParams, nil, &chart); err != nil {
		return nil, fmt.Errorf("failed to fetch market chart from coingecko: %w", err)
	}

	candles := make([]dto.Candle, 0, len(chart.Prices))
	for i, p := range chart.Prices {
		if len(p) < 2 {
			continue
		}
		closePrice := p[1]
		open := closePrice
		if n := len(candles); n > 0 {
			open = candles[n-1].Close
		}
		var volume float64
		if i < len(chart.TotalVolumes) && len(chart.TotalVolumes[i]) > 1 {
			volume = chart.TotalVolumes[i][1]
		}
		candles = append(candles, dto.Candle{
			OpenTime: time.UnixMilli(int64(p[0])).UTC(),
			Open:     open,
			High:     math.Max(open, closePrice),
			Low:      math.Min(open, closePrice),
			Close:    closePrice,
			Volume:   volume,
		})
	}
	return candles, nil
}
