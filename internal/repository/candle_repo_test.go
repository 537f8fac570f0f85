package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"signal-alert-engine/internal/dto"
	"signal-alert-engine/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBinance struct {
	candles []dto.Candle
	err     error
}

func (f *fakeBinance) GetKlines(ctx context.Context, pair string, interval string, limit int) ([]dto.Candle, error) {
	return f.candles, f.err
}

type fakeCoinGecko struct {
	chart     []dto.Candle
	chartErr  error
	markets   []dto.PriceSnapshot
	marketErr error
}

func (f *fakeCoinGecko) GetMarkets(ctx context.Context, currency string, ids []string) ([]dto.PriceSnapshot, error) {
	return f.markets, f.marketErr
}

func (f *fakeCoinGecko) GetMarketChart(ctx context.Context, id, currency string, days int) ([]dto.Candle, error) {
	return f.chart, f.chartErr
}

func TestCandleRepository_SourceChain(t *testing.T) {
	candles := []dto.Candle{{Close: 1}, {Close: 2}, {Close: 3}}
	param := dto.GetCandlesParam{AssetID: "bitcoin", Symbol: "BTC", Pair: "BTCUSDT", Timeframe: "1d", Limit: 2}

	tests := []struct {
		name       string
		binance    *fakeBinance
		coinGecko  *fakeCoinGecko
		wantSource string
		wantLen    int
	}{
		{
			name:       "binance answers",
			binance:    &fakeBinance{candles: candles},
			coinGecko:  &fakeCoinGecko{},
			wantSource: dto.SourceBinance,
			wantLen:    3,
		},
		{
			name:       "coingecko when binance fails, trimmed to limit",
			binance:    &fakeBinance{err: errors.New("451")},
			coinGecko:  &fakeCoinGecko{chart: candles},
			wantSource: dto.SourceCoinGecko,
			wantLen:    2,
		},
		{
			name:       "synthetic when every source fails",
			binance:    &fakeBinance{err: errors.New("timeout")},
			coinGecko:  &fakeCoinGecko{chartErr: errors.New("429")},
			wantSource: dto.SourceEstimated,
			wantLen:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewCandleRepository(tt.binance, tt.coinGecko, logger.NewNop(), nil)
			series, err := repo.Get(context.Background(), param)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, series.Source)
			assert.Len(t, series.Candles, tt.wantLen)
			assert.Equal(t, tt.wantSource != dto.SourceBinance, series.Estimated())
			assert.Equal(t, "bitcoin", series.AssetID)
		})
	}
}

func TestCandleRepository_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := NewCandleRepository(&fakeBinance{err: context.Canceled}, &fakeCoinGecko{}, logger.NewNop(), nil)
	_, err := repo.Get(ctx, dto.GetCandlesParam{AssetID: "bitcoin", Timeframe: "1d", Limit: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSyntheticData_IsStablePerDay(t *testing.T) {
	day := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	later := day.Add(3 * time.Hour)

	a := syntheticSentiment("bitcoin", day)
	b := syntheticSentiment("bitcoin", later)
	assert.Equal(t, a.OverallScore, b.OverallScore)
	assert.Equal(t, dto.SourceEstimated, a.Source)
	assert.GreaterOrEqual(t, a.OverallScore, -100.0)
	assert.LessOrEqual(t, a.OverallScore, 100.0)

	btc := syntheticOnChain("bitcoin", day)
	assert.Len(t, btc, 9)
	for _, r := range btc {
		assert.Equal(t, dto.SourceEstimated, r.Source)
	}
	assert.Nil(t, syntheticOnChain("dogecoin", day))

	series := syntheticCandles(dto.GetCandlesParam{AssetID: "solana", Timeframe: "4h", Limit: 50}, day)
	assert.Len(t, series.Candles, 50)
	assert.True(t, series.Estimated())
	for _, c := range series.Candles {
		assert.GreaterOrEqual(t, c.High, c.Low)
	}
}

func TestPriceFeedRepository_WrapsUpstreamErrors(t *testing.T) {
	repo := NewPriceFeedRepository(&fakeCoinGecko{marketErr: errors.New("boom")}, logger.NewNop(), nil)
	_, err := repo.GetPrices(context.Background(), "eur", []string{"bitcoin"})

	var extErr *dto.ExternalServiceError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, "price_feed", extErr.Service)
}
