package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"signal-alert-engine/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalService_GenerateSignals(t *testing.T) {
	buys := staticEvaluator{signals: []dto.RawSignal{
		raw(dto.SignalBuy, 70, dto.TagRSI),
		raw(dto.SignalBuy, 65, dto.TagMACD),
		raw(dto.SignalBuy, 75, dto.TagRSI),
	}}

	tests := []struct {
		name           string
		sentiment      *dto.SentimentReading
		candleSource   string
		wantType       dto.SignalType
		wantConfidence float64
		wantTag        string
		wantEstimated  bool
	}{
		{
			name:           "confirming live sentiment",
			sentiment:      &dto.SentimentReading{OverallScore: 40, Source: dto.SourceLive},
			wantType:       dto.SignalStrongBuy,
			wantConfidence: 95,
			wantTag:        dto.TagSentimentConfirm,
		},
		{
			name:           "contradicting estimated sentiment",
			sentiment:      &dto.SentimentReading{OverallScore: -60, Source: dto.SourceEstimated},
			wantType:       dto.SignalStrongBuy,
			wantConfidence: 65,
			wantTag:        dto.TagSentimentContradiction,
			wantEstimated:  true,
		},
		{
			name:           "no sentiment from estimated candles",
			candleSource:   dto.SourceEstimated,
			wantType:       dto.SignalStrongBuy,
			wantConfidence: 85,
			wantTag:        dto.TagMACD,
			wantEstimated:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestSignalService(
				&fakeCandles{source: tt.candleSource},
				&fakeSentiment{reading: tt.sentiment},
				&fakeOnChain{},
				buys,
			)

			signals, err := svc.GenerateSignals(context.Background(), "bitcoin", dto.Interval1Day)
			require.NoError(t, err)
			require.Len(t, signals, 1)

			sig := signals[0]
			assert.Equal(t, tt.wantType, sig.Type)
			assert.InDelta(t, tt.wantConfidence, sig.Confidence, 1e-9)
			assert.Contains(t, sig.Rationale, tt.wantTag)
			assert.Equal(t, tt.wantEstimated, sig.Estimated)
			assert.Equal(t, "BTC", sig.Symbol)
			require.NotNil(t, sig.StopLossPct)
			require.NotNil(t, sig.TakeProfitPct)
			assert.GreaterOrEqual(t, *sig.StopLossPct, 3.0)
			assert.LessOrEqual(t, *sig.TakeProfitPct, 30.0)
		})
	}
}

func TestSignalService_OnChainConfirmation(t *testing.T) {
	svc := newTestSignalService(
		&fakeCandles{},
		&fakeSentiment{},
		&fakeOnChain{readings: []dto.OnChainReading{
			{Name: "a", Bullish: false},
			{Name: "b", Bullish: false},
			{Name: "c", Bullish: true},
		}},
		staticEvaluator{signals: []dto.RawSignal{raw(dto.SignalSell, 60, dto.TagResistanceLevel)}},
	)

	signals, err := svc.GenerateSignals(context.Background(), "ethereum", dto.Interval4Hour)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, dto.SignalSell, signals[0].Type)
	assert.InDelta(t, 75, signals[0].Confidence, 1e-9)
	assert.Contains(t, signals[0].Rationale, dto.TagOnChainConfirm)
	assert.Nil(t, signals[0].StopLossPct, "sell signals carry no risk levels")
}

func TestSignalService_SingleFlight(t *testing.T) {
	candles := &fakeCandles{delay: 50 * time.Millisecond}
	svc := newTestSignalService(candles, &fakeSentiment{}, &fakeOnChain{},
		staticEvaluator{signals: []dto.RawSignal{raw(dto.SignalBuy, 55, dto.TagRSI)}})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			signals, err := svc.GenerateSignals(context.Background(), "bitcoin", dto.Interval1Day)
			assert.NoError(t, err)
			assert.Len(t, signals, 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), candles.calls.Load())

	_, err := svc.GenerateSignals(context.Background(), "BITCOIN", dto.Interval1Day)
	require.NoError(t, err)
	assert.Equal(t, int32(1), candles.calls.Load(), "cached result is served within TTL")

	_, err = svc.GenerateSignals(context.Background(), "bitcoin", dto.Interval4Hour)
	require.NoError(t, err)
	assert.Equal(t, int32(2), candles.calls.Load(), "other timeframe is a separate key")
}

func TestSignalService_CallerCannotMutateCache(t *testing.T) {
	svc := newTestSignalService(&fakeCandles{}, &fakeSentiment{}, &fakeOnChain{},
		staticEvaluator{signals: []dto.RawSignal{raw(dto.SignalBuy, 55, dto.TagRSI)}})

	first, err := svc.GenerateSignals(context.Background(), "bitcoin", dto.Interval1Day)
	require.NoError(t, err)
	first[0].Confidence = 1
	first[0].Rationale[0] = "changed"

	second, err := svc.GenerateSignals(context.Background(), "bitcoin", dto.Interval1Day)
	require.NoError(t, err)
	assert.Equal(t, 55.0, second[0].Confidence)
	assert.Equal(t, dto.TagRSI, second[0].Rationale[0])
}

func TestSignalService_GetBestSignal(t *testing.T) {
	tests := []struct {
		name       string
		signals    []dto.RawSignal
		wantType   dto.SignalType
		wantErr    error
		wantReason string
	}{
		{
			name:     "highest confidence wins",
			signals:  []dto.RawSignal{raw(dto.SignalBuy, 55, dto.TagRSI), raw(dto.SignalSell, 70, dto.TagMACD)},
			wantType: dto.SignalSell,
		},
		{
			name:     "tie keeps the first signal",
			signals:  []dto.RawSignal{raw(dto.SignalBuy, 60, dto.TagRSI), raw(dto.SignalSell, 60, dto.TagMACD)},
			wantType: dto.SignalBuy,
		},
		{
			name:    "neutral only",
			signals: []dto.RawSignal{raw(dto.SignalNeutral, 90, dto.TagCandlestickPattern)},
			wantErr: dto.ErrNoSignal,
		},
		{
			name:    "no signals",
			wantErr: dto.ErrNoSignal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestSignalService(&fakeCandles{}, &fakeSentiment{}, &fakeOnChain{}, staticEvaluator{signals: tt.signals})

			best, err := svc.GetBestSignal(context.Background(), "bitcoin", "")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				var noSignal *dto.NoSignalError
				require.ErrorAs(t, err, &noSignal)
				assert.Equal(t, dto.Interval1Day, noSignal.Timeframe)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, best.Type)
		})
	}
}

func TestSignalService_Validation(t *testing.T) {
	svc := newTestSignalService(&fakeCandles{}, &fakeSentiment{}, &fakeOnChain{})

	_, err := svc.GenerateSignals(context.Background(), "bitcoin", "15m")
	var vErr *dto.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "timeframe", vErr.Field)

	_, err = svc.GenerateSignals(context.Background(), "  ", dto.Interval1Day)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "asset_id", vErr.Field)
}

func TestSignalService_GetSignals_IsolatesFailures(t *testing.T) {
	candles := &fakeCandles{failOn: map[string]error{"broken": errors.New("boom")}}
	svc := newTestSignalService(candles, &fakeSentiment{}, &fakeOnChain{},
		staticEvaluator{signals: []dto.RawSignal{raw(dto.SignalBuy, 55, dto.TagRSI)}})

	results, errs := svc.GetSignals(context.Background(),
		[]string{"bitcoin", "broken", "bitcoin"},
		[]string{dto.Interval1Day, dto.Interval4Hour},
	)

	require.Len(t, results, 4)
	assert.Len(t, errs, 2)
	assert.Contains(t, errs, "broken:1d")
	assert.Contains(t, errs, "broken:4h")

	assert.Equal(t, "bitcoin", results[0].AssetID)
	assert.Equal(t, dto.Interval1Day, results[0].Timeframe)
	assert.Len(t, results[0].Signals, 1)
	assert.Equal(t, "broken", results[2].AssetID)
	assert.NotEmpty(t, results[2].Error)
}

func TestSignalService_GetBestSignals(t *testing.T) {
	candles := &fakeCandles{failOn: map[string]error{"broken": errors.New("boom")}}
	svc := newTestSignalService(candles, &fakeSentiment{}, &fakeOnChain{},
		staticEvaluator{signals: []dto.RawSignal{raw(dto.SignalSell, 62, dto.TagMACD)}})

	best := svc.GetBestSignals(context.Background(), []string{"bitcoin", "ethereum", "broken"}, dto.Interval1Day)
	assert.Len(t, best, 2)
	require.Contains(t, best, "ethereum")
	assert.Equal(t, dto.SignalSell, best["ethereum"].Type)
}
