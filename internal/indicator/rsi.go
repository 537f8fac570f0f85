package indicator

import (
	"fmt"
	"math"

	"signal-alert-engine/internal/dto"
)

const (
	rsiPeriod     = 14
	rsiOversold   = 30.0
	rsiOverbought = 70.0
	rsiConfidence = 70.0
)

// RSI computes the relative strength index with Wilder smoothing. It returns
// the neutral 50 when there are not enough closes.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change >= 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := math.Max(change, 0), math.Max(-change, 0)
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

type rsiEvaluator struct {
	period int
}

func NewRSIEvaluator() Evaluator {
	return &rsiEvaluator{period: rsiPeriod}
}

func (e *rsiEvaluator) Name() string { return "rsi" }

func (e *rsiEvaluator) Evaluate(series dto.CandleSeries) []dto.RawSignal {
	closes := series.Closes()
	if len(closes) < e.period+1 {
		return nil
	}

	rsi := RSI(closes, e.period)
	switch {
	case rsi < rsiOversold:
		return []dto.RawSignal{newRaw(series, dto.SignalBuy, rsiConfidence, dto.TagRSI, fmt.Sprintf("RSI oversold (%.2f)", rsi))}
	case rsi > rsiOverbought:
		return []dto.RawSignal{newRaw(series, dto.SignalSell, rsiConfidence, dto.TagRSI, fmt.Sprintf("RSI overbought (%.2f)", rsi))}
	}
	return nil
}
