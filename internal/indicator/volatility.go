package indicator

import (
	"math"

	"signal-alert-engine/internal/dto"
	"signal-alert-engine/pkg/utils"
)

const atrPeriod = 14

// ATR computes the average true range with Wilder smoothing. It returns 0
// when there are not enough candles.
func ATR(candles []dto.Candle, period int) float64 {
	if period <= 0 || len(candles) <= period {
		return 0
	}

	trueRanges := make([]float64, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		high := candles[i].High
		low := candles[i].Low
		prevClose := candles[i-1].Close
		trueRanges[i-1] = math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
	}

	atr := 0.0
	for i := 0; i < period; i++ {
		atr += trueRanges[i]
	}
	atr /= float64(period)

	for i := period; i < len(trueRanges); i++ {
		atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
	}
	return atr
}

// RiskLevels derives stop-loss and take-profit percentages from ATR(14)
// relative to the last close. ok is false when ATR cannot be computed.
func RiskLevels(series dto.CandleSeries) (stopLossPct, takeProfitPct float64, ok bool) {
	price := series.LastClose()
	atr := ATR(series.Candles, atrPeriod)
	if price <= 0 || atr <= 0 {
		return 0, 0, false
	}

	atrPct := atr / price * 100
	stopLossPct = utils.Clamp(math.Round(2*atrPct), 3, 8)
	takeProfitPct = utils.Clamp(math.Round(3*stopLossPct), 10, 30)
	return stopLossPct, takeProfitPct, true
}
