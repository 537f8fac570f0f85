package indicator

import (
	"fmt"
	"math"

	"signal-alert-engine/internal/dto"
)

const (
	levelLookback     = 30
	levelProximityPct = 3.0
	levelConfidence   = 75.0
)

// Levels returns support and resistance as the extreme lows and highs of the
// lookback window, excluding the latest candle.
func Levels(candles []dto.Candle, lookback int) (support, resistance float64, ok bool) {
	if len(candles) < 2 {
		return 0, 0, false
	}
	start := len(candles) - lookback
	if start < 0 {
		start = 0
	}
	window := candles[start : len(candles)-1]
	support, resistance = math.Inf(1), math.Inf(-1)
	for _, c := range window {
		support = math.Min(support, c.Low)
		resistance = math.Max(resistance, c.High)
	}
	return support, resistance, true
}

type levelEvaluator struct{}

func NewLevelEvaluator() Evaluator {
	return &levelEvaluator{}
}

func (e *levelEvaluator) Name() string { return "level" }

func (e *levelEvaluator) Evaluate(series dto.CandleSeries) []dto.RawSignal {
	support, resistance, ok := Levels(series.Candles, levelLookback)
	price := series.LastClose()
	if !ok || price <= 0 {
		return nil
	}

	resistanceProximity := math.Abs((resistance-price)/price) * 100
	supportProximity := math.Abs((support-price)/price) * 100

	switch {
	case resistanceProximity < levelProximityPct && price < resistance:
		return []dto.RawSignal{newRaw(series, dto.SignalSell, levelConfidence, dto.TagResistanceLevel,
			fmt.Sprintf("Price near resistance (%.2f)", resistance))}
	case supportProximity < levelProximityPct && price > support:
		return []dto.RawSignal{newRaw(series, dto.SignalBuy, levelConfidence, dto.TagSupportLevel,
			fmt.Sprintf("Price near support (%.2f)", support))}
	}
	return nil
}
