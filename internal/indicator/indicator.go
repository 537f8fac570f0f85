// Package indicator turns a candle series into raw directional signals.
// Each evaluator is independent and stateless.
package indicator

import (
	"signal-alert-engine/internal/dto"
)

type Evaluator interface {
	Name() string
	Evaluate(series dto.CandleSeries) []dto.RawSignal
}

// Default returns the evaluators in the order their output is combined.
func Default() []Evaluator {
	return []Evaluator{
		NewRSIEvaluator(),
		NewMACDEvaluator(),
		NewPatternEvaluator(),
		NewLevelEvaluator(),
	}
}

// EvaluateAll runs every evaluator and concatenates their output in order.
func EvaluateAll(evaluators []Evaluator, series dto.CandleSeries) []dto.RawSignal {
	var out []dto.RawSignal
	for _, ev := range evaluators {
		out = append(out, ev.Evaluate(series)...)
	}
	return out
}

func newRaw(series dto.CandleSeries, t dto.SignalType, confidence float64, tag, description string) dto.RawSignal {
	return dto.RawSignal{
		AssetID:     series.AssetID,
		Symbol:      series.Symbol,
		Type:        t,
		Confidence:  confidence,
		Rationale:   []string{tag},
		Description: description,
		Price:       series.LastClose(),
		Timeframe:   series.Timeframe,
		Timestamp:   series.LastTime(),
		Estimated:   series.Estimated(),
	}
}
