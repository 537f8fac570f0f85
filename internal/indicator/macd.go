package indicator

import (
	"signal-alert-engine/internal/dto"
)

const macdConfidence = 65.0

type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
	Valid     bool
}

// EMA returns the exponential moving average series of values, seeded with
// the simple average of the first period values. Entries before the seed are
// omitted, so the result has len(values)-period+1 elements.
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	k := 2.0 / float64(period+1)
	var seed float64
	for _, v := range values[:period] {
		seed += v
	}
	seed /= float64(period)

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, seed)
	prev := seed
	for _, v := range values[period:] {
		prev = v*k + prev*(1-k)
		out = append(out, prev)
	}
	return out
}

// MACD computes the latest MACD line, its signal line and the histogram.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	if fast <= 0 || slow <= fast || signal <= 0 || len(closes) < slow+signal-1 {
		return MACDResult{}
	}

	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)

	// align both series on the slow EMA's first index
	offset := slow - fast
	line := make([]float64, len(slowEMA))
	for i := range slowEMA {
		line[i] = fastEMA[i+offset] - slowEMA[i]
	}

	signalLine := EMA(line, signal)
	if len(signalLine) == 0 {
		return MACDResult{}
	}

	m := line[len(line)-1]
	s := signalLine[len(signalLine)-1]
	return MACDResult{MACD: m, Signal: s, Histogram: m - s, Valid: true}
}

type macdEvaluator struct {
	fast, slow, signal int
}

func NewMACDEvaluator() Evaluator {
	return &macdEvaluator{fast: 12, slow: 26, signal: 9}
}

func (e *macdEvaluator) Name() string { return "macd" }

func (e *macdEvaluator) Evaluate(series dto.CandleSeries) []dto.RawSignal {
	res := MACD(series.Closes(), e.fast, e.slow, e.signal)
	if !res.Valid {
		return nil
	}

	switch {
	case res.Histogram > 0 && res.Histogram > res.Signal:
		return []dto.RawSignal{newRaw(series, dto.SignalBuy, macdConfidence, dto.TagMACD, "MACD bullish crossover")}
	case res.Histogram < 0 && res.Histogram < res.Signal:
		return []dto.RawSignal{newRaw(series, dto.SignalSell, macdConfidence, dto.TagMACD, "MACD bearish crossover")}
	}
	return nil
}
