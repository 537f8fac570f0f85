package indicator

import (
	"fmt"
	"math"

	"signal-alert-engine/internal/dto"
)

const (
	PatternDoji             = "doji"
	PatternHammer           = "hammer"
	PatternShootingStar     = "shooting_star"
	PatternBullishEngulfing = "engulfing_bullish"
	PatternBearishEngulfing = "engulfing_bearish"
	PatternMorningStar      = "morning_star"
	PatternEveningStar      = "evening_star"
)

const (
	patternRecentWindow   = 3
	patternHighConfidence = 80.0
	patternLowConfidence  = 60.0
)

type Pattern struct {
	Type     string
	Position int
	High     bool
	// Implication is buy, sell or neutral.
	Implication dto.SignalType
}

func body(c dto.Candle) float64 {
	return math.Abs(c.Close - c.Open)
}

func bullish(c dto.Candle) bool { return c.Close > c.Open }
func bearish(c dto.Candle) bool { return c.Close < c.Open }

// DetectPatterns scans candles and returns every pattern found, in position order.
func DetectPatterns(candles []dto.Candle) []Pattern {
	var out []Pattern
	for i := 1; i < len(candles); i++ {
		prev, curr := candles[i-1], candles[i]
		rng := curr.High - curr.Low

		if rng > 0 && body(curr) < rng*0.1 {
			out = append(out, Pattern{Type: PatternDoji, Position: i, Implication: dto.SignalNeutral})
		}

		if bullish(curr) &&
			curr.High-curr.Close < (curr.Close-curr.Low)*0.3 &&
			curr.Open-curr.Low > (curr.Close-curr.Open)*2 {
			out = append(out, Pattern{Type: PatternHammer, Position: i, High: true, Implication: dto.SignalBuy})
		}

		if bearish(curr) &&
			curr.Open-curr.Close < (curr.High-curr.Open)*0.3 &&
			curr.High-curr.Open > (curr.Open-curr.Close)*2 &&
			curr.Close-curr.Low < curr.Open-curr.Close {
			out = append(out, Pattern{Type: PatternShootingStar, Position: i, High: true, Implication: dto.SignalSell})
		}

		if bearish(prev) && bullish(curr) && curr.Open < prev.Close && curr.Close > prev.Open {
			out = append(out, Pattern{Type: PatternBullishEngulfing, Position: i, High: true, Implication: dto.SignalBuy})
		}

		if bullish(prev) && bearish(curr) && curr.Open > prev.Close && curr.Close < prev.Open {
			out = append(out, Pattern{Type: PatternBearishEngulfing, Position: i, High: true, Implication: dto.SignalSell})
		}

		if i >= 2 {
			first, mid := candles[i-2], candles[i-1]
			smallMid := body(mid) < (mid.High-mid.Low)*0.3
			firstMidpoint := (first.Open + first.Close) / 2

			if bearish(first) && smallMid && bullish(curr) && curr.Close > firstMidpoint {
				out = append(out, Pattern{Type: PatternMorningStar, Position: i, High: true, Implication: dto.SignalBuy})
			}
			if bullish(first) && smallMid && bearish(curr) && curr.Close < firstMidpoint {
				out = append(out, Pattern{Type: PatternEveningStar, Position: i, High: true, Implication: dto.SignalSell})
			}
		}
	}
	return out
}

type patternEvaluator struct{}

func NewPatternEvaluator() Evaluator {
	return &patternEvaluator{}
}

func (e *patternEvaluator) Name() string { return "pattern" }

// Evaluate emits one signal per directional pattern found in the most
// recent candles. Neutral patterns carry no direction and are skipped.
func (e *patternEvaluator) Evaluate(series dto.CandleSeries) []dto.RawSignal {
	var out []dto.RawSignal
	minPos := len(series.Candles) - patternRecentWindow
	for _, p := range DetectPatterns(series.Candles) {
		if p.Position < minPos || p.Implication == dto.SignalNeutral {
			continue
		}
		confidence := patternLowConfidence
		if p.High {
			confidence = patternHighConfidence
		}
		out = append(out, newRaw(series, p.Implication, confidence, dto.TagCandlestickPattern, fmt.Sprintf("%s pattern", p.Type)))
	}
	return out
}
