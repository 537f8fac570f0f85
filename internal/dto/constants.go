package dto

const (
	Interval1Hour string = "1h"
	Interval4Hour string = "4h"
	Interval1Day  string = "1d"
	Interval1Week string = "1w"
)

// SupportedIntervals lists the timeframes the candle sources understand.
func SupportedIntervals() []string {
	return []string{Interval1Hour, Interval4Hour, Interval1Day, Interval1Week}
}

// IntervalDays is how many calendar days a candle of the interval spans.
func IntervalDays(interval string) float64 {
	switch interval {
	case Interval1Hour:
		return 1.0 / 24
	case Interval4Hour:
		return 4.0 / 24
	case Interval1Week:
		return 7
	default:
		return 1
	}
}

const (
	TagRSI                    = "RSI"
	TagMACD                   = "MACD"
	TagCandlestickPattern     = "Candlestick Pattern"
	TagSupportLevel           = "Support Level"
	TagResistanceLevel        = "Resistance Level"
	TagSentimentConfirm       = "Market Sentiment (confirm)"
	TagSentimentContradiction = "Market Sentiment (contradiction)"
	TagOnChainConfirm         = "On-Chain Analysis"
	TagOnChainContradiction   = "On-Chain Analysis (contradiction)"
)
