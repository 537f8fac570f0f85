package dto

import "time"

const (
	SourceBinance   = "binance"
	SourceCoinGecko = "coingecko"
	SourceLive      = "live"
	SourceEstimated = "estimated"
)

type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

type CandleSeries struct {
	AssetID   string   `json:"asset_id"`
	Symbol    string   `json:"symbol"`
	Timeframe string   `json:"timeframe"`
	Source    string   `json:"source"`
	Candles   []Candle `json:"candles"`
}

// Estimated reports whether the series came from anywhere but the exchange.
func (s CandleSeries) Estimated() bool {
	return s.Source != SourceBinance
}

func (s CandleSeries) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

func (s CandleSeries) LastClose() float64 {
	if len(s.Candles) == 0 {
		return 0
	}
	return s.Candles[len(s.Candles)-1].Close
}

func (s CandleSeries) LastTime() time.Time {
	if len(s.Candles) == 0 {
		return time.Time{}
	}
	return s.Candles[len(s.Candles)-1].OpenTime
}

type GetCandlesParam struct {
	AssetID   string
	Symbol    string
	Pair      string
	Timeframe string
	Limit     int
}

type PriceSnapshot struct {
	AssetID      string    `json:"asset_id"`
	Symbol       string    `json:"symbol"`
	Price        float64   `json:"price"`
	Change24hPct float64   `json:"change_24h_pct"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type SentimentBreakdown struct {
	Twitter float64 `json:"twitter"`
	Reddit  float64 `json:"reddit"`
	News    float64 `json:"news"`
}

const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// SentimentReading scores are signed, in [-100, 100].
type SentimentReading struct {
	AssetID      string             `json:"asset_id"`
	OverallScore float64            `json:"overall_score"`
	Breakdown    SentimentBreakdown `json:"breakdown"`
	Trend        string             `json:"trend"`
	AsOf         time.Time          `json:"as_of"`
	Source       string             `json:"source"`
}

func (s SentimentReading) Estimated() bool {
	return s.Source == SourceEstimated
}

type OnChainReading struct {
	Name          string  `json:"name"`
	Value         float64 `json:"value"`
	PreviousValue float64 `json:"previous_value"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Bullish       bool    `json:"bullish"`
	Description   string  `json:"description,omitempty"`
	Source        string  `json:"source"`
}

// OnChainSentiment is the majority vote over a set of readings.
type OnChainSentiment struct {
	Available    bool `json:"available"`
	Bullish      bool `json:"bullish"`
	BullishCount int  `json:"bullish_count"`
	BearishCount int  `json:"bearish_count"`
	Estimated    bool `json:"estimated"`
}
