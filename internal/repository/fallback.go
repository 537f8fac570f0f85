package repository

import (
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"signal-alert-engine/internal/dto"
)

// Synthetic data stands in for an unavailable upstream. Every value built
// here carries dto.SourceEstimated and is stable for a given asset and day,
// so repeated fallbacks within a day agree with each other.

func daySeed(key string, at time.Time) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	day := at.UTC().Unix() / int64(24*time.Hour/time.Second)
	return int64(h.Sum64()>>1) + day
}

var syntheticBasePrice = map[string]float64{
	"bitcoin":  60000,
	"ethereum": 3000,
	"cardano":  0.45,
	"solana":   150,
	"polkadot": 6.5,
}

// syntheticCandles builds a random walk ending at now.
func syntheticCandles(param dto.GetCandlesParam, now time.Time) dto.CandleSeries {
	rng := rand.New(rand.NewSource(daySeed(param.AssetID+":"+param.Timeframe, now)))
	limit := param.Limit
	if limit <= 0 {
		limit = 100
	}

	price, ok := syntheticBasePrice[param.AssetID]
	if !ok {
		price = 100
	}
	step := time.Duration(dto.IntervalDays(param.Timeframe) * float64(24*time.Hour))
	start := now.Add(-step * time.Duration(limit-1))

	candles := make([]dto.Candle, limit)
	for i := range candles {
		open := price
		closePrice := open * (1 + (rng.Float64()-0.5)*0.04)
		wick := math.Abs(closePrice-open) * rng.Float64()
		candles[i] = dto.Candle{
			OpenTime: start.Add(step * time.Duration(i)),
			Open:     open,
			High:     math.Max(open, closePrice) + wick,
			Low:      math.Max(0, math.Min(open, closePrice)-wick),
			Close:    closePrice,
			Volume:   1000 + rng.Float64()*9000,
		}
		price = closePrice
	}

	return dto.CandleSeries{
		AssetID:   param.AssetID,
		Symbol:    param.Symbol,
		Timeframe: param.Timeframe,
		Source:    dto.SourceEstimated,
		Candles:   candles,
	}
}

// syntheticSentiment weights twitter and reddit at 30% and news at 40%.
func syntheticSentiment(assetID string, now time.Time) dto.SentimentReading {
	rng := rand.New(rand.NewSource(daySeed("sentiment:"+assetID, now)))
	score := func() float64 { return rng.Float64()*200 - 100 }

	b := dto.SentimentBreakdown{Twitter: score(), Reddit: score(), News: score()}
	trends := []string{dto.TrendImproving, dto.TrendDeclining, dto.TrendStable}

	return dto.SentimentReading{
		AssetID:      assetID,
		OverallScore: b.Twitter*0.3 + b.Reddit*0.3 + b.News*0.4,
		Breakdown:    b,
		Trend:        trends[rng.Intn(len(trends))],
		AsOf:         now,
		Source:       dto.SourceEstimated,
	}
}

type metricTemplate struct {
	name       string
	value      float64
	prev       float64
	spread     float64
	bullish    bool
	description string
}

var onChainTemplates = map[string][]metricTemplate{
	"bitcoin": {
		{"SOPR (Spent Output Profit Ratio)", 1.02, 0.98, 0.1, true, "Above 1 means sellers realise a profit on average"},
		{"Exchange Inflow", 12500, 15000, -2000, true, "Falling exchange inflow suggests less selling pressure"},
		{"MVRV Z-Score", 2.3, 2.1, 0.5, false, "Elevated values point to an overvalued market"},
		{"Puell Multiple", 1.2, 1.1, 0.3, true, "Miner revenue relative to its yearly average"},
		{"Hash Rate", 280e18, 275e18, 20e18, true, "Network security and miner confidence"},
		{"Percent Supply in Profit", 75, 72, 10, false, "High profit share often precedes distribution"},
		{"Active Addresses", 950000, 930000, 100000, true, "Network usage"},
		{"Stablecoin Supply Ratio", 3.5, 3.3, 0.5, false, "Higher values mean less stablecoin buying power"},
		{"Dormancy Flow", 250000, 270000, 30000, true, "Long-held coins staying dormant"},
	},
	"ethereum": {
		{"Gas Used", 80e9, 75e9, 20e9, true, "Network demand"},
		{"ETH Staked", 25e6, 24e6, 5e6, true, "Supply locked in staking"},
		{"ETH Burned (EIP-1559)", 3e6, 2.8e6, 1e6, true, "Supply removed by fee burn"},
		{"ETH Exchange Balance", 12e6, 12.5e6, -2e6, true, "Falling exchange balances reduce sell-side supply"},
		{"DeFi TVL in ETH", 25e6, 24e6, 5e6, true, "Capital deployed in DeFi"},
		{"Active Addresses", 650000, 630000, 100000, true, "Network usage"},
		{"Average Transaction Fee", 15, 12, 10, false, "High fees price out users"},
		{"ETH/BTC Ratio", 0.06, 0.058, 0.01, true, "Relative strength against bitcoin"},
		{"New Contract Deployments", 1500, 1400, 300, true, "Developer activity"},
	},
}

// syntheticOnChain returns the metric set for a supported asset and nil for
// anything else.
func syntheticOnChain(assetID string, now time.Time) []dto.OnChainReading {
	templates, ok := onChainTemplates[assetID]
	if !ok {
		return nil
	}
	rng := rand.New(rand.NewSource(daySeed("onchain:"+assetID, now)))

	out := make([]dto.OnChainReading, 0, len(templates))
	for _, t := range templates {
		value := t.value + rng.Float64()*t.spread
		prev := t.prev + rng.Float64()*t.spread
		out = append(out, newOnChainReading(t.name, value, prev, t.bullish, t.description, dto.SourceEstimated))
	}
	return out
}

func newOnChainReading(name string, value, prev float64, bullish bool, description, source string) dto.OnChainReading {
	change := value - prev
	var changePct float64
	if prev != 0 {
		changePct = change / prev * 100
	}
	return dto.OnChainReading{
		Name:          name,
		Value:         value,
		PreviousValue: prev,
		Change:        change,
		ChangePercent: changePct,
		Bullish:       bullish,
		Description:   description,
		Source:        source,
	}
}
