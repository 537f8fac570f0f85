package service

import (
	"fmt"

	"signal-alert-engine/internal/dto"
	"signal-alert-engine/pkg/utils"
)

const (
	sentimentConfirmThreshold    = 30.0
	sentimentContradictThreshold = 50.0
	sentimentConfirmBoost        = 10.0
	sentimentContradictPenalty   = 20.0
	onChainConfirmBoost          = 15.0
	onChainContradictPenalty     = 10.0
)

// AggregateOnChain takes the majority vote of the readings. A tie or an
// empty set carries no direction and is reported as unavailable.
func AggregateOnChain(readings []dto.OnChainReading) dto.OnChainSentiment {
	var agg dto.OnChainSentiment
	for _, r := range readings {
		if r.Bullish {
			agg.BullishCount++
		} else {
			agg.BearishCount++
		}
		agg.Estimated = agg.Estimated || r.Source == dto.SourceEstimated
	}
	if agg.BullishCount == agg.BearishCount {
		return agg
	}
	agg.Available = true
	agg.Bullish = agg.BullishCount > agg.BearishCount
	return agg
}

// EnhanceSignal adjusts confidence using sentiment and on-chain data. Each
// source is judged independently against the original direction; the
// adjustments are summed and clamped once. A nil sentiment or an unavailable
// on-chain aggregate leaves the signal unchanged for that source.
func EnhanceSignal(sig dto.TradingSignal, sentiment *dto.SentimentReading, onChain dto.OnChainSentiment) dto.TradingSignal {
	out := sig.Clone()
	buyLike, sellLike := sig.Type.IsBuyLike(), sig.Type.IsSellLike()
	if !buyLike && !sellLike {
		return out
	}

	var delta float64
	var tags []string

	if sentiment != nil {
		s := sentiment.OverallScore
		switch {
		case (buyLike && s > sentimentConfirmThreshold) || (sellLike && s < -sentimentConfirmThreshold):
			delta += sentimentConfirmBoost
			tags = append(tags, dto.TagSentimentConfirm)
			out.Description += fmt.Sprintf(". Reinforced by market sentiment (%.0f/100)", s)
		case (buyLike && s < -sentimentContradictThreshold) || (sellLike && s > sentimentContradictThreshold):
			delta -= sentimentContradictPenalty
			tags = append(tags, dto.TagSentimentContradiction)
			out.Description += fmt.Sprintf(". Market sentiment (%.0f/100) contradicts this signal", s)
		}
		if sentiment.Estimated() && len(tags) > 0 {
			out.Estimated = true
		}
	}

	if onChain.Available {
		before := len(tags)
		if onChain.Bullish == buyLike {
			delta += onChainConfirmBoost
			tags = append(tags, dto.TagOnChainConfirm)
		} else {
			delta -= onChainContradictPenalty
			tags = append(tags, dto.TagOnChainContradiction)
		}
		if onChain.Estimated && len(tags) > before {
			out.Estimated = true
		}
	}

	if len(tags) == 0 {
		return out
	}
	out.Confidence = clampConfidence(sig.Confidence + delta)
	out.Rationale = utils.Dedup(append(out.Rationale, tags...))
	return out
}
