package service

import (
	"fmt"
	"math"
	"strings"

	"signal-alert-engine/internal/dto"
	"signal-alert-engine/pkg/utils"
)

const (
	groupBonusPerMember = 5.0
	groupBonusCap       = 20.0
	strongThreshold     = 80.0
)

// CombineSignals merges same-direction raw signals into one consolidated
// signal per direction. The output holds the buy group, then the sell group,
// then every neutral signal untouched. Inputs are never modified.
func CombineSignals(raw []dto.RawSignal) []dto.TradingSignal {
	var buys, sells, neutrals []dto.RawSignal
	for _, r := range raw {
		switch {
		case r.Type.IsBuyLike():
			buys = append(buys, r)
		case r.Type.IsSellLike():
			sells = append(sells, r)
		default:
			neutrals = append(neutrals, r)
		}
	}

	out := make([]dto.TradingSignal, 0, 2+len(neutrals))
	if sig, ok := combineGroup(buys, dto.SignalBuy, dto.SignalStrongBuy, "buying"); ok {
		out = append(out, sig)
	}
	if sig, ok := combineGroup(sells, dto.SignalSell, dto.SignalStrongSell, "selling"); ok {
		out = append(out, sig)
	}
	for _, n := range neutrals {
		sig := n.ToTradingSignal()
		sig.Confidence = clampConfidence(sig.Confidence)
		sig.Rationale = utils.Dedup(sig.Rationale)
		out = append(out, sig)
	}
	return out
}

func combineGroup(group []dto.RawSignal, plain, strong dto.SignalType, verb string) (dto.TradingSignal, bool) {
	switch len(group) {
	case 0:
		return dto.TradingSignal{}, false
	case 1:
		sig := group[0].ToTradingSignal()
		sig.Confidence = clampConfidence(sig.Confidence)
		sig.Rationale = utils.Dedup(sig.Rationale)
		return sig, true
	}

	var sum float64
	var tags []string
	estimated := false
	for _, r := range group {
		sum += r.Confidence
		tags = append(tags, r.Rationale...)
		estimated = estimated || r.Estimated
	}
	avg := sum / float64(len(group))
	bonus := math.Min(groupBonusCap, groupBonusPerMember*float64(len(group)))
	confidence := clampConfidence(avg + bonus)

	sig := group[0].ToTradingSignal()
	sig.Type = plain
	if confidence > strongThreshold {
		sig.Type = strong
	}
	sig.Confidence = confidence
	sig.Rationale = utils.Dedup(tags)
	sig.Description = fmt.Sprintf("Multiple indicators suggest %s (%s)", verb, strings.Join(sig.Rationale, ", "))
	sig.Estimated = estimated
	return sig, true
}

func clampConfidence(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return utils.Clamp(v, 0, 100)
}
