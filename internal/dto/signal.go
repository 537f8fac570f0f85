package dto

import "time"

type SignalType string

const (
	SignalBuy        SignalType = "buy"
	SignalStrongBuy  SignalType = "strong_buy"
	SignalSell       SignalType = "sell"
	SignalStrongSell SignalType = "strong_sell"
	SignalNeutral    SignalType = "neutral"
)

func (s SignalType) IsBuyLike() bool {
	return s == SignalBuy || s == SignalStrongBuy
}

func (s SignalType) IsSellLike() bool {
	return s == SignalSell || s == SignalStrongSell
}

// Direction collapses strong variants to buy, sell or neutral.
func (s SignalType) Direction() SignalType {
	switch {
	case s.IsBuyLike():
		return SignalBuy
	case s.IsSellLike():
		return SignalSell
	default:
		return SignalNeutral
	}
}

// RawSignal is the output of a single indicator evaluator.
type RawSignal struct {
	AssetID     string     `json:"asset_id"`
	Symbol      string     `json:"symbol"`
	Type        SignalType `json:"type"`
	Confidence  float64    `json:"confidence"`
	Rationale   []string   `json:"rationale"`
	Description string     `json:"description"`
	Price       float64    `json:"price"`
	Timeframe   string     `json:"timeframe"`
	Timestamp   time.Time  `json:"timestamp"`
	Estimated   bool       `json:"estimated"`
}

// TradingSignal is a consolidated signal after combination and enhancement.
type TradingSignal struct {
	AssetID       string     `json:"asset_id"`
	Symbol        string     `json:"symbol"`
	Type          SignalType `json:"type"`
	Confidence    float64    `json:"confidence"`
	Rationale     []string   `json:"rationale"`
	Description   string     `json:"description"`
	Price         float64    `json:"price"`
	Timeframe     string     `json:"timeframe"`
	Timestamp     time.Time  `json:"timestamp"`
	StopLossPct   *float64   `json:"stop_loss_pct,omitempty"`
	TakeProfitPct *float64   `json:"take_profit_pct,omitempty"`
	// Estimated is set when any input behind the signal came from synthetic data.
	Estimated bool `json:"estimated"`
}

func (r RawSignal) ToTradingSignal() TradingSignal {
	return TradingSignal{
		AssetID:     r.AssetID,
		Symbol:      r.Symbol,
		Type:        r.Type,
		Confidence:  r.Confidence,
		Rationale:   append([]string(nil), r.Rationale...),
		Description: r.Description,
		Price:       r.Price,
		Timeframe:   r.Timeframe,
		Timestamp:   r.Timestamp,
		Estimated:   r.Estimated,
	}
}

// Clone returns a deep copy so callers may modify the result freely.
func (s TradingSignal) Clone() TradingSignal {
	out := s
	out.Rationale = append([]string(nil), s.Rationale...)
	if s.StopLossPct != nil {
		v := *s.StopLossPct
		out.StopLossPct = &v
	}
	if s.TakeProfitPct != nil {
		v := *s.TakeProfitPct
		out.TakeProfitPct = &v
	}
	return out
}

type GetSignalsParam struct {
	Assets     []string `query:"assets"`
	Timeframes []string `query:"timeframes"`
}

// SignalResult is one (asset, timeframe) entry of a multi-asset query.
type SignalResult struct {
	AssetID   string          `json:"asset_id"`
	Timeframe string          `json:"timeframe"`
	Signals   []TradingSignal `json:"signals"`
	Error     string          `json:"error,omitempty"`
}
