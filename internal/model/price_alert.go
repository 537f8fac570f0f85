package model

import (
	"time"

	"gorm.io/datatypes"
)

// AlertFactors is the evidence behind a smart alert.
type AlertFactors struct {
	Rationale     []string `json:"rationale"`
	Confidence    float64  `json:"confidence"`
	Timeframe     string   `json:"timeframe"`
	Price         float64  `json:"price"`
	StopLossPct   *float64 `json:"stop_loss_pct,omitempty"`
	TakeProfitPct *float64 `json:"take_profit_pct,omitempty"`
}

type PriceAlert struct {
	ID                  string                           `gorm:"type:uuid;primaryKey" json:"id"`
	Owner               string                           `gorm:"type:varchar(128);not null;index" json:"owner"`
	Kind                string                           `gorm:"type:varchar(16);not null;default:manual" json:"kind"`
	AssetID             string                           `gorm:"type:varchar(64);not null;index" json:"asset_id"`
	Symbol              string                           `gorm:"type:varchar(20)" json:"symbol"`
	Name                string                           `gorm:"type:varchar(100)" json:"name"`
	Condition           string                           `gorm:"type:varchar(8);not null" json:"condition"`
	TargetPrice         float64                          `gorm:"type:numeric;not null" json:"target_price"`
	Currency            string                           `gorm:"type:varchar(3);not null" json:"currency"`
	Active              bool                             `gorm:"not null;default:true" json:"active"`
	NotifiedAt          *time.Time                       `json:"notified_at,omitempty"`
	TriggeredPrice      *float64                         `gorm:"type:numeric" json:"triggered_price,omitempty"`
	Notes               string                           `gorm:"type:text" json:"notes"`
	Factors             datatypes.JSONType[AlertFactors] `gorm:"type:jsonb" json:"factors"`
	Severity            string                           `gorm:"type:varchar(8)" json:"severity,omitempty"`
	SignalType          string                           `gorm:"type:varchar(16)" json:"signal_type,omitempty"`
	RecommendedAction   string                           `gorm:"type:text" json:"recommended_action,omitempty"`
	SentimentAtCreation *float64                         `gorm:"type:numeric" json:"sentiment_at_creation,omitempty"`
	Estimated           bool                             `gorm:"not null;default:false" json:"estimated"`
	CreatedAt           time.Time                        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time                        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PriceAlert) TableName() string {
	return "price_alerts"
}

func (a PriceAlert) IsTriggered() bool {
	return a.NotifiedAt != nil
}

// IsPending reports whether the alert still takes part in trigger checks.
func (a PriceAlert) IsPending() bool {
	return a.Active && a.NotifiedAt == nil
}

// Clone returns a copy that shares no pointers with a.
func (a PriceAlert) Clone() PriceAlert {
	out := a
	if a.NotifiedAt != nil {
		t := *a.NotifiedAt
		out.NotifiedAt = &t
	}
	if a.TriggeredPrice != nil {
		p := *a.TriggeredPrice
		out.TriggeredPrice = &p
	}
	if a.SentimentAtCreation != nil {
		s := *a.SentimentAtCreation
		out.SentimentAtCreation = &s
	}
	f := a.Factors.Data()
	f.Rationale = append([]string(nil), f.Rationale...)
	out.Factors = datatypes.NewJSONType(f)
	return out
}

type GetPriceAlertParam struct {
	Owner     *string
	AssetID   *string
	Kind      *string
	Active    *bool
	Triggered *bool
}

// Match applies the param to a single alert the same way the SQL filter does.
func (p GetPriceAlertParam) Match(a PriceAlert) bool {
	if p.Owner != nil && a.Owner != *p.Owner {
		return false
	}
	if p.AssetID != nil && a.AssetID != *p.AssetID {
		return false
	}
	if p.Kind != nil && a.Kind != *p.Kind {
		return false
	}
	if p.Active != nil && a.Active != *p.Active {
		return false
	}
	if p.Triggered != nil && a.IsTriggered() != *p.Triggered {
		return false
	}
	return true
}
