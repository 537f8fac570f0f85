package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatAlertTriggered(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		msg      AlertMessage
		contains []string
	}{
		{
			name: "above with high severity",
			msg:  AlertMessage{Symbol: "BTC", Condition: "above", TargetPrice: 60000, Price: 60125.5, Currency: "eur", Severity: "high", At: at},
			contains: []string{
				"🚨 <b>[BTC] Price alert triggered</b>",
				"Price rose to or above target 60000.00 EUR, now 60125.50 EUR",
				"01 May 2024 12:30 UTC",
			},
		},
		{
			name: "below falls back to asset id and escapes note",
			msg:  AlertMessage{AssetID: "cardano", Condition: "below", TargetPrice: 0.45, Price: 0.4499, Currency: "usd", Note: "dip <buy>", At: at},
			contains: []string{
				"🔔 <b>[CARDANO] Price alert triggered</b>",
				"fell to or below target 0.450000 USD, now 0.449900 USD",
				"<i>dip &lt;buy&gt;</i>",
			},
		},
		{
			name:     "mid-range prices use four decimals",
			msg:      AlertMessage{Symbol: "DOT", Condition: "above", TargetPrice: 7.5, Price: 7.51, Currency: "eur", Severity: "medium", At: at},
			contains: []string{"⚠️", "7.5000 EUR", "7.5100 EUR"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FormatAlertTriggered(tt.msg)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}
