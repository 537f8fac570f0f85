package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// AlertMessage is the data needed to render a triggered alert.
type AlertMessage struct {
	Symbol      string
	AssetID     string
	Condition   string
	TargetPrice float64
	Price       float64
	Currency    string
	Severity    string
	Note        string
	At          time.Time
}

// FormatAlertTriggered renders a triggered alert as Telegram HTML.
func FormatAlertTriggered(m AlertMessage) string {
	var builder strings.Builder

	emoji := "🔔"
	switch m.Severity {
	case "high":
		emoji = "🚨"
	case "medium":
		emoji = "⚠️"
	}

	name := m.Symbol
	if name == "" {
		name = strings.ToUpper(m.AssetID)
	}
	currency := strings.ToUpper(m.Currency)

	builder.WriteString(fmt.Sprintf("%s <b>[%s] Price alert triggered</b>\n", emoji, html.EscapeString(name)))
	builder.WriteString(fmt.Sprintf("Price %s target %s, now %s\n",
		conditionVerb(m.Condition), formatPrice(m.TargetPrice, currency), formatPrice(m.Price, currency)))
	if m.Note != "" {
		builder.WriteString(fmt.Sprintf("<i>%s</i>\n", html.EscapeString(m.Note)))
	}
	builder.WriteString(m.At.UTC().Format("02 Jan 2006 15:04 MST"))
	return builder.String()
}

func conditionVerb(condition string) string {
	if condition == "below" {
		return "fell to or below"
	}
	return "rose to or above"
}

func formatPrice(v float64, currency string) string {
	switch {
	case v >= 100:
		return fmt.Sprintf("%.2f %s", v, currency)
	case v >= 1:
		return fmt.Sprintf("%.4f %s", v, currency)
	default:
		return fmt.Sprintf("%.6f %s", v, currency)
	}
}
