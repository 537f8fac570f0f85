package notifier

import (
	"context"

	"signal-alert-engine/internal/dto"
	"signal-alert-engine/pkg/telegram"

	"gopkg.in/telebot.v3"
)

// MessageSender is satisfied by *telegram.TelegramRateLimiter.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, message string, opts ...interface{}) error
}

type telegramNotifier struct {
	sender      MessageSender
	defaultChat int64
	ownerChats  map[string]int64
}

// NewTelegramNotifier routes each event to the owner's chat, or to
// defaultChat when the owner has none. Events with no chat are dropped.
func NewTelegramNotifier(sender MessageSender, defaultChat int64, ownerChats map[string]int64) Notifier {
	return &telegramNotifier{
		sender:      sender,
		defaultChat: defaultChat,
		ownerChats:  ownerChats,
	}
}

func (n *telegramNotifier) Name() string { return "telegram" }

func (n *telegramNotifier) Notify(ctx context.Context, event dto.NotificationEvent) error {
	chatID := n.defaultChat
	if id, ok := n.ownerChats[event.Owner]; ok {
		chatID = id
	}
	if chatID == 0 {
		return nil
	}

	msg := telegram.FormatAlertTriggered(telegram.AlertMessage{
		Symbol:      event.Symbol,
		AssetID:     event.AssetID,
		Condition:   event.Condition,
		TargetPrice: event.TargetPrice,
		Price:       event.Price,
		Currency:    event.Currency,
		Severity:    event.Severity,
		Note:        event.Message,
		At:          event.OccurredAt,
	})
	return n.sender.SendMessage(ctx, chatID, msg, telebot.ModeHTML)
}
