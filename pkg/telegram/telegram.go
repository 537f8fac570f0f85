package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"signal-alert-engine/config"
	"signal-alert-engine/pkg/logger"
	"signal-alert-engine/pkg/ratelimit"
	"signal-alert-engine/pkg/utils"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

const (
	perChatMessagesPerSecond = 1
	chatLimiterExpiry        = 10 * time.Minute
)

// TelegramRateLimiter sends bot messages within Telegram's global and
// per-chat limits.
type TelegramRateLimiter struct {
	log           *logger.Logger
	bot           *telebot.Bot
	globalLimiter *rate.Limiter
	chatLimiters  *ratelimit.LimiterStore
	wg            sync.WaitGroup
}

// NewBot creates a send-only bot; it never polls for updates. Each API call
// is bounded by cfg.TimeoutDuration.
func NewBot(cfg config.TelegramConfig) (*telebot.Bot, error) {
	timeout := cfg.TimeoutDuration
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	bot, err := telebot.NewBot(telebot.Settings{
		Token:   cfg.BotToken,
		Offline: true,
		Client:  &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return bot, nil
}

func NewTelegramRateLimiter(cfg config.TelegramConfig, log *logger.Logger, bot *telebot.Bot) *TelegramRateLimiter {
	perSecond := cfg.MaxGlobalRequestPerSecond
	if perSecond <= 0 {
		perSecond = 30
	}
	return &TelegramRateLimiter{
		log:           log,
		bot:           bot,
		globalLimiter: rate.NewLimiter(rate.Limit(perSecond), perSecond),
		chatLimiters:  ratelimit.NewLimiterStore(rate.Limit(perChatMessagesPerSecond), perChatMessagesPerSecond),
	}
}

func (t *TelegramRateLimiter) SendMessage(ctx context.Context, chatID int64, message string, opts ...interface{}) error {
	if err := t.checkRateLimit(ctx, chatID); err != nil {
		return err
	}
	if _, err := t.bot.Send(telebot.ChatID(chatID), message, opts...); err != nil {
		return fmt.Errorf("failed to send telegram message to %d: %w", chatID, err)
	}
	return nil
}

func (t *TelegramRateLimiter) checkRateLimit(ctx context.Context, chatID int64) error {
	if err := t.chatLimiters.GetLimiter(strconv.FormatInt(chatID, 10)).Wait(ctx); err != nil {
		return fmt.Errorf("chat rate limit: %w", err)
	}
	if err := t.globalLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("global rate limit: %w", err)
	}
	return nil
}

// StartCleanupExpired drops idle chat limiters until ctx ends.
func (t *TelegramRateLimiter) StartCleanupExpired(ctx context.Context) {
	t.wg.Add(1)
	utils.GoSafe(t.log, func() {
		defer t.wg.Done()
		ticker := time.NewTicker(chatLimiterExpiry)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				t.log.Info("Stopping telegram rate limiter cleanup")
				return
			case <-ticker.C:
				if removed := t.chatLimiters.Prune(chatLimiterExpiry); removed > 0 {
					t.log.Debug("Pruned idle chat limiters",
						logger.IntField("count", removed),
						logger.IntField("remaining", t.chatLimiters.Len()),
					)
				}
			}
		}
	})
}

func (t *TelegramRateLimiter) StopCleanupExpired() {
	t.wg.Wait()
	t.log.Info("Telegram rate limiter stopped")
}
