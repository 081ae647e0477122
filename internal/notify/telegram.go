package notify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"go.uber.org/zap"

	"rallypoint-bot/internal/models/config"
)

// Telegram API calls share one HTTP client with a hard timeout so a hung send
// cannot stall later dispatch ticks. tgbotapi v4 has no per-call context
// support; this client timeout is the only bound, and the ctx parameters on
// Resolve/Send exist only to satisfy the Notifier interface.
const apiTimeout = 10 * time.Second

type telegramNotifier struct {
	api *tgbotapi.BotAPI
	log *zap.Logger
}

// NewTelegramNotifier authenticates against the Bot API. A bad token is a
// fatal startup error for the process.
func NewTelegramNotifier(cfg *config.Config, log *zap.Logger) (Notifier, error) {
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Bot.Token, &http.Client{Timeout: apiTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	api.Debug = cfg.Bot.Debug

	log.Info("telegram bot authorized", zap.String("username", api.Self.UserName))
	return &telegramNotifier{api: api, log: log}, nil
}

func (n *telegramNotifier) Resolve(ctx context.Context, destination string) (*Target, error) {
	chatID, err := strconv.ParseInt(destination, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("destination %q is not a chat id: %w", destination, err)
	}

	if _, err := n.api.GetChat(tgbotapi.ChatConfig{ChatID: chatID}); err != nil {
		return nil, fmt.Errorf("chat %d unresolvable: %w", chatID, err)
	}
	return &Target{ChatID: chatID}, nil
}

func (n *telegramNotifier) Send(ctx context.Context, target *Target, note Notification) error {
	msg := tgbotapi.NewMessage(target.ChatID, FormatNotification(note))
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send to chat %d failed: %w", target.ChatID, err)
	}
	return nil
}
