package broadcast

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

// TelegramConfig holds Telegram announcement settings.
type TelegramConfig struct {
	Token       string
	ChatID      int64
	APIEndpoint string // optional; format "https://host/bot%s/%s"
}

// Telegram sends announcements to one chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

// NewTelegram creates a Telegram announcer. It contacts the Bot API once to
// verify the token.
func NewTelegram(cfg TelegramConfig, logger *slog.Logger) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram: token is required")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram: chat_id is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}
	logger.Info("telegram bot authorized", "username", bot.Self.UserName)
	return &Telegram{bot: bot, chatID: cfg.ChatID, logger: logger}, nil
}

func (t *Telegram) Name() string { return "telegram" }

// Announce sends the ticket as HTML, falling back to plain text when the
// HTML is rejected. The Bot API client has no context support, so ctx is
// only checked before sending.
func (t *Telegram) Announce(ctx context.Context, tk *protocol.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, telegramHTML(tk))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Warn("HTML send failed, falling back to plain text",
			"chat_id", t.chatID,
			"error", err,
		)
		msg.Text = PlainText(tk)
		msg.ParseMode = ""
		if _, err := t.bot.Send(msg); err != nil {
			return fmt.Errorf("telegram: send message: %w", err)
		}
	}
	return nil
}

func telegramHTML(t *protocol.Ticket) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>New ticket:</b> %s\n", html.EscapeString(t.Summary))
	fmt.Fprintf(&sb, "<b>Priority:</b> %s | <b>Story points:</b> %d",
		html.EscapeString(orDash(string(t.Priority))), t.StoryPoints)
	if len(t.Labels) > 0 {
		labels := make([]string, len(t.Labels))
		for i, l := range t.Labels {
			labels[i] = "<code>" + html.EscapeString(l) + "</code>"
		}
		fmt.Fprintf(&sb, "\n<b>Labels:</b> %s", strings.Join(labels, " "))
	}
	return sb.String()
}
