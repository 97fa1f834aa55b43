package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v3"

	"customer-request-dashboard/internal/refresh"
)

type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Notifier forwards refresh failures to a Telegram chat. A failure message is
// sent once until a refresh succeeds again.
type Notifier struct {
	bot    sender
	chat   tele.Recipient
	title  string
	logger *slog.Logger
}

// NewNotifier creates a send-only bot for chatID.
func NewNotifier(token string, chatID int64, logger *slog.Logger) (*Notifier, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("telegram token required")
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat id required")
	}

	b, err := tele.NewBot(tele.Settings{Token: token, Offline: true})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return newNotifier(b, tele.ChatID(chatID), logger), nil
}

func newNotifier(bot sender, chat tele.Recipient, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{bot: bot, chat: chat, title: "Customer Request Dashboard", logger: logger}
}

// Watch consumes state events until ctx is done or events is closed.
func (n *Notifier) Watch(ctx context.Context, events <-chan refresh.Event) {
	lastSent := ""
	failed := false
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.State {
			case refresh.StateFetching:
				failed = false
			case refresh.StateError:
				failed = true
				if ev.Message == lastSent {
					continue
				}
				if err := n.notify(ev); err != nil {
					n.logger.Warn("telegram notify failed", "error", err)
					continue
				}
				lastSent = ev.Message
			case refresh.StateIdle:
				if !failed {
					lastSent = ""
				}
			}
		}
	}
}

func (n *Notifier) notify(ev refresh.Event) error {
	msg := fmt.Sprintf("⚠️ <b>%s</b>\n\n%s\n\nreason: <code>%s</code>\nrun: <code>%s</code>",
		n.title, ev.Message, ev.Reason, ev.RunID)
	_, err := n.bot.Send(n.chat, msg, tele.ModeHTML)
	return err
}
