// Package botapi contains implementations of bot API interfaces.
package botapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Semior001/newsboard/pkg/botx"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/exp/slog"
)

// maxMessageLen is the telegram limit for a single message text.
const maxMessageLen = 4096

// Telegram receives chat messages from telegram and sends responses back.
type Telegram struct {
	api     *tgbotapi.BotAPI
	updates chan botx.Request
}

// NewTelegram returns a new telegram bot API adapter.
func NewTelegram(lg *slog.Logger, token string, bufferSize int) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("make new api: %w", err)
	}

	stdlibLogger := slog.NewLogLogger(lg.Handler(), slog.LevelWarn)
	stdlibLogger.SetPrefix("telegram-bot-api: ")

	if err = tgbotapi.SetLogger(stdlibLogger); err != nil {
		return nil, fmt.Errorf("set logger: %w", err)
	}

	return &Telegram{
		api:     api,
		updates: make(chan botx.Request, bufferSize),
	}, nil
}

// Run listens for telegram updates until Stop is called.
func (b *Telegram) Run() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	for update := range b.api.GetUpdatesChan(u) {
		msg := update.Message
		if msg == nil || msg.Chat == nil || msg.Text == "" {
			continue
		}

		b.updates <- botx.Request{
			MessageID: strconv.Itoa(msg.MessageID),
			Chat: botx.Chat{
				ID:       strconv.FormatInt(msg.Chat.ID, 10),
				Username: msg.Chat.UserName,
			},
			Text: msg.Text,
		}
	}
}

// Stop stops telegram bot listener.
func (b *Telegram) Stop() {
	b.api.StopReceivingUpdates()
	close(b.updates)
}

// Updates returns updates channel.
func (b *Telegram) Updates() <-chan botx.Request {
	return b.updates
}

// SendMessage sends message to telegram chat, long texts are split
// into several messages by lines.
func (b *Telegram) SendMessage(ctx context.Context, resp botx.Response) error {
	chatID, err := strconv.ParseInt(resp.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("parse chat id: %w", err)
	}

	replyTo := 0
	if resp.ReplyToMessageID != "" {
		if replyTo, err = strconv.Atoi(resp.ReplyToMessageID); err != nil {
			return fmt.Errorf("parse reply to message id: %w", err)
		}
	}

	for i, part := range splitText(resp.Text, maxMessageLen) {
		if err = ctx.Err(); err != nil {
			return err
		}

		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeMarkdown
		msg.DisableWebPagePreview = true
		if i == 0 {
			msg.ReplyToMessageID = replyTo
		}

		if _, err = b.api.Send(msg); err != nil {
			return fmt.Errorf("send message part %d: %w", i, err)
		}
	}

	return nil
}

// splitText splits the text into parts not longer than limit bytes,
// preferring line boundaries.
func splitText(text string, limit int) []string {
	var parts []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
		}
		parts = append(parts, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	return append(parts, text)
}
