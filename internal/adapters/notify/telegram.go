package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
)

// maxMessageLen es el límite de caracteres de sendMessage.
const maxMessageLen = 4096

// Telegram implementa ports.ChatPublisher sobre la Bot API.
type Telegram struct {
	bot    *telego.Bot
	chatID telego.ChatID
}

// TelegramOptions configura el cliente. APIServer solo se usa en tests.
type TelegramOptions struct {
	Token     string
	ChatID    string
	APIServer string
}

// NewTelegram crea el publicador. chatID puede ser numérico o un @canal.
func NewTelegram(opts TelegramOptions) (*Telegram, error) {
	botOpts := []telego.BotOption{telego.WithDiscardLogger()}
	if opts.APIServer != "" {
		botOpts = append(botOpts, telego.WithAPIServer(opts.APIServer))
	}

	bot, err := telego.NewBot(opts.Token, botOpts...)
	if err != nil {
		return nil, fmt.Errorf("notify.NewTelegram: %w", err)
	}

	chat, err := parseChatID(opts.ChatID)
	if err != nil {
		return nil, fmt.Errorf("notify.NewTelegram: %w", err)
	}
	return &Telegram{bot: bot, chatID: chat}, nil
}

func parseChatID(raw string) (telego.ChatID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return telego.ChatID{}, fmt.Errorf("empty chat id")
	}
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return telego.ChatID{ID: id}, nil
	}
	if !strings.HasPrefix(raw, "@") {
		raw = "@" + raw
	}
	return telego.ChatID{Username: raw}, nil
}

// Publish envía el texto en Markdown; los mensajes largos se trocean por líneas.
func (t *Telegram) Publish(ctx context.Context, text string) error {
	for _, chunk := range splitMessage(text, maxMessageLen) {
		_, err := t.bot.SendMessage(ctx, &telego.SendMessageParams{
			ChatID:    t.chatID,
			Text:      chunk,
			ParseMode: telego.ModeMarkdown,
		})
		if err != nil {
			return fmt.Errorf("notify.Telegram.Publish: %w", err)
		}
	}
	return nil
}

// splitMessage corta en fronteras de línea sin superar limit runas por trozo.
func splitMessage(text string, limit int) []string {
	if len([]rune(text)) <= limit {
		return []string{text}
	}

	var (
		chunks []string
		cur    strings.Builder
		n      int
	)
	for _, line := range strings.SplitAfter(text, "\n") {
		l := len([]rune(line))
		if n+l > limit && n > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			n = 0
		}
		for l > limit {
			r := []rune(line)
			chunks = append(chunks, string(r[:limit]))
			line = string(r[limit:])
			l = len([]rune(line))
		}
		cur.WriteString(line)
		n += l
	}
	if n > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
