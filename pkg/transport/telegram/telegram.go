// Package telegram adapts the Telegram Bot API to the transport interfaces.
// Everything telego-specific lives here; the rest of the bot only sees chat
// ids, message ids and callback payloads.
package telegram

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/silkway-digital/showcase-bot/pkg/bus"
	"github.com/silkway-digital/showcase-bot/pkg/catalog"
	"github.com/silkway-digital/showcase-bot/pkg/logger"
	"github.com/silkway-digital/showcase-bot/pkg/transport"
)

// Channel is the long-polling Telegram connection. It publishes inbound
// messages and callback presses to the event bus and implements the outbound
// Messenger surface.
type Channel struct {
	bot     *telego.Bot
	events  *bus.EventBus
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewChannel(token string, events *bus.EventBus, debug bool) (*Channel, error) {
	opts := []telego.BotOption{telego.WithDiscardLogger()}
	if debug {
		opts = []telego.BotOption{telego.WithDefaultDebugLogger()}
	}
	bot, err := telego.NewBot(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return &Channel{bot: bot, events: events}, nil
}

func (c *Channel) Name() string { return "telegram" }

func (c *Channel) IsRunning() bool { return c.running.Load() }

// Start connects, registers the command menu and consumes updates until the
// context is canceled or Stop is called.
func (c *Channel) Start(ctx context.Context) error {
	me, err := c.bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram auth check: %w", err)
	}
	logger.InfoCF("telegram", "Connected", map[string]any{
		"username": me.Username,
		"bot_id":   me.ID,
	})

	if err := c.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: []telego.BotCommand{
			{Command: "start", Description: "Главное меню"},
			{Command: "info", Description: "О нас"},
		},
	}); err != nil {
		logger.WarnCF("telegram", "Command registration failed", map[string]any{
			"error": err.Error(),
		})
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	updates, err := c.bot.UpdatesViaLongPolling(runCtx, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("starting long polling: %w", err)
	}

	c.done = make(chan struct{})
	c.running.Store(true)
	go c.consume(runCtx, updates)
	return nil
}

// Stop cancels the long-polling loop and waits for it to drain.
func (c *Channel) Stop(ctx context.Context) error {
	if !c.running.Load() {
		return nil
	}
	c.cancel()
	select {
	case <-c.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	logger.InfoC("telegram", "Disconnected")
	return nil
}

func (c *Channel) consume(ctx context.Context, updates <-chan telego.Update) {
	defer func() {
		c.running.Store(false)
		close(c.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if e, ok := c.toEvent(update); ok {
				if err := c.events.Publish(ctx, e); err != nil {
					logger.WarnCF("telegram", "Event dropped", map[string]any{
						"chat_id": e.ChatID,
						"error":   err.Error(),
					})
				}
			}
		}
	}
}

// toEvent converts an update into a bus event. Only private text messages and
// callback presses are interesting; everything else is skipped.
func (c *Channel) toEvent(update telego.Update) (bus.Event, bool) {
	if q := update.CallbackQuery; q != nil {
		e := bus.Event{
			ChatID:       q.From.ID,
			SenderID:     q.From.ID,
			Username:     q.From.Username,
			CallbackID:   q.ID,
			CallbackData: q.Data,
		}
		if q.Message != nil {
			e.ChatID = q.Message.GetChat().ID
			e.MessageID = q.Message.GetMessageID()
		}
		return e, true
	}

	if m := update.Message; m != nil && m.Text != "" {
		e := bus.Event{
			ChatID:    m.Chat.ID,
			MessageID: m.MessageID,
			Text:      m.Text,
		}
		if m.From != nil {
			e.SenderID = m.From.ID
			e.Username = m.From.Username
		}
		return e, true
	}

	return bus.Event{}, false
}

// --- outbound ---

func (c *Channel) SendText(ctx context.Context, chatID int64, text string, kb *transport.Keyboard) (int, error) {
	params := &telego.SendMessageParams{
		ChatID:    tu.ID(chatID),
		Text:      text,
		ParseMode: telego.ModeHTML,
	}
	// ReplyMarkup is an interface field: a typed nil must not be assigned.
	if markup := toMarkup(kb); markup != nil {
		params.ReplyMarkup = markup
	}
	msg, err := c.bot.SendMessage(ctx, params)
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (c *Channel) EditText(ctx context.Context, chatID int64, messageID int, text string, kb *transport.Keyboard) error {
	_, err := c.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:      tu.ID(chatID),
		MessageID:   messageID,
		Text:        text,
		ParseMode:   telego.ModeHTML,
		ReplyMarkup: toMarkup(kb),
	})
	return err
}

func (c *Channel) SendPhoto(ctx context.Context, chatID int64, photo, caption string, kb *transport.Keyboard) (int, error) {
	file, closeFile, err := inputFile(photo)
	if err != nil {
		return 0, err
	}
	defer closeFile()

	params := &telego.SendPhotoParams{
		ChatID:    tu.ID(chatID),
		Photo:     file,
		Caption:   caption,
		ParseMode: telego.ModeHTML,
	}
	if markup := toMarkup(kb); markup != nil {
		params.ReplyMarkup = markup
	}
	msg, err := c.bot.SendPhoto(ctx, params)
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (c *Channel) EditPhoto(ctx context.Context, chatID int64, messageID int, photo, caption string, kb *transport.Keyboard) error {
	file, closeFile, err := inputFile(photo)
	if err != nil {
		return err
	}
	defer closeFile()

	_, err = c.bot.EditMessageMedia(ctx, &telego.EditMessageMediaParams{
		ChatID:    tu.ID(chatID),
		MessageID: messageID,
		Media: &telego.InputMediaPhoto{
			Type:      telego.MediaTypePhoto,
			Media:     file,
			Caption:   caption,
			ParseMode: telego.ModeHTML,
		},
		ReplyMarkup: toMarkup(kb),
	})
	return err
}

func (c *Channel) SendAlbum(ctx context.Context, chatID int64, photos []string) ([]int, error) {
	media := make([]telego.InputMedia, 0, len(photos))
	closers := make([]func(), 0, len(photos))
	defer func() {
		for _, closeFile := range closers {
			closeFile()
		}
	}()

	for _, photo := range photos {
		file, closeFile, err := inputFile(photo)
		if err != nil {
			return nil, err
		}
		closers = append(closers, closeFile)
		media = append(media, &telego.InputMediaPhoto{
			Type:  telego.MediaTypePhoto,
			Media: file,
		})
	}

	msgs, err := c.bot.SendMediaGroup(ctx, &telego.SendMediaGroupParams{
		ChatID: tu.ID(chatID),
		Media:  media,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]int, len(msgs))
	for i, m := range msgs {
		ids[i] = m.MessageID
	}
	return ids, nil
}

func (c *Channel) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return c.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    tu.ID(chatID),
		MessageID: messageID,
	})
}

func (c *Channel) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	return c.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
}

// inputFile builds a telego input file from an image source: URLs pass
// through, local paths are opened for upload. The returned closer must be
// called after the API request completed.
func inputFile(source string) (telego.InputFile, func(), error) {
	if catalog.IsURL(source) {
		return telego.InputFile{URL: source}, func() {}, nil
	}
	f, err := os.Open(source)
	if err != nil {
		return telego.InputFile{}, nil, fmt.Errorf("opening image %s: %w", source, err)
	}
	return tu.File(f), func() { _ = f.Close() }, nil
}

func toMarkup(kb *transport.Keyboard) *telego.InlineKeyboardMarkup {
	if kb == nil || len(kb.Buttons) == 0 {
		return nil
	}
	rows := make([][]telego.InlineKeyboardButton, 0, len(kb.Buttons))
	for _, btn := range kb.Buttons {
		rows = append(rows, []telego.InlineKeyboardButton{
			{Text: btn.Label, CallbackData: btn.Data},
		})
	}
	return &telego.InlineKeyboardMarkup{InlineKeyboard: rows}
}
