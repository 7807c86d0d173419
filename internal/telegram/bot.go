package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"chatterbot/internal/config"
	"chatterbot/internal/logutil"
)

// Bot owns the Bot API connection and the update loop.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg config.Config
	log *zap.Logger
	wg  sync.WaitGroup
}

func NewBot(cfg config.Config, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, errors.New(logutil.Redact(err.Error(), cfg.TelegramToken))
	}
	api.Debug = false
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{api: api, cfg: cfg, log: log}, nil
}

// Transport sends replies through this bot.
func (b *Bot) Transport() Transport { return newBotTransport(b.api) }

// Run polls for updates and hands each one to h on its own goroutine. It
// returns once ctx is done and every in-flight handler has finished.
func (b *Bot) Run(ctx context.Context, h *Handlers) error {
	if b.cfg.SetCommands {
		b.setMenuCommands()
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)
	b.log.Info("telegram started", zap.String("bot", "@"+b.api.Self.UserName))

	defer b.wg.Wait()
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			ev, ok := EventFromUpdate(up)
			if !ok {
				continue
			}
			if !b.cfg.Allowed(ev.UserID) {
				if b.cfg.LogUnknown {
					b.log.Info("ignored sender", zap.Int64("user_id", ev.UserID), zap.String("user", senderLabel(up)), zap.String("text", ev.Text))
				}
				continue
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				h.Handle(ctx, ev)
			}()
		}
	}
}

func (b *Bot) setMenuCommands() {
	// Best-effort: don't fail startup if Telegram rejects the request.
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(menuCommands()...)); err != nil {
		b.log.Warn("setMyCommands failed", zap.Error(err))
	}
}

func menuCommands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "menu", Description: "Main menu"},
		{Command: "reply", Description: "Suggest a reply: /reply <client message>"},
		{Command: "new", Description: "New client chat: /new <name>"},
		{Command: "chats", Description: "List and switch chats"},
		{Command: "info", Description: "Active chat details"},
		{Command: "memory", Description: "What you know about the client"},
		{Command: "analytics", Description: "Stats across all chats"},
		{Command: "note", Description: "Remember something: /note <text>"},
		{Command: "pref", Description: "Store a preference: /pref key=value"},
		{Command: "interest", Description: "Add an interest: /interest <text>"},
		{Command: "mood", Description: "Set the client's mood: /mood <text>"},
		{Command: "style", Description: "Describe how the client writes: /style <text>"},
		{Command: "status", Description: "Session and save state"},
		{Command: "cancel", Description: "Stop waiting for input"},
		{Command: "help", Description: "Help and usage"},
	}
}

// EventFromUpdate extracts the handler event from a raw update. Updates that
// carry neither a message nor a callback are skipped.
func EventFromUpdate(up tgbotapi.Update) (Event, bool) {
	switch {
	case up.CallbackQuery != nil:
		q := up.CallbackQuery
		if q.From == nil {
			return Event{}, false
		}
		ev := Event{Kind: EventCallback, UserID: q.From.ID, ChatID: q.From.ID, CallbackID: q.ID, Data: q.Data}
		if q.Message != nil {
			ev.MessageID = q.Message.MessageID
			if q.Message.Chat != nil {
				ev.ChatID = q.Message.Chat.ID
			}
		}
		return ev, true
	case up.Message != nil:
		m := up.Message
		if m.From == nil || m.Chat == nil {
			return Event{}, false
		}
		return Event{Kind: EventMessage, UserID: m.From.ID, ChatID: m.Chat.ID, Text: m.Text}, true
	default:
		return Event{}, false
	}
}

func senderLabel(up tgbotapi.Update) string {
	u := up.SentFrom()
	if u == nil {
		return ""
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return strconv.FormatInt(u.ID, 10)
}
