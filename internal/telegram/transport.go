package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chatterbot/internal/util"
)

type Button struct {
	Text    string
	Command Command
}

// Keyboard is an inline keyboard, one slice per row.
type Keyboard [][]Button

func row(buttons ...Button) []Button { return buttons }

func button(text string, c Command) Button { return Button{Text: text, Command: c} }

// Transport is the outbound side of the bot.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string, kb Keyboard) error
	EditText(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error
	AnswerCallback(ctx context.Context, callbackID, toast string) error
}

// botTransport sends through the Bot API. Texts go out as HTML first and are
// resent once as plain text when Telegram cannot parse the markup.
type botTransport struct {
	bot requester
}

// requester is the part of *tgbotapi.BotAPI the transport uses.
type requester interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

func newBotTransport(bot requester) *botTransport {
	return &botTransport{bot: bot}
}

func (t *botTransport) SendText(_ context.Context, chatID int64, text string, kb Keyboard) error {
	build := func(html bool) tgbotapi.Chattable {
		m := tgbotapi.NewMessage(chatID, body(text, html))
		if html {
			m.ParseMode = tgbotapi.ModeHTML
		}
		if markup := inlineMarkup(kb); markup != nil {
			m.ReplyMarkup = *markup
		}
		return m
	}
	return t.sendWithFallback(build)
}

func (t *botTransport) EditText(_ context.Context, chatID int64, messageID int, text string, kb Keyboard) error {
	build := func(html bool) tgbotapi.Chattable {
		e := tgbotapi.NewEditMessageText(chatID, messageID, body(text, html))
		if html {
			e.ParseMode = tgbotapi.ModeHTML
		}
		e.ReplyMarkup = inlineMarkup(kb)
		return e
	}
	return t.sendWithFallback(build)
}

func (t *botTransport) AnswerCallback(_ context.Context, callbackID, toast string) error {
	_, err := t.bot.Request(tgbotapi.NewCallback(callbackID, toast))
	return err
}

func (t *botTransport) sendWithFallback(build func(html bool) tgbotapi.Chattable) error {
	_, err := t.bot.Request(build(true))
	if util.IsParseEntitiesError(err) {
		_, err = t.bot.Request(build(false))
	}
	return err
}

func body(text string, html bool) string {
	text = util.TrimToRunes(util.SanitizeTelegramText(text), util.MaxMessageRunes)
	if html {
		return util.FormatTelegramHTML(text)
	}
	return text
}

func inlineMarkup(kb Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if len(kb) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, r := range kb {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Command.Encode()))
		}
		if len(btns) > 0 {
			rows = append(rows, btns)
		}
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}
