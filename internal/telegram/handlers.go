package telegram

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"

	"chatterbot/internal/config"
	"chatterbot/internal/core"
	"chatterbot/internal/llm"
	"chatterbot/internal/state"
	"chatterbot/internal/util"
)

type EventKind uint8

const (
	EventMessage EventKind = iota + 1
	EventCallback
)

// Event is an inbound update reduced to what the handlers need.
type Event struct {
	Kind       EventKind
	UserID     int64
	ChatID     int64
	MessageID  int    // callback: message holding the pressed button
	CallbackID string // callback only
	Text       string // message only
	Data       string // callback only
}

// Reply is the single outbound answer to an Event.
type Reply struct {
	Text     string
	Keyboard Keyboard
	Toast    string
}

// Deps are the collaborators the handlers are built from.
type Deps struct {
	Sessions  *core.SessionManager
	State     state.Store
	LLM       llm.Client
	Persona   config.Persona
	Transport Transport
	Log       *zap.Logger
	StateTTL  time.Duration
	Now       func() time.Time
}

type Handlers struct {
	sessions  *core.SessionManager
	state     state.Store
	llm       llm.Client
	persona   config.Persona
	transport Transport
	log       *zap.Logger
	ttl       time.Duration
	now       func() time.Time
}

func NewHandlers(d Deps) *Handlers {
	h := &Handlers{
		sessions:  d.Sessions,
		state:     d.State,
		llm:       d.LLM,
		persona:   d.Persona,
		transport: d.Transport,
		log:       d.Log,
		ttl:       d.StateTTL,
		now:       d.Now,
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.ttl <= 0 {
		h.ttl = 30 * time.Minute
	}
	if h.now == nil {
		h.now = func() time.Time { return time.Now().UTC() }
	}
	return h
}

// Handle processes one event and emits exactly one reply. Errors and panics
// from the individual handlers are turned into a user-facing message here.
func (h *Handlers) Handle(ctx context.Context, ev Event) {
	reply, err := h.dispatch(ctx, ev)
	if err != nil {
		if expected(err) {
			h.log.Debug("handler declined", zap.Int64("user_id", ev.UserID), zap.Error(err))
		} else {
			h.log.Error("handler failed", zap.Int64("user_id", ev.UserID), zap.Int64("chat_id", ev.ChatID), zap.Error(err))
		}
		reply = Reply{Text: userMessage(err), Keyboard: mainMenu()}
	}
	h.deliver(ctx, ev, reply)
}

func (h *Handlers) dispatch(ctx context.Context, ev Event) (reply Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("handler panic", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	switch ev.Kind {
	case EventCallback:
		cmd, err := DecodeCommand(ev.Data)
		if err != nil {
			return Reply{}, err
		}
		return h.handleCallback(ctx, ev, cmd)
	case EventMessage:
		return h.handleMessage(ctx, ev)
	default:
		return Reply{}, fmt.Errorf("unknown event kind %d", ev.Kind)
	}
}

// deliver edits the message behind a callback, falls back to a new message,
// and finally gives up with a log line.
func (h *Handlers) deliver(ctx context.Context, ev Event, r Reply) {
	if ev.Kind == EventCallback && ev.CallbackID != "" {
		if err := h.transport.AnswerCallback(ctx, ev.CallbackID, r.Toast); err != nil {
			if util.IsExpiredCallbackError(err) {
				h.log.Debug("callback expired", zap.Int64("user_id", ev.UserID))
			} else {
				h.log.Warn("answer callback failed", zap.Int64("user_id", ev.UserID), zap.Error(err))
			}
		}
	}
	if strings.TrimSpace(r.Text) == "" {
		return
	}

	if ev.Kind == EventCallback && ev.MessageID != 0 {
		err := h.transport.EditText(ctx, ev.ChatID, ev.MessageID, r.Text, r.Keyboard)
		if err == nil || util.IsNotModifiedError(err) {
			return
		}
		h.log.Warn("edit failed, sending instead", zap.Int64("chat_id", ev.ChatID), zap.Error(err))
	}
	if err := h.transport.SendText(ctx, ev.ChatID, r.Text, r.Keyboard); err != nil {
		h.log.Error("send failed", zap.Int64("chat_id", ev.ChatID), zap.Error(err))
	}
}

func (h *Handlers) handleCallback(ctx context.Context, ev Event, cmd Command) (Reply, error) {
	switch cmd.Kind {
	case CmdMenu:
		return menuReply(), nil
	case CmdCancel:
		h.clearAwait(ev.UserID)
		r := menuReply()
		r.Toast = "Cancelled"
		return r, nil
	case CmdNewChat:
		return h.askChatName(ev.UserID), nil
	case CmdListChats:
		return h.listChats(ctx, ev.UserID)
	case CmdSwitch:
		return h.switchChat(ctx, ev.UserID, cmd.ChatID)
	case CmdDelete:
		return h.confirmDelete(ctx, ev.UserID, cmd.ChatID)
	case CmdConfirmDelete:
		return h.deleteChat(ctx, ev.UserID, cmd.ChatID)
	case CmdInfo:
		return h.chatInfo(ctx, ev.UserID)
	case CmdMemory:
		return h.chatMemory(ctx, ev.UserID)
	case CmdAnalytics:
		return h.analytics(ctx, ev.UserID)
	case CmdReply:
		return h.askClientMessage(ctx, ev.UserID)
	case CmdUseReply:
		return h.useReply(ctx, ev.UserID, cmd.Type)
	case CmdRegenerate:
		return h.regenerate(ctx, ev.UserID)
	case CmdDiscard:
		return h.discardReply(ev.UserID), nil
	default:
		return Reply{}, errBadCallback
	}
}

func (h *Handlers) handleMessage(ctx context.Context, ev Event) (Reply, error) {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return Reply{Text: "I can only read text messages.", Keyboard: mainMenu()}, nil
	}
	if strings.HasPrefix(text, "/") {
		return h.handleCommand(ctx, ev.UserID, text)
	}

	// A pending flag decides what plain text means; it is cleared whether or
	// not the text is used successfully.
	switch h.takeAwait(ev.UserID) {
	case awaitChatName:
		return h.createChat(ctx, ev.UserID, text)
	case awaitChatReply:
		return h.suggestReply(ctx, ev.UserID, text)
	}
	return Reply{
		Text:     "Tap 💬 Reply to client and paste their message, or open a menu below.",
		Keyboard: mainMenu(),
	}, nil
}

func (h *Handlers) handleCommand(ctx context.Context, userID int64, text string) (Reply, error) {
	name, arg, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(arg)
	// "/cmd@botname" in groups
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	switch name {
	case "/start", "/menu":
		return menuReply(), nil
	case "/help":
		return Reply{Text: helpText, Keyboard: mainMenu()}, nil
	case "/new":
		if arg == "" {
			return h.askChatName(userID), nil
		}
		return h.createChat(ctx, userID, arg)
	case "/chats":
		return h.listChats(ctx, userID)
	case "/reply":
		if arg == "" {
			return h.askClientMessage(ctx, userID)
		}
		h.clearAwait(userID)
		return h.suggestReply(ctx, userID, arg)
	case "/info":
		return h.chatInfo(ctx, userID)
	case "/memory":
		return h.chatMemory(ctx, userID)
	case "/analytics":
		return h.analytics(ctx, userID)
	case "/note", "/pref", "/interest", "/mood", "/style":
		return h.editMemory(ctx, userID, name, arg)
	case "/cancel":
		h.clearAwait(userID)
		h.state.Delete(pendingKey(userID))
		return Reply{Text: "Cancelled.", Keyboard: mainMenu()}, nil
	case "/status":
		st, _ := h.sessions.Status(userID)
		return Reply{Text: st}, nil
	default:
		return Reply{Text: "Unknown command; try /help"}, nil
	}
}

const helpText = `Commands
/menu: main menu
/new [name]: start a chat with a client
/chats: list and switch chats
/reply [message]: suggest a reply to the client's message
/info, /memory, /analytics: details about your chats
/note <text>: remember something about the active client
/pref <key>=<value>: store a preference
/interest <text>: add an interest
/mood <text>: set the client's current mood
/style <text>: describe how the client writes
/status: session and save state
/cancel: stop waiting for input
/help: this list`
