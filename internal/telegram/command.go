package telegram

import (
	"fmt"
	"strings"

	"chatterbot/internal/chat"
)

// CommandKind tags the action carried by an inline button.
type CommandKind uint8

const (
	CmdMenu CommandKind = iota + 1
	CmdNewChat
	CmdListChats
	CmdSwitch
	CmdDelete
	CmdConfirmDelete
	CmdInfo
	CmdMemory
	CmdAnalytics
	CmdReply
	CmdUseReply
	CmdRegenerate
	CmdDiscard
	CmdCancel
)

// Command is a decoded callback payload. ChatID is set for the switch and
// delete kinds, Type for CmdUseReply.
type Command struct {
	Kind   CommandKind
	ChatID string
	Type   chat.MessageType
}

type arg uint8

const (
	argNone arg = iota
	argChat
	argType
)

var codes = map[CommandKind]struct {
	code string
	arg  arg
}{
	CmdMenu:          {"menu", argNone},
	CmdNewChat:       {"new", argNone},
	CmdListChats:     {"list", argNone},
	CmdSwitch:        {"sw", argChat},
	CmdDelete:        {"del", argChat},
	CmdConfirmDelete: {"delok", argChat},
	CmdInfo:          {"info", argNone},
	CmdMemory:        {"mem", argNone},
	CmdAnalytics:     {"stats", argNone},
	CmdReply:         {"reply", argNone},
	CmdUseReply:      {"use", argType},
	CmdRegenerate:    {"regen", argNone},
	CmdDiscard:       {"drop", argNone},
	CmdCancel:        {"cancel", argNone},
}

var kindsByCode = func() map[string]CommandKind {
	out := make(map[string]CommandKind, len(codes))
	for k, v := range codes {
		out[v.code] = k
	}
	return out
}()

// Encode renders the command as callback data ("code" or "code:arg").
// Telegram limits callback data to 64 bytes; chat ids are UUIDs.
func (c Command) Encode() string {
	ent, ok := codes[c.Kind]
	if !ok {
		return ""
	}
	switch ent.arg {
	case argChat:
		return ent.code + ":" + c.ChatID
	case argType:
		return ent.code + ":" + string(c.Type)
	default:
		return ent.code
	}
}

// DecodeCommand parses callback data produced by Encode.
func DecodeCommand(data string) (Command, error) {
	code, rest, hasArg := strings.Cut(strings.TrimSpace(data), ":")
	kind, ok := kindsByCode[code]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", errBadCallback, data)
	}
	ent := codes[kind]
	cmd := Command{Kind: kind}
	switch ent.arg {
	case argNone:
		if hasArg {
			return Command{}, fmt.Errorf("%w: unexpected argument in %q", errBadCallback, data)
		}
	case argChat:
		if rest == "" {
			return Command{}, fmt.Errorf("%w: missing chat id in %q", errBadCallback, data)
		}
		cmd.ChatID = rest
	case argType:
		t := chat.MessageType(rest)
		if !t.Valid() {
			return Command{}, fmt.Errorf("%w: bad message type in %q", errBadCallback, data)
		}
		cmd.Type = t
	}
	return cmd, nil
}
