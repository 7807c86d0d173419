package chat

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrMissingField = errors.New("missing required field")
	ErrInvalidValue = errors.New("invalid value")
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

type MessageType string

const (
	TypeText       MessageType = "text"
	TypeFlirt      MessageType = "flirt"
	TypePPV        MessageType = "ppv"
	TypeTipRequest MessageType = "tip_request"
)

func (t MessageType) Valid() bool {
	switch t {
	case TypeText, TypeFlirt, TypePPV, TypeTipRequest:
		return true
	}
	return false
}

// Stage is a coarse progress label derived from the message count.
type Stage string

const (
	StageInitial   Stage = "initial"
	StageWarmingUp Stage = "warming_up"
	StageEngaged   Stage = "engaged"
	StageIntimate  Stage = "intimate"
)

// Stages lists every stage in progression order.
var Stages = []Stage{StageInitial, StageWarmingUp, StageEngaged, StageIntimate}

// StageFor maps a message count to its stage.
func StageFor(messages int) Stage {
	switch {
	case messages <= 3:
		return StageInitial
	case messages <= 10:
		return StageWarmingUp
	case messages <= 20:
		return StageEngaged
	default:
		return StageIntimate
	}
}

func (s Stage) Valid() bool {
	for _, v := range Stages {
		if v == s {
			return true
		}
	}
	return false
}

// Summary is one row of Manager.ListChats.
type Summary struct {
	ChatID             string
	ClientName         string
	IsActive           bool
	MessageCount       int
	LastActivityAt     time.Time
	LastMessagePreview string
	Stage              Stage
}

// normalizeTags returns a sorted, deduplicated, non-nil tag set.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func addTag(tags []string, tag string) []string {
	return normalizeTags(append(tags, tag))
}

// Preview returns at most n runes of s.
func Preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
