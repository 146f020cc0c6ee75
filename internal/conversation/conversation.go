package conversation

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ParseRole accepts the stored spellings of a role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, nil
	case RoleModel, "assistant":
		return RoleModel, nil
	}
	return "", fmt.Errorf("conversation: unknown role %q", s)
}

// Turn is one chat message. Turns are never edited once appended.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Log is an append-only, insertion-ordered chat transcript.
// It is not safe for concurrent use; the owner serializes access.
type Log struct {
	turns []Turn
}

func NewLog(turns ...Turn) *Log {
	return &Log{turns: append([]Turn(nil), turns...)}
}

func (l *Log) Append(role Role, text string) Turn {
	t := Turn{Role: role, Text: text}
	l.turns = append(l.turns, t)
	return t
}

func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	return len(l.turns)
}

// Turns returns a copy of the transcript.
func (l *Log) Turns() []Turn {
	if l == nil {
		return nil
	}
	return append([]Turn(nil), l.turns...)
}
