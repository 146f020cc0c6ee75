package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"pymentor/internal/conversation"
	"pymentor/internal/llm"
)

// SystemInstruction fixes persona, concept checklist and reply language.
const SystemInstruction = `You are an expert Python Tutor helping a student build a To-Do List console app.
The student must use: Lists, Dictionaries, Tuples, Strings, Loops, Conditions, and Functions.
Language of communication: French (Français). Always answer in French, whatever language the student writes in.
Be encouraging and pedagogical. Don't just give the whole solution; explain the logic.
The current code context is provided in the prompt.`

// HistoryMode controls whether prior turns are replayed to the model.
type HistoryMode string

const (
	HistoryStateless HistoryMode = "stateless"
	HistoryReplay    HistoryMode = "history"
)

func ParseHistoryMode(s string) (HistoryMode, error) {
	switch HistoryMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", HistoryReplay:
		return HistoryReplay, nil
	case HistoryStateless:
		return HistoryStateless, nil
	}
	return "", fmt.Errorf("tutor: unknown history mode %q", s)
}

// Service answers a student's chat message.
type Service interface {
	GetHint(ctx context.Context, message, code string, history []conversation.Turn) (string, error)
}

type Client struct {
	llm  llm.Client
	mode HistoryMode
	log  *zap.Logger
}

type Option func(*Client)

func WithHistoryMode(m HistoryMode) Option { return func(c *Client) { c.mode = m } }

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func NewClient(cli llm.Client, opts ...Option) *Client {
	c := &Client{llm: cli, mode: HistoryReplay, log: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetHint sends one request and returns the model text, which may be empty.
// Failures are returned as errors; callers decide on a fallback.
func (c *Client) GetHint(ctx context.Context, message, code string, history []conversation.Turn) (string, error) {
	req := llm.Request{System: SystemInstruction}
	if c.mode == HistoryReplay {
		req.Messages = replay(history)
	}
	req.Messages = append(req.Messages, llm.Message{Role: llm.RoleUser, Text: UserPrompt(message, code)})

	resp, err := c.llm.Generate(llm.WithPhase(ctx, "tutor"), req)
	if err != nil {
		if errors.Is(err, llm.ErrEmptyResponse) {
			c.log.Debug("tutor returned no text")
			return "", nil
		}
		c.log.Warn("tutor request failed", zap.Error(err))
		return "", fmt.Errorf("tutor: generate: %w", err)
	}
	return resp.Text, nil
}

// UserPrompt embeds the current code and the student message.
func UserPrompt(message, code string) string {
	return "Current code:\n" + code + "\n\nStudent message: " + message
}

// replay converts transcript turns into model contents. Leading model turns
// are dropped because the conversation must open with a user turn.
func replay(history []conversation.Turn) []llm.Message {
	out := make([]llm.Message, 0, len(history)+1)
	for _, t := range history {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		role := llm.RoleUser
		if t.Role == conversation.RoleModel {
			role = llm.RoleModel
		}
		if len(out) == 0 && role == llm.RoleModel {
			continue
		}
		out = append(out, llm.Message{Role: role, Text: t.Text})
	}
	return out
}
