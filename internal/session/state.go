package session

import (
	_ "embed"
	"errors"
	"time"

	"pymentor/internal/analysis"
	"pymentor/internal/conversation"
	"pymentor/internal/requirement"
)

// StarterCode is the program every new session opens with.
//
//go:embed starter.py
var StarterCode string

// FallbackReply is appended as the model turn when the tutor fails or
// returns nothing.
const FallbackReply = "Je n'ai pas pu générer de réponse."

var (
	ErrBusy            = errors.New("session: action already in flight")
	ErrEmptyMessage    = errors.New("session: message is empty")
	ErrToggleDisabled  = errors.New("session: manual toggle is disabled")
	ErrSessionNotFound = errors.New("session: not found")
)

// State is the application state owned by one Controller.
type State struct {
	Code     string
	Catalog  *requirement.Catalog
	Log      *conversation.Log
	Analysis *analysis.Result
	Updated  time.Time

	analyzing *activity
	chatting  *activity
}

func newState(catalog *requirement.Catalog) (*State, error) {
	a, err := newActivity("analysis")
	if err != nil {
		return nil, err
	}
	c, err := newActivity("chat")
	if err != nil {
		return nil, err
	}
	return &State{
		Code:      StarterCode,
		Catalog:   catalog,
		Log:       conversation.NewLog(),
		Updated:   time.Now().UTC(),
		analyzing: a,
		chatting:  c,
	}, nil
}

// Snapshot is an immutable copy of a session's state for transport and
// persistence.
type Snapshot struct {
	SessionID    string               `json:"sessionId"`
	Code         string               `json:"code"`
	Requirements []requirement.Item   `json:"requirements"`
	Messages     []conversation.Turn  `json:"messages"`
	Analysis     *analysis.Result     `json:"analysis,omitempty"`
	Analyzing    bool                 `json:"analyzing"`
	Chatting     bool                 `json:"chatting"`
	Progress     requirement.Progress `json:"progress"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

func (s *State) snapshot(id string) Snapshot {
	snap := Snapshot{
		SessionID:    id,
		Code:         s.Code,
		Requirements: s.Catalog.Items(),
		Messages:     s.Log.Turns(),
		Analyzing:    s.analyzing.Busy(),
		Chatting:     s.chatting.Busy(),
		Progress:     s.Catalog.Progress(),
		UpdatedAt:    s.Updated,
	}
	if snap.Messages == nil {
		snap.Messages = []conversation.Turn{}
	}
	if s.Analysis != nil {
		r := s.Analysis.Clone()
		snap.Analysis = &r
	}
	return snap
}

func (s *State) restore(snap Snapshot) {
	s.Code = snap.Code
	s.Catalog.Restore(snap.Requirements)
	s.Log = conversation.NewLog(restoreTurns(snap.Messages)...)
	if snap.Analysis != nil {
		r := snap.Analysis.Clone()
		s.Analysis = &r
	}
	if !snap.UpdatedAt.IsZero() {
		s.Updated = snap.UpdatedAt
	}
}

// restoreTurns normalizes stored roles and drops turns whose role is unknown.
func restoreTurns(in []conversation.Turn) []conversation.Turn {
	out := make([]conversation.Turn, 0, len(in))
	for _, t := range in {
		role, err := conversation.ParseRole(string(t.Role))
		if err != nil {
			continue
		}
		out = append(out, conversation.Turn{Role: role, Text: t.Text})
	}
	return out
}
