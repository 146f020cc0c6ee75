package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"pymentor/internal/analysis"
	"pymentor/internal/conversation"
	"pymentor/internal/requirement"
	"pymentor/internal/tutor"
)

// Policy holds the behavior switches shared by all sessions.
type Policy struct {
	Matcher requirement.Matcher
	// Monotonic keeps completed items completed across analyses.
	Monotonic bool
	// ManualToggle enables ToggleRequirement.
	ManualToggle bool
}

func DefaultPolicy() Policy {
	return Policy{Matcher: requirement.ExactID{}, Monotonic: true, ManualToggle: true}
}

// Deps are the injected capabilities a Controller talks to.
type Deps struct {
	Analyzer analysis.Service
	Tutor    tutor.Service
	Policy   Policy
	Logger   *zap.Logger
}

// Controller orchestrates user actions for one session. The state lock is
// never held while a model call is outstanding, so edits proceed during
// an analysis.
type Controller struct {
	id   string
	deps Deps
	log  *zap.Logger

	mu    sync.Mutex
	state *State

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

func NewController(id string, catalog *requirement.Catalog, deps Deps) (*Controller, error) {
	st, err := newState(catalog)
	if err != nil {
		return nil, err
	}
	if deps.Policy.Matcher == nil {
		deps.Policy.Matcher = requirement.ExactID{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		id:    id,
		deps:  deps,
		log:   logger.With(zap.String("session", id)),
		state: st,
		subs:  make(map[int]chan Snapshot),
	}, nil
}

func (c *Controller) ID() string { return c.id }

// Active reports whether a model call is in flight or a subscriber is attached.
func (c *Controller) Active() bool {
	c.mu.Lock()
	busy := c.state.analyzing.Busy() || c.state.chatting.Busy()
	c.mu.Unlock()
	return busy || c.Subscribers() > 0
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.snapshot(c.id)
}

// Restore loads code, flags, transcript and last result from snap.
func (c *Controller) Restore(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.restore(snap)
	c.publish(c.state.snapshot(c.id))
}

// SetCode replaces the code buffer.
func (c *Controller) SetCode(code string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Code = code
	return c.commit()
}

// ToggleRequirement flips one item by hand.
func (c *Controller) ToggleRequirement(id string) (Snapshot, error) {
	if !c.deps.Policy.ManualToggle {
		return c.Snapshot(), ErrToggleDisabled
	}
	c.mu.Lock()
	completed, err := c.state.Catalog.Toggle(id)
	if err != nil {
		out := c.state.snapshot(c.id)
		c.mu.Unlock()
		return out, err
	}
	out := c.commit()
	c.mu.Unlock()
	c.log.Info("requirement toggled", zap.String("requirement", id), zap.Bool("completed", completed))
	return out, nil
}

// Analyze runs one analysis of the current code. While another analysis is
// in flight it does nothing and returns ErrBusy.
func (c *Controller) Analyze(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if !c.state.analyzing.Begin() {
		out := c.state.snapshot(c.id)
		c.mu.Unlock()
		return out, ErrBusy
	}
	code := c.state.Code
	reqs := c.state.Catalog.Items()
	c.publish(c.state.snapshot(c.id))
	c.mu.Unlock()

	start := time.Now()
	res := c.deps.Analyzer.Analyze(context.WithoutCancel(ctx), code, reqs)

	c.mu.Lock()
	c.state.analyzing.Settle()
	stored := res.Clone()
	c.state.Analysis = &stored
	var changed []string
	if !res.Failed() {
		changed = c.state.Catalog.Apply(res.Evidence(), c.deps.Policy.Matcher, c.deps.Policy.Monotonic)
	}
	out := c.commit()
	c.mu.Unlock()

	c.log.Info("analysis settled",
		zap.Bool("failed", res.Failed()),
		zap.Strings("changed", changed),
		zap.Int("errors", len(res.Errors)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// SendMessage appends the user turn at once, then the tutor reply (or the
// fallback reply) when the call settles. While another message is in
// flight it does nothing and returns ErrBusy.
func (c *Controller) SendMessage(ctx context.Context, text string) (Snapshot, error) {
	if strings.TrimSpace(text) == "" {
		return c.Snapshot(), ErrEmptyMessage
	}
	c.mu.Lock()
	if !c.state.chatting.Begin() {
		out := c.state.snapshot(c.id)
		c.mu.Unlock()
		return out, ErrBusy
	}
	history := c.state.Log.Turns()
	c.state.Log.Append(conversation.RoleUser, text)
	code := c.state.Code
	c.commit()
	c.mu.Unlock()

	reply, err := c.deps.Tutor.GetHint(context.WithoutCancel(ctx), text, code, history)
	if err != nil {
		c.log.Warn("tutor failed, using fallback reply", zap.Error(err))
		reply = FallbackReply
	} else if strings.TrimSpace(reply) == "" {
		reply = FallbackReply
	}

	c.mu.Lock()
	c.state.Log.Append(conversation.RoleModel, reply)
	c.state.chatting.Settle()
	out := c.commit()
	c.mu.Unlock()
	return out, nil
}

// commit stamps the state, publishes it and returns the snapshot.
// Publishing under the state lock keeps subscribers in commit order.
func (c *Controller) commit() Snapshot {
	c.state.Updated = time.Now().UTC()
	out := c.state.snapshot(c.id)
	c.publish(out)
	return out
}
