package llm

import (
	"context"
	"sync"
)

// UsageStat counts calls for one phase.
type UsageStat struct {
	Requests int64 `json:"requests"`
	Errors   int64 `json:"errors"`
	Bytes    int64 `json:"bytes"`
}

// UsageCounter is a CallHook that keeps per-phase call statistics in memory.
type UsageCounter struct {
	mu     sync.Mutex
	phases map[string]UsageStat
}

func NewUsageCounter() *UsageCounter {
	return &UsageCounter{phases: make(map[string]UsageStat)}
}

func (u *UsageCounter) Before(_ context.Context, phase string, req Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	st := u.phases[phase]
	st.Requests++
	for _, m := range req.Messages {
		st.Bytes += int64(len(m.Text))
	}
	u.phases[phase] = st
}

func (u *UsageCounter) After(_ context.Context, phase string, _ Response, err error) {
	if err == nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	st := u.phases[phase]
	st.Errors++
	u.phases[phase] = st
}

// Snapshot returns a copy of the counters keyed by phase.
func (u *UsageCounter) Snapshot() map[string]UsageStat {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make(map[string]UsageStat, len(u.phases))
	for k, v := range u.phases {
		out[k] = v
	}
	return out
}
