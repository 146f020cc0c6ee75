package llm

import "context"

type ctxKeyPhase struct{}

// WithPhase tags ctx with the caller's purpose ("analysis", "tutor").
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, ctxKeyPhase{}, phase)
}

// PhaseFrom returns the phase string stored in the context.
func PhaseFrom(ctx context.Context) string {
	if v := ctx.Value(ctxKeyPhase{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "unknown"
}

// CallHook observes every call passing through a hooked client.
type CallHook interface {
	Before(ctx context.Context, phase string, req Request)
	After(ctx context.Context, phase string, resp Response, err error)
}

// WithHook returns a middleware that runs hook around each call.
func WithHook(hook CallHook) Middleware {
	return func(next Client) Client {
		return &hooked{next: next, hook: hook}
	}
}

type hooked struct {
	next Client
	hook CallHook
}

func (h *hooked) Name() string { return h.next.Name() }
func (h *hooked) Close() error { return h.next.Close() }

func (h *hooked) Generate(ctx context.Context, req Request) (Response, error) {
	phase := PhaseFrom(ctx)
	if h.hook != nil {
		h.hook.Before(ctx, phase, req)
	}
	resp, err := h.next.Generate(ctx, req)
	if h.hook != nil {
		h.hook.After(ctx, phase, resp, err)
	}
	return resp, err
}
