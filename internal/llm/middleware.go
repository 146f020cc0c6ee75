package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Middleware decorates a Client with a cross-cutting concern.
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// WithLogging logs request size, latency and errors.
func WithLogging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next Client) Client {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next Client
	log  *zap.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) Generate(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	size := len(req.System)
	for _, m := range req.Messages {
		size += len(m.Text)
	}
	fields := []zap.Field{
		zap.String("phase", PhaseFrom(ctx)),
		zap.String("client", l.next.Name()),
		zap.Int("bytes", size),
		zap.Int("messages", len(req.Messages)),
		zap.Bool("structured", req.Schema != nil),
	}
	l.log.Debug("llm request", fields...)
	resp, err := l.next.Generate(ctx, req)
	fields = append(fields, zap.Duration("elapsed", time.Since(start)))
	if err != nil {
		l.log.Warn("llm error", append(fields, zap.Error(err))...)
		return resp, err
	}
	l.log.Info("llm response", append(fields, zap.Int("response_bytes", len(resp.Text)))...)
	return resp, nil
}
