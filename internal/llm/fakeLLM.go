package llm

import (
	"context"
	"encoding/json"
)

// FakeClient returns deterministic payloads for offline runs and tests.
// Structured requests get a minimal document that satisfies the schema;
// text requests get a fixed reply.
type FakeClient struct {
	Reply string
}

func NewFakeClient() *FakeClient {
	return &FakeClient{Reply: "Mode hors ligne : le tuteur n'est pas connecté au modèle."}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) Generate(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if req.Schema == nil {
		return Response{Text: f.Reply, Model: f.Name()}, nil
	}
	b, err := json.Marshal(zeroValue(req.Schema))
	if err != nil {
		return Response{}, err
	}
	return Response{Text: string(b), Model: f.Name()}, nil
}

func zeroValue(s *Schema) any {
	switch s.Type {
	case TypeObject:
		obj := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			obj[name] = zeroValue(p)
		}
		return obj
	case TypeArray:
		return []any{}
	case TypeBoolean:
		return false
	case TypeInteger, TypeNumber:
		return 0
	default:
		return ""
	}
}
