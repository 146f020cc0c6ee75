package llm

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	genai "google.golang.org/genai"
)

// GeminiConfig configures a GeminiClient.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GeminiClient is a thin wrapper around the official genai client.
// The underlying client is created on first use so that a missing
// credential surfaces as a call failure instead of a startup error.
type GeminiClient struct {
	cfg GeminiConfig

	mu  sync.Mutex
	cli *genai.Client
}

func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	return &GeminiClient{cfg: cfg}
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.cfg.Model }
func (g *GeminiClient) Close() error { return nil }

func (g *GeminiClient) client(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cli != nil {
		return g.cli, nil
	}
	if g.cfg.APIKey == "" {
		return nil, ErrNoCredential
	}
	cc := &genai.ClientConfig{APIKey: g.cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if g.cfg.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: g.cfg.Timeout}
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	g.cli = cli
	return cli, nil
}

// Generate issues one GenerateContent call. No retries are attempted.
func (g *GeminiClient) Generate(ctx context.Context, req Request) (Response, error) {
	cli, err := g.client(ctx)
	if err != nil {
		return Response{}, err
	}
	resp, err := cli.Models.GenerateContent(ctx, g.cfg.Model, toContents(req.Messages), toConfig(req))
	if err != nil {
		return Response{}, err
	}
	txt := candidateText(resp)
	if txt == "" {
		return Response{Model: g.cfg.Model}, ErrEmptyResponse
	}
	return Response{Text: txt, Model: g.cfg.Model}, nil
}

func toContents(msgs []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := string(m.Role)
		if role == "" {
			role = string(RoleUser)
		}
		out = append(out, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Text}}})
	}
	return out
}

func toConfig(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if strings.TrimSpace(req.System) != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toGenaiSchema(req.Schema)
	}
	return cfg
}

func toGenaiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genaiType(s.Type),
		Description: s.Description,
		Items:       toGenaiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toGenaiSchema(p)
		}
		out.PropertyOrdering = append([]string(nil), s.Order...)
	}
	if len(s.Required) > 0 {
		out.Required = append([]string(nil), s.Required...)
	}
	return out
}

func genaiType(t SchemaType) genai.Type {
	switch t {
	case TypeObject:
		return genai.TypeObject
	case TypeArray:
		return genai.TypeArray
	case TypeBoolean:
		return genai.TypeBoolean
	case TypeInteger:
		return genai.TypeInteger
	case TypeNumber:
		return genai.TypeNumber
	default:
		return genai.TypeString
	}
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}
