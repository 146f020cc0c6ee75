package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	genai "google.golang.org/genai"
)

type recordingClient struct {
	name  string
	calls []string
	err   error
}

func (r *recordingClient) Name() string { return r.name }
func (r *recordingClient) Close() error { return nil }
func (r *recordingClient) Generate(ctx context.Context, req Request) (Response, error) {
	r.calls = append(r.calls, PhaseFrom(ctx))
	if r.err != nil {
		return Response{}, r.err
	}
	return Response{Text: "ok"}, nil
}

func tagging(tag string, order *[]string) Middleware {
	return func(next Client) Client {
		return &tagClient{Client: next, tag: tag, order: order}
	}
}

type tagClient struct {
	Client
	tag   string
	order *[]string
}

func (t *tagClient) Generate(ctx context.Context, req Request) (Response, error) {
	*t.order = append(*t.order, t.tag)
	return t.Client.Generate(ctx, req)
}

func TestWrapOrder(t *testing.T) {
	var order []string
	inner := &recordingClient{name: "inner"}
	cli := Wrap(inner, tagging("A", &order), tagging("B", &order))

	_, err := cli.Generate(context.Background(), UserText("", "hi"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, order)
	assert.Equal(t, "inner", cli.Name())
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	inner := &recordingClient{name: "inner", err: errors.New("boom")}
	cli := Wrap(inner, WithLogging(zap.New(core)))

	ctx := WithPhase(context.Background(), "tutor")
	_, err := cli.Generate(ctx, UserText("sys", "hello"))
	require.Error(t, err)

	warn := logs.FilterMessage("llm error").All()
	require.Len(t, warn, 1)
	assert.Equal(t, "tutor", warn[0].ContextMap()["phase"])
	assert.Equal(t, []string{"tutor"}, inner.calls)
}

func TestUsageCounterHook(t *testing.T) {
	usage := NewUsageCounter()
	ok := Wrap(&recordingClient{name: "a"}, WithHook(usage))
	bad := Wrap(&recordingClient{name: "b", err: errors.New("down")}, WithHook(usage))

	ctx := WithPhase(context.Background(), "analysis")
	_, _ = ok.Generate(ctx, UserText("", "abcd"))
	_, _ = bad.Generate(ctx, UserText("", "ef"))

	assert.Equal(t, UsageStat{Requests: 2, Errors: 1, Bytes: 6}, usage.Snapshot()["analysis"])
}

func TestPhaseDefault(t *testing.T) {
	assert.Equal(t, "unknown", PhaseFrom(context.Background()))
}

func TestFakeClientSatisfiesSchema(t *testing.T) {
	schema := &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"errors": StringArray(""),
			"ok":     {Type: TypeBoolean},
		},
		Required: []string{"errors", "ok"},
	}
	resp, err := NewFakeClient().Generate(context.Background(), Request{Schema: schema})
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(resp.Text), &doc))
	assert.Equal(t, []any{}, doc["errors"])
	assert.Equal(t, false, doc["ok"])

	resp, err = NewFakeClient().Generate(context.Background(), UserText("", "hi"))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Text)
}

func TestSchemaJSONSchema(t *testing.T) {
	s := &Schema{
		Type:       TypeObject,
		Properties: map[string]*Schema{"errors": StringArray("bugs")},
		Order:      []string{"errors"},
		Required:   []string{"errors"},
	}
	doc := s.JSONSchema()
	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, false, doc["additionalProperties"])
	assert.Equal(t, []string{"errors"}, doc["required"])
	props := doc["properties"].(map[string]any)
	errs := props["errors"].(map[string]any)
	assert.Equal(t, "array", errs["type"])
	assert.Equal(t, map[string]any{"type": "string"}, errs["items"])
}

func TestToGenaiSchema(t *testing.T) {
	s := &Schema{
		Type:       TypeObject,
		Properties: map[string]*Schema{"errors": StringArray("bugs")},
		Order:      []string{"errors"},
		Required:   []string{"errors"},
	}
	g := toGenaiSchema(s)
	assert.Equal(t, genai.TypeObject, g.Type)
	assert.Equal(t, genai.TypeArray, g.Properties["errors"].Type)
	assert.Equal(t, genai.TypeString, g.Properties["errors"].Items.Type)
	assert.Equal(t, []string{"errors"}, g.Required)
	assert.Equal(t, []string{"errors"}, g.PropertyOrdering)
}

func TestToConfig(t *testing.T) {
	cfg := toConfig(Request{System: "tu es un tuteur"})
	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "tu es un tuteur", cfg.SystemInstruction.Parts[0].Text)
	assert.Empty(t, cfg.ResponseMIMEType)

	cfg = toConfig(Request{Schema: StringArray("")})
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	assert.Nil(t, cfg.SystemInstruction)
}

func TestToContentsDefaultsRole(t *testing.T) {
	got := toContents([]Message{{Text: "a"}, {Role: RoleModel, Text: "b"}})
	require.Len(t, got, 2)
	assert.Equal(t, "user", got[0].Role)
	assert.Equal(t, "model", got[1].Role)
}

func TestCandidateText(t *testing.T) {
	assert.Equal(t, "", candidateText(nil))
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: "a"}, {Text: "hidden", Thought: true}, {Text: "b"}}},
	}}}
	assert.Equal(t, "ab", candidateText(resp))
}

func TestGeminiWithoutKeyFailsOnUse(t *testing.T) {
	cli := NewGeminiClient(GeminiConfig{Model: "gemini-test"})
	assert.Equal(t, "Gemini:gemini-test", cli.Name())
	_, err := cli.Generate(context.Background(), UserText("", "hi"))
	assert.ErrorIs(t, err, ErrNoCredential)
}
