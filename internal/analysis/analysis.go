package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"pymentor/internal/llm"
	"pymentor/internal/requirement"
)

// FailureMessage is the single error reported when an analysis could not be obtained.
const FailureMessage = "L'analyse du code a échoué. Réessaie dans un instant."

// Result is the structured verdict of one analysis. It replaces any previous
// result wholesale.
type Result struct {
	Errors                  []string `json:"errors"`
	Suggestions             []string `json:"suggestions"`
	ConceptsUsed            []string `json:"conceptsUsed"`
	CompletedRequirementIDs []string `json:"completedRequirementIds"`

	failed bool
}

// Degraded is the well-formed result returned when an analysis fails.
func Degraded() Result {
	return Result{
		Errors:                  []string{FailureMessage},
		Suggestions:             []string{},
		ConceptsUsed:            []string{},
		CompletedRequirementIDs: []string{},
		failed:                  true,
	}
}

// Failed reports whether r was synthesized after a failed analysis.
func (r Result) Failed() bool { return r.failed }

// Evidence exposes the fields used to recompute requirement flags.
func (r Result) Evidence() requirement.Evidence {
	return requirement.Evidence{CompletedIDs: r.CompletedRequirementIDs, Concepts: r.ConceptsUsed}
}

// Clone returns a deep copy with no nil slices.
func (r Result) Clone() Result {
	return Result{
		Errors:                  cloneStrings(r.Errors),
		Suggestions:             cloneStrings(r.Suggestions),
		ConceptsUsed:            cloneStrings(r.ConceptsUsed),
		CompletedRequirementIDs: cloneStrings(r.CompletedRequirementIDs),
		failed:                  r.failed,
	}
}

func cloneStrings(in []string) []string {
	return append(make([]string, 0, len(in)), in...)
}

// Service analyzes student code against the requirement checklist.
// Implementations never fail: problems degrade into the result.
type Service interface {
	Analyze(ctx context.Context, code string, reqs []requirement.Item) Result
}

// Client implements Service on top of an llm.Client.
type Client struct {
	llm    llm.Client
	mode   RenderMode
	log    *zap.Logger
	schema *contract
}

type Option func(*Client)

func WithRenderMode(m RenderMode) Option { return func(c *Client) { c.mode = m } }

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func NewClient(cli llm.Client, opts ...Option) *Client {
	c := &Client{llm: cli, mode: RenderFlat, log: zap.NewNop(), schema: defaultContract}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Analyze issues one model call and returns its parsed result, or Degraded.
func (c *Client) Analyze(ctx context.Context, code string, reqs []requirement.Item) Result {
	prompt, err := BuildPrompt(code, reqs, c.mode)
	if err != nil {
		c.log.Warn("analysis prompt failed", zap.Error(err))
		return Degraded()
	}
	req := llm.UserText("", prompt)
	req.Schema = ResponseSchema()
	resp, err := c.llm.Generate(llm.WithPhase(ctx, "analysis"), req)
	if err != nil {
		c.log.Warn("analysis request failed", zap.String("kind", "transport"), zap.Error(err))
		return Degraded()
	}
	res, err := c.schema.parse(resp.Text)
	if err != nil {
		c.log.Warn("analysis response rejected", zap.String("kind", "shape"), zap.Error(err))
		return Degraded()
	}
	return res
}

// Parse validates raw model output against the response contract.
func Parse(raw string) (Result, error) {
	return defaultContract.parse(raw)
}

func (k *contract) parse(raw string) (Result, error) {
	raw = stripFence(raw)
	if err := k.validate(raw); err != nil {
		return Result{}, err
	}
	var r Result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Result{}, fmt.Errorf("analysis: decode result: %w", err)
	}
	return r.Clone(), nil
}

// stripFence removes a surrounding ```json fence some models add despite
// the JSON MIME type.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
