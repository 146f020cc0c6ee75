package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"pymentor/internal/llm"
)

var ErrShape = errors.New("analysis: response does not match schema")

// ResponseSchema declares every field of Result as a required string array.
func ResponseSchema() *llm.Schema {
	return &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"errors":                  llm.StringArray("Syntax errors or logic bugs found in the code."),
			"suggestions":             llm.StringArray("Improvements or missing requirements."),
			"conceptsUsed":            llm.StringArray("Python concepts identified (e.g. loops, dicts, functions)."),
			"completedRequirementIds": llm.StringArray("Ids of the requirements the code already satisfies."),
		},
		Order:    []string{"errors", "suggestions", "conceptsUsed", "completedRequirementIds"},
		Required: []string{"errors", "suggestions", "conceptsUsed", "completedRequirementIds"},
	}
}

type contract struct {
	schema *gojsonschema.Schema
}

var defaultContract = mustContract(ResponseSchema())

func mustContract(s *llm.Schema) *contract {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(s.JSONSchema()))
	if err != nil {
		panic(fmt.Sprintf("analysis: compile response schema: %v", err))
	}
	return &contract{schema: compiled}
}

func (k *contract) validate(raw string) error {
	res, err := k.schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrShape, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrShape, strings.Join(msgs, "; "))
}
