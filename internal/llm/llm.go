package llm

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse is returned when the model produced no candidate text.
	ErrEmptyResponse = errors.New("llm: empty response from model")
	// ErrNoCredential is returned on first use when no API key is configured.
	ErrNoCredential = errors.New("llm: no API key configured")
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one entry of the contents sent to the model.
type Message struct {
	Role Role
	Text string
}

// Request describes a single generate call.
// When Schema is set the model is asked for application/json output
// constrained to that schema.
type Request struct {
	System   string
	Messages []Message
	Schema   *Schema
}

type Response struct {
	Text  string
	Model string
}

// Client is the narrow capability the analysis and tutor services depend on.
type Client interface {
	Name() string
	Generate(ctx context.Context, req Request) (Response, error)
	Close() error
}

// UserText is a convenience for a single user message request.
func UserText(system, text string) Request {
	return Request{System: system, Messages: []Message{{Role: RoleUser, Text: text}}}
}
