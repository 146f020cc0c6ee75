package rpc

import (
	"pymentor/internal/requirement"
	"pymentor/internal/session"
)

type CreateSessionRequest struct{}

type SessionRequest struct {
	SessionID string `json:"sessionId"`
}

type UpdateCodeRequest struct {
	SessionID string `json:"sessionId"`
	Code      string `json:"code"`
}

type SendMessageRequest struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
}

type ToggleRequirementRequest struct {
	SessionID     string `json:"sessionId"`
	RequirementID string `json:"requirementId"`
}

// SessionResponse carries the session state after an action. Accepted is
// false when the action was ignored because the same kind was in flight.
type SessionResponse struct {
	Accepted bool             `json:"accepted"`
	Session  session.Snapshot `json:"session"`
}

type ListRequirementsResponse struct {
	Requirements []requirement.Item   `json:"requirements"`
	Progress     requirement.Progress `json:"progress"`
}

type ExportReportResponse struct {
	SessionID string   `json:"sessionId"`
	Names     []string `json:"names"`
	URL       string   `json:"url"`
}
