package rpc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"go.uber.org/zap"

	"pymentor/internal/report"
	"pymentor/internal/requirement"
	"pymentor/internal/session"
)

// MentorHandler serves the session actions over Connect.
type MentorHandler struct {
	sessions *session.Registry
	exporter *report.Exporter
	log      *zap.Logger
}

func NewMentorHandler(sessions *session.Registry, exporter *report.Exporter, logger *zap.Logger) *MentorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MentorHandler{sessions: sessions, exporter: exporter, log: logger.Named("rpc")}
}

func (h *MentorHandler) CreateSession(ctx context.Context, _ *connect.Request[CreateSessionRequest]) (*connect.Response[SessionResponse], error) {
	c, err := h.sessions.Create(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&SessionResponse{Accepted: true, Session: c.Snapshot()}), nil
}

func (h *MentorHandler) GetSession(ctx context.Context, req *connect.Request[SessionRequest]) (*connect.Response[SessionResponse], error) {
	c, err := h.lookup(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&SessionResponse{Accepted: true, Session: c.Snapshot()}), nil
}

func (h *MentorHandler) UpdateCode(ctx context.Context, req *connect.Request[UpdateCodeRequest]) (*connect.Response[SessionResponse], error) {
	c, err := h.lookup(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	snap := c.SetCode(req.Msg.Code)
	h.persist(ctx, c.ID())
	return connect.NewResponse(&SessionResponse{Accepted: true, Session: snap}), nil
}

// AnalyzeCode blocks until the analysis settles. A request made while one
// is outstanding returns at once with Accepted false.
func (h *MentorHandler) AnalyzeCode(ctx context.Context, req *connect.Request[SessionRequest]) (*connect.Response[SessionResponse], error) {
	c, err := h.lookup(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	snap, err := c.Analyze(ctx)
	return h.settle(ctx, c.ID(), snap, err)
}

func (h *MentorHandler) SendMessage(ctx context.Context, req *connect.Request[SendMessageRequest]) (*connect.Response[SessionResponse], error) {
	c, err := h.lookup(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	snap, err := c.SendMessage(ctx, req.Msg.Text)
	return h.settle(ctx, c.ID(), snap, err)
}

func (h *MentorHandler) ToggleRequirement(ctx context.Context, req *connect.Request[ToggleRequirementRequest]) (*connect.Response[SessionResponse], error) {
	reqID := strings.TrimSpace(req.Msg.RequirementID)
	if reqID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("requirement_id is required"))
	}
	c, err := h.lookup(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	snap, err := c.ToggleRequirement(reqID)
	return h.settle(ctx, c.ID(), snap, err)
}

func (h *MentorHandler) ListRequirements(ctx context.Context, req *connect.Request[SessionRequest]) (*connect.Response[ListRequirementsResponse], error) {
	c, err := h.lookup(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	snap := c.Snapshot()
	return connect.NewResponse(&ListRequirementsResponse{
		Requirements: snap.Requirements,
		Progress:     snap.Progress,
	}), nil
}

func (h *MentorHandler) ExportReport(ctx context.Context, req *connect.Request[SessionRequest]) (*connect.Response[ExportReportResponse], error) {
	if h.exporter == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, fmt.Errorf("report export is not configured"))
	}
	c, err := h.lookup(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	out, err := h.exporter.Export(ctx, c.Snapshot())
	if err != nil {
		h.log.Error("report export failed", zap.String("session", c.ID()), zap.Error(err))
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewResponse(&ExportReportResponse{
		SessionID: out.SessionID,
		Names:     out.Names,
		URL:       out.URL,
	}), nil
}

func (h *MentorHandler) lookup(ctx context.Context, sessionID string) (*session.Controller, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("session_id is required"))
	}
	c, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return c, nil
}

// settle maps an action outcome to a response. Busy is not an error.
func (h *MentorHandler) settle(ctx context.Context, id string, snap session.Snapshot, err error) (*connect.Response[SessionResponse], error) {
	if errors.Is(err, session.ErrBusy) {
		return connect.NewResponse(&SessionResponse{Accepted: false, Session: snap}), nil
	}
	if err != nil {
		return nil, toConnectError(err)
	}
	h.persist(ctx, id)
	return connect.NewResponse(&SessionResponse{Accepted: true, Session: snap}), nil
}

func (h *MentorHandler) persist(ctx context.Context, id string) {
	if err := h.sessions.Persist(context.WithoutCancel(ctx), id); err != nil {
		h.log.Warn("snapshot save failed", zap.String("session", id), zap.Error(err))
	}
}

func toConnectError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, requirement.ErrUnknownRequirement):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, session.ErrEmptyMessage):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, session.ErrToggleDisabled):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
