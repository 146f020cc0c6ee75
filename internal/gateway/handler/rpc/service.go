package rpc

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const MentorServiceName = "pymentor.v1.MentorService"

const (
	CreateSessionProcedure     = "/" + MentorServiceName + "/CreateSession"
	GetSessionProcedure        = "/" + MentorServiceName + "/GetSession"
	UpdateCodeProcedure        = "/" + MentorServiceName + "/UpdateCode"
	AnalyzeCodeProcedure       = "/" + MentorServiceName + "/AnalyzeCode"
	SendMessageProcedure       = "/" + MentorServiceName + "/SendMessage"
	ToggleRequirementProcedure = "/" + MentorServiceName + "/ToggleRequirement"
	ListRequirementsProcedure  = "/" + MentorServiceName + "/ListRequirements"
	ExportReportProcedure      = "/" + MentorServiceName + "/ExportReport"
)

// NewMentorServiceHandler mounts every MentorService procedure under one
// path prefix, in the shape mux.Handle expects.
func NewMentorServiceHandler(h *MentorHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
	mux := http.NewServeMux()
	mux.Handle(CreateSessionProcedure, connect.NewUnaryHandler(CreateSessionProcedure, h.CreateSession, opts...))
	mux.Handle(GetSessionProcedure, connect.NewUnaryHandler(GetSessionProcedure, h.GetSession, opts...))
	mux.Handle(UpdateCodeProcedure, connect.NewUnaryHandler(UpdateCodeProcedure, h.UpdateCode, opts...))
	mux.Handle(AnalyzeCodeProcedure, connect.NewUnaryHandler(AnalyzeCodeProcedure, h.AnalyzeCode, opts...))
	mux.Handle(SendMessageProcedure, connect.NewUnaryHandler(SendMessageProcedure, h.SendMessage, opts...))
	mux.Handle(ToggleRequirementProcedure, connect.NewUnaryHandler(ToggleRequirementProcedure, h.ToggleRequirement, opts...))
	mux.Handle(ListRequirementsProcedure, connect.NewUnaryHandler(ListRequirementsProcedure, h.ListRequirements, opts...))
	mux.Handle(ExportReportProcedure, connect.NewUnaryHandler(ExportReportProcedure, h.ExportReport, opts...))
	return "/" + MentorServiceName + "/", mux
}

// MentorServiceClient calls a MentorService over Connect's JSON protocol.
type MentorServiceClient struct {
	createSession     *connect.Client[CreateSessionRequest, SessionResponse]
	getSession        *connect.Client[SessionRequest, SessionResponse]
	updateCode        *connect.Client[UpdateCodeRequest, SessionResponse]
	analyzeCode       *connect.Client[SessionRequest, SessionResponse]
	sendMessage       *connect.Client[SendMessageRequest, SessionResponse]
	toggleRequirement *connect.Client[ToggleRequirementRequest, SessionResponse]
	listRequirements  *connect.Client[SessionRequest, ListRequirementsResponse]
	exportReport      *connect.Client[SessionRequest, ExportReportResponse]
}

func NewMentorServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *MentorServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
	return &MentorServiceClient{
		createSession:     connect.NewClient[CreateSessionRequest, SessionResponse](httpClient, baseURL+CreateSessionProcedure, opts...),
		getSession:        connect.NewClient[SessionRequest, SessionResponse](httpClient, baseURL+GetSessionProcedure, opts...),
		updateCode:        connect.NewClient[UpdateCodeRequest, SessionResponse](httpClient, baseURL+UpdateCodeProcedure, opts...),
		analyzeCode:       connect.NewClient[SessionRequest, SessionResponse](httpClient, baseURL+AnalyzeCodeProcedure, opts...),
		sendMessage:       connect.NewClient[SendMessageRequest, SessionResponse](httpClient, baseURL+SendMessageProcedure, opts...),
		toggleRequirement: connect.NewClient[ToggleRequirementRequest, SessionResponse](httpClient, baseURL+ToggleRequirementProcedure, opts...),
		listRequirements:  connect.NewClient[SessionRequest, ListRequirementsResponse](httpClient, baseURL+ListRequirementsProcedure, opts...),
		exportReport:      connect.NewClient[SessionRequest, ExportReportResponse](httpClient, baseURL+ExportReportProcedure, opts...),
	}
}

func unary[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], req *Req) (*Res, error) {
	resp, err := c.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *MentorServiceClient) CreateSession(ctx context.Context) (*SessionResponse, error) {
	return unary(ctx, c.createSession, &CreateSessionRequest{})
}

func (c *MentorServiceClient) GetSession(ctx context.Context, sessionID string) (*SessionResponse, error) {
	return unary(ctx, c.getSession, &SessionRequest{SessionID: sessionID})
}

func (c *MentorServiceClient) UpdateCode(ctx context.Context, sessionID, code string) (*SessionResponse, error) {
	return unary(ctx, c.updateCode, &UpdateCodeRequest{SessionID: sessionID, Code: code})
}

func (c *MentorServiceClient) AnalyzeCode(ctx context.Context, sessionID string) (*SessionResponse, error) {
	return unary(ctx, c.analyzeCode, &SessionRequest{SessionID: sessionID})
}

func (c *MentorServiceClient) SendMessage(ctx context.Context, sessionID, text string) (*SessionResponse, error) {
	return unary(ctx, c.sendMessage, &SendMessageRequest{SessionID: sessionID, Text: text})
}

func (c *MentorServiceClient) ToggleRequirement(ctx context.Context, sessionID, requirementID string) (*SessionResponse, error) {
	return unary(ctx, c.toggleRequirement, &ToggleRequirementRequest{SessionID: sessionID, RequirementID: requirementID})
}

func (c *MentorServiceClient) ListRequirements(ctx context.Context, sessionID string) (*ListRequirementsResponse, error) {
	return unary(ctx, c.listRequirements, &SessionRequest{SessionID: sessionID})
}

func (c *MentorServiceClient) ExportReport(ctx context.Context, sessionID string) (*ExportReportResponse, error) {
	return unary(ctx, c.exportReport, &SessionRequest{SessionID: sessionID})
}
