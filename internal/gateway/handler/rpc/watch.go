package rpc

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pymentor/internal/session"
)

// WatchHandler streams session state over a websocket and accepts the same
// actions as the RPC surface.
type WatchHandler struct {
	sessions *session.Registry
	log      *zap.Logger
}

func NewWatchHandler(sessions *session.Registry, logger *zap.Logger) *WatchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WatchHandler{sessions: sessions, log: logger.Named("watch")}
}

const (
	watchWSWriteWait = 10 * time.Second
	watchWSPongWait  = 60 * time.Second
	watchWSPingEvery = (watchWSPongWait * 9) / 10
)

var watchWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type watchWSInbound struct {
	Type          string `json:"type"`
	SessionID     string `json:"sessionId,omitempty"`
	Code          string `json:"code,omitempty"`
	Text          string `json:"text,omitempty"`
	RequirementID string `json:"requirementId,omitempty"`
}

type watchWSOutbound struct {
	Type      string            `json:"type"`
	SessionID string            `json:"sessionId,omitempty"`
	Action    string            `json:"action,omitempty"`
	Accepted  bool              `json:"accepted,omitempty"`
	Session   *session.Snapshot `json:"session,omitempty"`
	Code      string            `json:"code,omitempty"`
	Message   string            `json:"message,omitempty"`
}

func (h *WatchHandler) HandleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	ctrl, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := watchWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(watchWSPongWait)); err != nil {
		h.log.Warn("set read deadline failed", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(watchWSPongWait))
	})

	writeCh := make(chan watchWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(watchWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(watchWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(watchWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	subCh := ctrl.Subscribe(ctx)
	initial := ctrl.Snapshot()
	pushWatchWS(writeCh, watchWSOutbound{Type: "subscribed", SessionID: sessionID, Session: &initial})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-subCh:
				if !ok {
					return
				}
				pushWatchWS(writeCh, watchWSOutbound{Type: "state", SessionID: sessionID, Session: &snap})
			}
		}
	}()

	for {
		var in watchWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		msgType := strings.ToLower(strings.TrimSpace(in.Type))
		if msgType == "" {
			pushWatchWS(writeCh, watchWSOutbound{Type: "error", Code: "invalid_argument", Message: "type is required"})
			continue
		}
		if v := strings.TrimSpace(in.SessionID); v != "" && v != sessionID {
			pushWatchWS(writeCh, watchWSOutbound{Type: "error", Code: "invalid_argument", Message: "sessionId mismatch"})
			continue
		}

		if msgType == "ping" {
			pushWatchWS(writeCh, watchWSOutbound{Type: "pong"})
			continue
		}
		// Resolve through the registry on every action so the session's
		// idle timer is refreshed and a pinned controller is reinstated.
		ctrl, err := h.sessions.Get(ctx, sessionID)
		if err != nil {
			pushWatchWS(writeCh, watchWSOutbound{Type: "error", Code: errorCode(err), Message: err.Error()})
			continue
		}

		switch msgType {
		case "update_code":
			ctrl.SetCode(in.Code)
			h.persist(ctx, sessionID)
			pushWatchWS(writeCh, watchWSOutbound{Type: "ack", SessionID: sessionID, Action: msgType, Accepted: true})
		case "toggle":
			_, err := ctrl.ToggleRequirement(strings.TrimSpace(in.RequirementID))
			if err != nil {
				pushWatchWS(writeCh, watchWSOutbound{Type: "error", Code: errorCode(err), Message: err.Error()})
				continue
			}
			h.persist(ctx, sessionID)
			pushWatchWS(writeCh, watchWSOutbound{Type: "ack", SessionID: sessionID, Action: msgType, Accepted: true})
		case "analyze":
			// Model calls run off the read loop so a second request can be
			// rejected while the first is in flight.
			go h.runAction(ctx, writeCh, sessionID, msgType, func() error {
				_, err := ctrl.Analyze(ctx)
				return err
			})
		case "send":
			text := in.Text
			go h.runAction(ctx, writeCh, sessionID, msgType, func() error {
				_, err := ctrl.SendMessage(ctx, text)
				return err
			})
		default:
			pushWatchWS(writeCh, watchWSOutbound{Type: "error", Code: "invalid_argument", Message: "unsupported type: " + msgType})
		}
	}
}

func (h *WatchHandler) runAction(ctx context.Context, writeCh chan watchWSOutbound, sessionID, action string, run func() error) {
	err := run()
	switch {
	case errors.Is(err, session.ErrBusy):
		pushWatchWS(writeCh, watchWSOutbound{Type: "ack", SessionID: sessionID, Action: action, Accepted: false})
	case err != nil:
		pushWatchWS(writeCh, watchWSOutbound{Type: "error", Code: errorCode(err), Message: err.Error()})
	default:
		h.persist(ctx, sessionID)
		pushWatchWS(writeCh, watchWSOutbound{Type: "ack", SessionID: sessionID, Action: action, Accepted: true})
	}
}

func (h *WatchHandler) persist(ctx context.Context, id string) {
	if err := h.sessions.Persist(context.WithoutCancel(ctx), id); err != nil {
		h.log.Warn("snapshot save failed", zap.String("session", id), zap.Error(err))
	}
}

func errorCode(err error) string {
	return connect.CodeOf(toConnectError(err)).String()
}

func pushWatchWS(writeCh chan watchWSOutbound, out watchWSOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
