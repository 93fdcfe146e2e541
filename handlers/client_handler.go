package handlers

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"cleanbot/server/messages"
	"cleanbot/server/network"
)

// RunLister reports the ids of the runs currently in progress
type RunLister interface {
	ActiveIDs() []string
}

// ClientHandler manages a single observer connection
type ClientHandler struct {
	id            string
	conn          *network.Connection
	runs          RunLister
	clientManager *ClientManager

	// nil until the first subscribe, meaning the observer watches every run.
	// Once set it is never reset, so unsubscribing from the last run watches none.
	subscriptions map[string]struct{}
	subMutex      sync.RWMutex
}

// HandleClientConnection serves an observer until its connection closes
func HandleClientConnection(wsConn *websocket.Conn, runs RunLister, clientManager *ClientManager) {
	conn := network.NewConnection(wsConn)
	handler := &ClientHandler{
		id:            uuid.NewString(),
		conn:          conn,
		runs:          runs,
		clientManager: clientManager,
	}

	go conn.WritePump()

	slog.Info("Observer connected", "observer", handler.id, "remote", conn.RemoteAddr())
	handler.sendWelcome()
	clientManager.AddClient(handler.id, handler)

	conn.ReadPump(handler)

	clientManager.RemoveClient(handler.id)
	slog.Info("Observer disconnected", "observer", handler.id)
}

// Watches reports whether events for agentID should reach this observer
func (h *ClientHandler) Watches(agentID string) bool {
	h.subMutex.RLock()
	defer h.subMutex.RUnlock()

	if h.subscriptions == nil {
		return true
	}
	_, ok := h.subscriptions[agentID]
	return ok
}

// HandleMessage handles incoming messages from the observer
func (h *ClientHandler) HandleMessage(conn *network.Connection, message []byte) {
	var baseMsg messages.BaseMessage
	if err := json.Unmarshal(message, &baseMsg); err != nil {
		slog.Warn("Error unmarshaling message", "observer", h.id, "error", err)
		h.sendError("BAD_MESSAGE", "Message is not valid JSON")
		return
	}

	switch baseMsg.Type {
	case messages.MessageTypeSubscribe:
		h.handleSubscribe(baseMsg.Payload, true)
	case messages.MessageTypeUnsubscribe:
		h.handleSubscribe(baseMsg.Payload, false)
	default:
		slog.Warn("Unknown message type", "observer", h.id, "type", baseMsg.Type)
		h.sendError("UNKNOWN_MESSAGE_TYPE", "Unknown message type received")
	}
}

// handleSubscribe adds or removes a run from the observer's subscriptions
func (h *ClientHandler) handleSubscribe(payload interface{}, subscribe bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("Error marshaling subscribe payload", "observer", h.id, "error", err)
		return
	}

	var subMsg messages.SubscribeMessage
	if err := json.Unmarshal(data, &subMsg); err != nil || subMsg.AgentID == "" {
		h.sendError("BAD_SUBSCRIPTION", "Subscription needs a run id")
		return
	}

	h.subMutex.Lock()
	if h.subscriptions == nil {
		h.subscriptions = make(map[string]struct{})
	}
	if subscribe {
		h.subscriptions[subMsg.AgentID] = struct{}{}
	} else {
		delete(h.subscriptions, subMsg.AgentID)
	}
	h.subMutex.Unlock()
}

func (h *ClientHandler) sendWelcome() {
	active := h.runs.ActiveIDs()
	if active == nil {
		active = []string{}
	}
	msg := messages.BaseMessage{
		Type: messages.MessageTypeWelcome,
		Payload: messages.WelcomeMessage{
			ObserverID: h.id,
			ActiveRuns: active,
		},
	}
	if err := h.conn.SendMessage(msg); err != nil {
		slog.Warn("Error sending welcome", "observer", h.id, "error", err)
	}
}

func (h *ClientHandler) sendError(code, message string) {
	errMsg := messages.BaseMessage{
		Type: messages.MessageTypeError,
		Payload: messages.ErrorMessage{
			Code:    code,
			Message: message,
		},
	}
	h.conn.SendMessage(errMsg)
}
