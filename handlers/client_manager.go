package handlers

import (
	"log/slog"
	"sync"

	"cleanbot/server/messages"
)

// ClientManager manages connected observers and fans simulation events out to them
type ClientManager struct {
	clients map[string]*ClientHandler // Map ObserverID to ClientHandler
	mutex   sync.RWMutex
}

// NewClientManager creates a new client manager
func NewClientManager() *ClientManager {
	return &ClientManager{
		clients: make(map[string]*ClientHandler),
	}
}

// AddClient adds a client to the manager
func (cm *ClientManager) AddClient(observerID string, handler *ClientHandler) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.clients[observerID] = handler
}

// RemoveClient removes a client from the manager
func (cm *ClientManager) RemoveClient(observerID string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	delete(cm.clients, observerID)
}

// Count returns the number of connected observers
func (cm *ClientManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.clients)
}

// Publish delivers a simulation event to every observer watching its run.
// It never blocks on a slow observer.
func (cm *ClientManager) Publish(event messages.Event) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	for id, client := range cm.clients {
		if !client.Watches(event.AgentID) {
			continue
		}
		if err := client.conn.SendMessage(event); err != nil {
			slog.Warn("Error sending event to observer", "observer", id, "run", event.AgentID, "error", err)
		}
	}
}
