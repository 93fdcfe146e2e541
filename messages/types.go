package messages

import (
	"time"

	"cleanbot/server/models"
)

// MessageType defines the type of message being sent
type MessageType string

const (
	// Simulation events pushed to observers
	MessageTypeCreated    MessageType = "new_cleaner"
	MessageTypeProgress   MessageType = "is_cleaning"
	MessageTypeTerminated MessageType = "end_cleaning"

	// Observer requests
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeWelcome     MessageType = "welcome"
	MessageTypeError       MessageType = "error"
)

// Termination reasons reported in TerminatedPayload
const (
	ReasonStuck     = "stuck"
	ReasonComplete  = "complete"
	ReasonTickLimit = "tick_limit"
	ReasonStopped   = "stopped"
)

// BaseMessage is the envelope for observer requests and replies
type BaseMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// Event is a simulation notification tagged with the agent it belongs to
type Event struct {
	Type    MessageType `json:"type"`
	AgentID string      `json:"id"`
	Payload interface{} `json:"payload"`
}

// CreatedPayload is sent once when a run is constructed
type CreatedPayload struct {
	Map       [][]string      `json:"map"`
	Pos       models.Position `json:"pos"`
	StartedAt time.Time       `json:"started_at"`
}

// ProgressPayload is sent on every tick
type ProgressPayload struct {
	Pos             models.Position              `json:"pos"`
	Message         string                       `json:"message"`
	TimesCleaned    int                          `json:"times_cleaned"`
	CleanedFloorMap map[string]models.TileStatus `json:"cleaned_floor_map"`
	ElapsedTime     int64                        `json:"elapsed_time"` // milliseconds
	Productivity    int                          `json:"productivity"`
}

// TerminatedPayload is sent once when a run stops
type TerminatedPayload struct {
	Reason          string                       `json:"reason"`
	Message         string                       `json:"message"`
	CleanedFloorMap map[string]models.TileStatus `json:"cleaned_floor_map"`
	ElapsedTime     int64                        `json:"elapsed_time"` // milliseconds
	Productivity    int                          `json:"productivity"`
	Ticks           int                          `json:"ticks"`
	Cleaned         int                          `json:"cleaned"`
	Total           int                          `json:"total"`
}

// SubscribeMessage narrows (or widens) the runs an observer receives events for
type SubscribeMessage struct {
	AgentID string `json:"id"`
}

// WelcomeMessage is sent to an observer right after it connects
type WelcomeMessage struct {
	ObserverID string   `json:"observer_id"`
	ActiveRuns []string `json:"active_runs"`
}

// CreateRunRequest starts a new cleaning run from map text or a saved map
type CreateRunRequest struct {
	Map     string `json:"map"`
	MapName string `json:"map_name"`
	Seed    *int64 `json:"seed,omitempty"`
}

// CreateRunResponse acknowledges a started run
type CreateRunResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// SaveMapRequest stores a named map template
type SaveMapRequest struct {
	Map string `json:"map" binding:"required"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
