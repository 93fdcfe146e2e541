package models

import "time"

// MapTemplate is a named room map that runs can be started from
type MapTemplate struct {
	Name      string    `json:"name"`
	Text      string    `json:"map"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunReport is the summary stored for a finished run
type RunReport struct {
	ID           string                `json:"id"`
	Map          string                `json:"map"`
	Reason       string                `json:"reason"`
	Message      string                `json:"message"`
	Ticks        int                   `json:"ticks"`
	Cleaned      int                   `json:"cleaned"`
	Total        int                   `json:"total"`
	ElapsedMs    int64                 `json:"elapsed_time"`
	Productivity int                   `json:"productivity"`
	Ledger       map[string]TileStatus `json:"cleaned_floor_map"`
	StartedAt    time.Time             `json:"started_at"`
	FinishedAt   time.Time             `json:"finished_at"`
}

// Coverage returns the fraction of floor tiles cleaned, 1 for a room with no floor
func (r *RunReport) Coverage() float64 {
	if r.Total == 0 {
		return 1
	}
	return float64(r.Cleaned) / float64(r.Total)
}
