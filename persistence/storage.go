package persistence

import (
	"errors"

	"cleanbot/server/models"
)

// ErrNotFound is returned when a map or run report does not exist
var ErrNotFound = errors.New("not found")

// Storage defines the interface for data persistence
type Storage interface {
	SaveMap(m *models.MapTemplate) error
	LoadMap(name string) (*models.MapTemplate, error)
	SaveRun(report *models.RunReport) error
	LoadRun(id string) (*models.RunReport, error)
	// ListRuns returns the most recently finished reports first; limit <= 0 means all.
	ListRuns(limit int) ([]*models.RunReport, error)
	Close() error
}
