package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cleanbot/server/models"
	"cleanbot/server/persistence"
)

// ErrMapNotFound is returned when no map template has the requested name
var ErrMapNotFound = errors.New("map not found")

// ErrInvalidMapName is returned when a map is saved without a usable name
var ErrInvalidMapName = errors.New("map name is required")

// MapService manages the library of named room maps
type MapService struct {
	maps  map[string]*models.MapTemplate
	db    persistence.Storage
	parse models.ParseOptions
	now   func() time.Time
	mutex sync.RWMutex
}

// NewMapService creates a new map service backed by db
func NewMapService(db persistence.Storage, parse models.ParseOptions) *MapService {
	return &MapService{
		maps:  make(map[string]*models.MapTemplate),
		db:    db,
		parse: parse,
		now:   time.Now,
	}
}

// SaveMap validates text and stores it under name, replacing any previous version
func (ms *MapService) SaveMap(name, text string) (*models.MapTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidMapName
	}
	if _, err := models.ParseGrid(text, ms.parse); err != nil {
		return nil, err
	}

	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	now := ms.now()
	m := &models.MapTemplate{
		Name:      name,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, err := ms.loadLocked(name); err == nil {
		m.CreatedAt = existing.CreatedAt
	}

	if err := ms.db.SaveMap(m); err != nil {
		return nil, err
	}
	ms.maps[name] = m
	return m, nil
}

// GetMap returns the template stored under name
func (ms *MapService) GetMap(name string) (*models.MapTemplate, error) {
	ms.mutex.RLock()
	m, ok := ms.maps[name]
	ms.mutex.RUnlock()
	if ok {
		return m, nil
	}

	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	return ms.loadLocked(name)
}

func (ms *MapService) loadLocked(name string) (*models.MapTemplate, error) {
	if m, ok := ms.maps[name]; ok {
		return m, nil
	}

	m, err := ms.db.LoadMap(name)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMapNotFound, name)
		}
		return nil, fmt.Errorf("failed to load map %s: %w", name, err)
	}
	ms.maps[name] = m
	return m, nil
}
