package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"cleanbot/server/models"
)

// JSONStore handles data persistence using a local JSON file
type JSONStore struct {
	filePath string
	mutex    sync.RWMutex
	data     *JSONData
}

// JSONData represents the structure of the JSON database
type JSONData struct {
	Maps map[string]*models.MapTemplate `json:"maps"`
	Runs map[string]*models.RunReport   `json:"runs"`
}

// NewJSONStore creates a new JSON storage manager
func NewJSONStore(filePath string) (*JSONStore, error) {
	store := &JSONStore{
		filePath: filePath,
		data: &JSONData{
			Maps: make(map[string]*models.MapTemplate),
			Runs: make(map[string]*models.RunReport),
		},
	}

	// Load existing data if file exists
	if _, err := os.Stat(filePath); err == nil {
		if err := store.loadFromFile(); err != nil {
			return nil, fmt.Errorf("failed to load JSON store: %w", err)
		}
	} else {
		if err := store.saveToFile(); err != nil {
			return nil, fmt.Errorf("failed to create JSON store file: %w", err)
		}
	}

	return store, nil
}

// loadFromFile loads data from the JSON file
func (js *JSONStore) loadFromFile() error {
	js.mutex.Lock()
	defer js.mutex.Unlock()

	file, err := os.ReadFile(js.filePath)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(file, js.data); err != nil {
		return err
	}
	if js.data.Maps == nil {
		js.data.Maps = make(map[string]*models.MapTemplate)
	}
	if js.data.Runs == nil {
		js.data.Runs = make(map[string]*models.RunReport)
	}
	return nil
}

// saveToFile saves data to the JSON file
func (js *JSONStore) saveToFile() error {
	js.mutex.Lock()
	defer js.mutex.Unlock()

	data, err := json.MarshalIndent(js.data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(js.filePath, data, 0644)
}

// SaveMap saves a map template to the store
func (js *JSONStore) SaveMap(m *models.MapTemplate) error {
	js.mutex.Lock()
	copied := *m
	js.data.Maps[m.Name] = &copied
	js.mutex.Unlock()

	return js.saveToFile()
}

// LoadMap loads a map template by name
func (js *JSONStore) LoadMap(name string) (*models.MapTemplate, error) {
	js.mutex.RLock()
	defer js.mutex.RUnlock()

	m, exists := js.data.Maps[name]
	if !exists {
		return nil, fmt.Errorf("map %q: %w", name, ErrNotFound)
	}
	copied := *m
	return &copied, nil
}

// SaveRun saves a finished run report to the store
func (js *JSONStore) SaveRun(report *models.RunReport) error {
	js.mutex.Lock()
	copied := *report
	js.data.Runs[report.ID] = &copied
	js.mutex.Unlock()

	return js.saveToFile()
}

// LoadRun loads a run report by id
func (js *JSONStore) LoadRun(id string) (*models.RunReport, error) {
	js.mutex.RLock()
	defer js.mutex.RUnlock()

	report, exists := js.data.Runs[id]
	if !exists {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	copied := *report
	return &copied, nil
}

// ListRuns returns run reports, most recently finished first
func (js *JSONStore) ListRuns(limit int) ([]*models.RunReport, error) {
	js.mutex.RLock()
	reports := make([]*models.RunReport, 0, len(js.data.Runs))
	for _, report := range js.data.Runs {
		copied := *report
		reports = append(reports, &copied)
	}
	js.mutex.RUnlock()

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].FinishedAt.After(reports[j].FinishedAt)
	})
	if limit > 0 && len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

// Close closes the store (no-op for JSON store)
func (js *JSONStore) Close() error {
	return nil
}
