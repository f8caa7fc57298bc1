package gamemath

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ModelsFile is the file, inside the data dir, that holds registered crash
// models.
const ModelsFile = "crash_models.json"

// Store is the set of crash models a server can fly with, keyed by
// model_id. Only models that pass Validate get in, whether registered at
// runtime or read back from disk, so anything Resolve hands to a crash
// generator can be drawn from.
type Store struct {
	mu      sync.RWMutex
	models  map[string]*GameMath
	dataDir string
}

func NewStore(dataDir string) *Store {
	if dataDir == "" {
		dataDir = "data"
	}
	s := &Store{
		models:  make(map[string]*GameMath),
		dataDir: dataDir,
	}
	s.load()
	return s
}

func (s *Store) path() string {
	return filepath.Join(s.dataDir, ModelsFile)
}

type storedModel struct {
	ModelID string    `json:"model_id"`
	Math    *GameMath `json:"math"`
}

// load reads the models file. An entry whose key disagrees with its own
// model_id, or whose tiers cannot be drawn from, is skipped.
func (s *Store) load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path())
	if err != nil {
		return
	}
	var list []storedModel
	if err := json.Unmarshal(data, &list); err != nil {
		return
	}
	for _, e := range list {
		if e.Math.Validate() != nil || e.ModelID != e.Math.ModelID {
			continue
		}
		s.models[e.ModelID] = e.Math
	}
}

// saveLocked writes every model, ordered by model_id. Caller must hold s.mu.
func (s *Store) saveLocked() error {
	list := make([]storedModel, 0, len(s.models))
	for _, id := range s.idsLocked() {
		list = append(list, storedModel{ModelID: id, Math: s.models[id]})
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path(), data, 0644)
}

func (s *Store) idsLocked() []string {
	ids := make([]string, 0, len(s.models))
	for id := range s.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Register validates a crash model and stores it under its model_id,
// replacing any model with the same id.
func (s *Store) Register(m *GameMath) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("register crash model: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[m.ModelID] = m
	return s.saveLocked()
}

// Get returns the model for modelID, or nil.
func (s *Store) Get(modelID string) *GameMath {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.models[modelID]
}

// Models lists the registered model ids in order.
func (s *Store) Models() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idsLocked()
}

// Resolve picks the model a server runs with. An empty id or the default
// id falls back to the built-in tiering, which is registered on first use;
// any other id must already be registered.
func (s *Store) Resolve(modelID string) (*GameMath, error) {
	if m := s.Get(modelID); m != nil {
		return m, nil
	}
	def := Default()
	if modelID != "" && modelID != def.ModelID {
		return nil, fmt.Errorf("crash model %q not found (registered: %s)", modelID, strings.Join(s.Models(), ", "))
	}
	if err := s.Register(def); err != nil {
		return nil, err
	}
	return def, nil
}
