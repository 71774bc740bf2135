package kb

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/transitfoundry/metro-timeline/model"
)

var (
	ErrLineExists   = errors.New("line already exists")
	ErrLineNotFound = errors.New("line not found")
	ErrLineInvalid  = errors.New("invalid line")
)

// Registry is an in-memory, thread-safe store for static line metadata.
// Definitions are registered once before simulation starts and are never
// replaced; the dynamic state lives in core.NetworkModel.
type Registry struct {
	mu    sync.RWMutex
	lines map[string]*model.LineDefinition
}

// NewRegistry constructs an empty line registry.
func NewRegistry() *Registry {
	return &Registry{
		lines: make(map[string]*model.LineDefinition),
	}
}

// AddLine registers a line definition. It returns an error if the ID is
// empty, already taken, or a station name repeats within the line.
func (r *Registry) AddLine(def *model.LineDefinition) error {
	if def == nil || def.ID == "" {
		return fmt.Errorf("%w: nil or empty line", ErrLineInvalid)
	}

	seen := make(map[string]struct{}, len(def.Stations))
	for _, s := range def.Stations {
		if s.Name == "" {
			return fmt.Errorf("%w: line %q has a station with no name", ErrLineInvalid, def.ID)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("%w: line %q repeats station %q", ErrLineInvalid, def.ID, s.Name)
		}
		seen[s.Name] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.lines[def.ID]; exists {
		return fmt.Errorf("%w: %q", ErrLineExists, def.ID)
	}
	r.lines[def.ID] = def
	return nil
}

// GetLine returns the definition for a line ID, or nil if not registered.
func (r *Registry) GetLine(id string) *model.LineDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lines[id]
}

// ListLineIDs returns all registered line IDs in ascending order so that
// callers iterating the registry stay deterministic.
func (r *Registry) ListLineIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.lines))
	for id := range r.lines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered lines.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lines)
}
