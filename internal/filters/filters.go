package filters

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/appetiteclub/cocina/internal/kitchen"
	"github.com/appetiteclub/cocina/internal/kv"
	"github.com/aquamarinepk/aqm"
)

// StorageKey is the key the filter toggles are persisted under.
const StorageKey = "cocinaFilters"

// State maps each filterable category to its checked flag.
type State map[kitchen.Category]bool

// DefaultState has every category checked.
func DefaultState() State {
	s := make(State, len(kitchen.Categories))
	for _, c := range kitchen.Categories {
		s[c] = true
	}
	return s
}

// Active returns the checked categories in priority order.
func (s State) Active() []kitchen.Category {
	active := make([]kitchen.Category, 0, len(kitchen.Categories))
	for _, c := range kitchen.Categories {
		if s[c] {
			active = append(active, c)
		}
	}
	return active
}

func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Encode returns the persisted form, e.g. {"domicilio":true,"mesa":false,"recoger":true}.
func (s State) Encode() (string, error) {
	out := make(map[string]bool, len(kitchen.Categories))
	for _, c := range kitchen.Categories {
		out[c.Key()] = s[c]
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Apply overlays a persisted mapping on s. Only known categories are taken;
// categories absent from raw keep their current value.
func (s State) Apply(raw string) error {
	var saved map[string]bool
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		return err
	}
	for _, c := range kitchen.Categories {
		if v, ok := saved[c.Key()]; ok {
			s[c] = v
		}
	}
	return nil
}

// Store keeps the live filter state and writes it through to a kv.Store on
// every change.
type Store struct {
	kv     kv.Store
	logger aqm.Logger

	mu    sync.RWMutex
	state State
}

func NewStore(store kv.Store, logger aqm.Logger) *Store {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Store{
		kv:     store,
		logger: logger,
		state:  DefaultState(),
	}
}

// Start restores the persisted state before the first render.
func (s *Store) Start(ctx context.Context) error {
	_, err := s.Load(ctx)
	return err
}

func (s *Store) Stop(ctx context.Context) error {
	return nil
}

// Load reads the persisted toggles. A corrupt payload is logged and the
// defaults are kept; only store errors are returned.
func (s *Store) Load(ctx context.Context) (State, error) {
	state := DefaultState()

	raw, ok, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		return s.State(), fmt.Errorf("cannot read filter state: %w", err)
	}
	if ok {
		if err := state.Apply(raw); err != nil {
			s.logger.Error("cannot parse saved filter state", "key", StorageKey, "error", err)
			state = DefaultState()
		}
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.logger.Info("filter state loaded", "active", len(state.Active()))
	return state.Clone(), nil
}

// State returns a copy of the current toggles.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Toggle sets one category and persists the whole mapping before returning.
// When the write fails the previous value is restored.
func (s *Store) Toggle(ctx context.Context, c kitchen.Category, checked bool) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.state[c]
	s.state[c] = checked
	if err := s.saveLocked(ctx); err != nil {
		if had {
			s.state[c] = prev
		} else {
			delete(s.state, c)
		}
		return s.state.Clone(), err
	}

	s.logger.Debug("filter toggled", "category", c.Key(), "checked", checked)
	return s.state.Clone(), nil
}

// Save persists the current toggles.
func (s *Store) Save(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveLocked(ctx)
}

func (s *Store) saveLocked(ctx context.Context) error {
	raw, err := s.state.Encode()
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, StorageKey, raw); err != nil {
		return fmt.Errorf("cannot save filter state: %w", err)
	}
	return nil
}
