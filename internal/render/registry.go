package render

import (
	"errors"
	"sync"
)

var ErrCardNotFound = errors.New("card not found")

// Registry remembers the cards rendered for the most recent feed snapshots
// so a print request can find a card that is still on some screen. Cards of
// one snapshot are merged no matter how many screens render it.
type Registry struct {
	mu        sync.RWMutex
	retain    int
	snapshots []string
	cards     map[string]map[string]Card
}

func NewRegistry(retain int) *Registry {
	if retain < 1 {
		retain = 1
	}
	return &Registry{retain: retain, cards: make(map[string]map[string]Card)}
}

// Remember records the cards rendered for the snapshot with the given
// fingerprint, evicting the oldest snapshots beyond the limit.
func (r *Registry) Remember(fingerprint string, cards []Card) {
	r.mu.Lock()
	defer r.mu.Unlock()

	known, ok := r.cards[fingerprint]
	if !ok {
		known = make(map[string]Card, len(cards))
		r.cards[fingerprint] = known
		r.snapshots = append(r.snapshots, fingerprint)
		for len(r.snapshots) > r.retain {
			delete(r.cards, r.snapshots[0])
			r.snapshots = r.snapshots[1:]
		}
	}

	for _, c := range cards {
		known[c.ID] = c
	}
}

// Lookup finds a card by id, newest snapshot first.
func (r *Registry) Lookup(id string) (Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.snapshots) - 1; i >= 0; i-- {
		if c, ok := r.cards[r.snapshots[i]][id]; ok {
			return c, nil
		}
	}
	return Card{}, ErrCardNotFound
}
