package visibility

import "sync"

// Tracker wraps a Renderer and drops writes that would not change the
// renderer's state, so re-applying the same entries emits nothing.
type Tracker struct {
	next Renderer

	mu      sync.Mutex
	applied map[string]any
}

// NewTracker wraps r.
func NewTracker(r Renderer) *Tracker {
	return &Tracker{next: r, applied: make(map[string]any)}
}

// SetLayoutProperty forwards the write unless the same value was the last
// one successfully written for that layer and property.
func (t *Tracker) SetLayoutProperty(layerID, name string, value any) error {
	key := layerID + "\x00" + name

	t.mu.Lock()
	prev, ok := t.applied[key]
	next := t.next
	t.mu.Unlock()
	if ok && prev == value {
		return nil
	}

	if err := next.SetLayoutProperty(layerID, name, value); err != nil {
		return err
	}

	t.mu.Lock()
	t.applied[key] = value
	t.mu.Unlock()
	return nil
}

// Retarget sends future writes to r, keeping what was already applied.
// Views use it to write each request's commands to that request's stream.
func (t *Tracker) Retarget(r Renderer) {
	t.mu.Lock()
	t.next = r
	t.mu.Unlock()
}
