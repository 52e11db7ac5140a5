package service

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joeblew999/nyc-dob-map/internal/detail"
	"github.com/joeblew999/nyc-dob-map/internal/metrics"
	"github.com/joeblew999/nyc-dob-map/internal/style"
	"github.com/joeblew999/nyc-dob-map/internal/visibility"
)

// MapRenderer is the map a view drives.
type MapRenderer interface {
	visibility.Renderer
	AddLayer(spec style.LayerSpec, before string) error
}

// View is the server-side state of one open map page.
type View struct {
	ID        string
	Variant   string
	CreatedAt time.Time

	layers    []style.LayerSpec
	before    string
	formatter *detail.Formatter
	metrics   *metrics.Metrics

	mu       sync.Mutex
	seen     time.Time
	streams  int
	ready    bool
	entries  visibility.Entries
	tracker  *visibility.Tracker
	selected *detail.Panel
}

// Layers returns the view's layer list.
func (v *View) Layers() []style.LayerSpec { return v.layers }

// IsReady reports whether the map has loaded and the layers were added.
func (v *View) IsReady() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ready
}

// Entries returns a copy of the current visibility state. Before the map
// is ready it is the state the layers will start in.
func (v *View) Entries() visibility.Entries {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.ready {
		return visibility.Initial(v.layers)
	}
	return append(visibility.Entries(nil), v.entries...)
}

// Ready adds every layer to r and applies the initial visibility. It runs
// once per view.
func (v *View) Ready(r MapRenderer) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ready {
		return ErrAlreadyReady
	}

	var errs []error
	for _, l := range v.layers {
		if err := r.AddLayer(l, v.before); err != nil {
			errs = append(errs, eris.Wrapf(err, "add layer %s", l.ID))
		}
	}
	v.tracker = visibility.NewTracker(r)
	v.entries = visibility.Initial(v.layers)
	if err := visibility.Apply(v.tracker, v.entries); err != nil {
		errs = append(errs, err)
	}
	v.ready = true
	return errors.Join(errs...)
}

// Toggle flips the visibility of layer id and applies the new state
// through r. The state is committed even when r fails; the next apply
// retries the writes that did not land.
func (v *View) Toggle(r visibility.Renderer, id string) (visibility.Entries, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.ready {
		return nil, ErrNotReady
	}
	if _, ok := v.entries.Lookup(id); !ok {
		return nil, eris.Wrapf(ErrLayerNotFound, "%q", id)
	}

	next := visibility.Toggle(v.entries, id)
	v.tracker.Retarget(r)
	err := visibility.Apply(v.tracker, next)
	v.entries = next
	v.metrics.Toggle(v.Variant)
	return append(visibility.Entries(nil), next...), err
}

// Select formats the properties of a clicked feature. Empty input or JSON
// null clears the selection and returns nil.
func (v *View) Select(props []byte) (*detail.Panel, error) {
	props = bytes.TrimSpace(props)
	if len(props) == 0 || bytes.Equal(props, []byte("null")) {
		v.Clear()
		return nil, nil
	}
	feat, err := detail.ParseFeatureJSON(props)
	if err != nil {
		return nil, err
	}
	panel := v.formatter.Format(feat)

	v.mu.Lock()
	v.selected = &panel
	v.mu.Unlock()
	v.metrics.Selection(true)
	return &panel, nil
}

// Clear drops the selection.
func (v *View) Clear() {
	v.mu.Lock()
	v.selected = nil
	v.mu.Unlock()
	v.metrics.Selection(false)
}

// Selected returns the current selection, nil when nothing is selected.
func (v *View) Selected() *detail.Panel {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected
}

func (v *View) touch(now time.Time) {
	v.mu.Lock()
	v.seen = now
	v.mu.Unlock()
}

// idle reports whether no event stream is connected and nothing has used
// the view for ttl.
func (v *View) idle(now time.Time, ttl time.Duration) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.streams == 0 && now.Sub(v.seen) >= ttl
}

// DefaultViewTTL is how long a view is kept without a connected event
// stream or a request.
const DefaultViewTTL = 2 * time.Minute

// ViewService is the registry of open views. Views whose page never
// connects its event stream, or whose stream dropped and did not come
// back, are closed by Sweep once idle for the TTL.
type ViewService struct {
	maps    *MapService
	metrics *metrics.Metrics
	ttl     time.Duration
	now     func() time.Time

	mu    sync.RWMutex
	views map[string]*View
}

// NewViewService creates a view registry. m may be nil. The idle TTL is
// server.view_ttl, DefaultViewTTL when unset.
func NewViewService(maps *MapService, m *metrics.Metrics) *ViewService {
	ttl := DefaultViewTTL
	if cfg := maps.Config(); cfg != nil && cfg.Server.ViewTTL > 0 {
		ttl = cfg.Server.ViewTTL
	}
	return &ViewService{
		maps:    maps,
		metrics: m,
		ttl:     ttl,
		now:     time.Now,
		views:   make(map[string]*View),
	}
}

// TTL returns the idle time after which a view is swept.
func (s *ViewService) TTL() time.Duration { return s.ttl }

// Open creates a view of a variant; "" opens the default variant.
func (s *ViewService) Open(variant string) (*View, error) {
	v, err := s.maps.Variant(variant)
	if err != nil {
		return nil, err
	}
	layers, err := s.maps.Layers(v.Name)
	if err != nil {
		return nil, err
	}

	now := s.now()
	view := &View{
		ID:        uuid.NewString(),
		Variant:   v.Name,
		CreatedAt: now,
		seen:      now,
		layers:    layers,
		before:    s.maps.Before(),
		formatter: s.maps.Formatter(),
		metrics:   s.metrics,
	}

	s.mu.Lock()
	s.views[view.ID] = view
	s.mu.Unlock()
	s.metrics.ViewOpened(v.Name)
	return view, nil
}

// Get returns an open view and marks it as used.
func (s *ViewService) Get(id string) (*View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view, ok := s.views[id]
	if !ok {
		return nil, eris.Wrapf(ErrViewNotFound, "%q", id)
	}
	view.touch(s.now())
	return view, nil
}

// Attach marks an event stream of the view as connected. The view is not
// swept until detach is called, and then only after the TTL, so a
// reconnecting stream finds it again.
func (s *ViewService) Attach(id string) (view *View, detach func(), err error) {
	view, err = s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	view.mu.Lock()
	view.streams++
	view.mu.Unlock()

	var once sync.Once
	return view, func() {
		once.Do(func() {
			view.mu.Lock()
			view.streams--
			view.seen = s.now()
			view.mu.Unlock()
		})
	}, nil
}

// Sweep closes the idle views and returns how many it closed.
func (s *ViewService) Sweep() int {
	now := s.now()
	s.mu.Lock()
	closed := 0
	for id, view := range s.views {
		if view.idle(now, s.ttl) {
			delete(s.views, id)
			closed++
		}
	}
	s.mu.Unlock()
	for i := 0; i < closed; i++ {
		s.metrics.ViewClosed()
	}
	return closed
}

// Run sweeps every interval until ctx is done. A non-positive interval
// means half the TTL.
func (s *ViewService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.ttl / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				zap.L().Debug("idle views closed", zap.Int("closed", n), zap.Int("open", s.Len()))
			}
		}
	}
}

// Close removes a view.
func (s *ViewService) Close(id string) error {
	s.mu.Lock()
	_, ok := s.views[id]
	delete(s.views, id)
	s.mu.Unlock()
	if !ok {
		return eris.Wrapf(ErrViewNotFound, "%q", id)
	}
	s.metrics.ViewClosed()
	return nil
}

// Len returns the number of open views.
func (s *ViewService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.views)
}

// IDs lists the open views, oldest first.
func (s *ViewService) IDs() []string {
	s.mu.RLock()
	views := make([]*View, 0, len(s.views))
	for _, v := range s.views {
		views = append(views, v)
	}
	s.mu.RUnlock()
	sort.Slice(views, func(i, j int) bool { return views[i].CreatedAt.Before(views[j].CreatedAt) })
	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	return ids
}
