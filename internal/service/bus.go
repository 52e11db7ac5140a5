package service

import "sync"

// Event reports a change to a served resource.
type Event struct {
	Resource string `json:"resource" doc:"Resource kind" example:"tiles"`
	Action   string `json:"action" doc:"What happened" example:"updated"`
	ID       string `json:"id" doc:"File name" example:"nyc-rollup.pmtiles"`
}

// subscriptionBuffer is how many events a subscriber may fall behind
// before it starts missing them.
const subscriptionBuffer = 16

// EventBus fans events out to subscribers. Slow subscribers miss events
// rather than block publishers.
type EventBus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// Subscription is one subscriber. C is closed by Close.
type Subscription struct {
	C <-chan Event

	ch    chan Event
	match func(Event) bool
	bus   *EventBus
	once  sync.Once
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[*Subscription]struct{})}
}

// Publish delivers e to every matching subscriber with room for it.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		if sub.match != nil && !sub.match(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
		}
	}
}

// Subscribe registers a subscriber for the events match accepts, or all
// events when match is nil.
func (b *EventBus) Subscribe(match func(Event) bool) *Subscription {
	ch := make(chan Event, subscriptionBuffer)
	sub := &Subscription{C: ch, ch: ch, match: match, bus: b}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		close(s.ch)
		s.bus.mu.Unlock()
	})
}

// Len returns the number of subscribers.
func (b *EventBus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// OfResource matches the events of one resource kind.
func OfResource(resource string) func(Event) bool {
	return func(e Event) bool { return e.Resource == resource }
}
