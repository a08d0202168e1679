package docstore

import (
	"context"
	"sync"
)

// Hub fans change notifications out to in-process watchers. Each watcher
// runs its deliveries on its own goroutine; notifications that arrive while
// a delivery is running are coalesced into one follow-up delivery.
type Hub struct {
	mu       sync.Mutex
	watchers map[*watcher]struct{}
	closed   bool
}

type watcher struct {
	match  func(path string) bool
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (w *watcher) stop() {
	w.once.Do(func() { close(w.done) })
}

func (w *watcher) stopped() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func NewHub() *Hub {
	return &Hub{watchers: make(map[*watcher]struct{})}
}

// Watch calls deliver once right away and again after every Publish whose
// path satisfies match. Returning false from deliver ends the watch.
func (h *Hub) Watch(ctx context.Context, match func(path string) bool, deliver func() bool) Unsubscribe {
	w := &watcher{
		match:  match,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	w.notify <- struct{}{}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		w.stop()
		return func() {}
	}
	h.watchers[w] = struct{}{}
	h.mu.Unlock()

	go func() {
		defer h.remove(w)
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.done:
				return
			case <-w.notify:
				if w.stopped() || ctx.Err() != nil {
					return
				}
				if !deliver() {
					return
				}
			}
		}
	}()

	return w.stop
}

func (h *Hub) remove(w *watcher) {
	w.stop()
	h.mu.Lock()
	delete(h.watchers, w)
	h.mu.Unlock()
}

// Publish wakes every watcher interested in path.
func (h *Hub) Publish(path string) {
	path = Clean(path)
	h.mu.Lock()
	defer h.mu.Unlock()
	for w := range h.watchers {
		if w.match(path) {
			signal(w)
		}
	}
}

// Resync wakes every watcher, e.g. after a lost change feed reconnects.
func (h *Hub) Resync() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for w := range h.watchers {
		signal(w)
	}
}

func signal(w *watcher) {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// Len reports the number of active watchers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers)
}

// Close stops every watcher. Later Watch calls return immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for w := range h.watchers {
		w.stop()
	}
}

// InCollection matches document paths directly inside collection.
func InCollection(collection string) func(string) bool {
	collection = Clean(collection)
	return func(p string) bool {
		parent, _ := Split(p)
		return parent == collection
	}
}

// IsPath matches exactly one document path.
func IsPath(docPath string) func(string) bool {
	docPath = Clean(docPath)
	return func(p string) bool { return p == docPath }
}
