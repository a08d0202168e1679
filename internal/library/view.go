package library

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"bookcrew/internal/platform/docstore"
	"bookcrew/internal/profile"
	"bookcrew/internal/shelf"
)

var ErrViewClosed = errors.New("library view closed")

// View keeps a State current by watching the signed-in reader's documents.
// Each watch replaces only its own part of the state; the merged result is
// pushed to Updates after every change.
type View struct {
	svc *Service

	mu      sync.Mutex
	gen     uint64
	state   State
	raw     map[string]map[shelf.Status][]shelf.StoredBook
	cancel  context.CancelFunc
	unsubs  []docstore.Unsubscribe
	updates chan State
	closed  bool
}

func (s *Service) NewView() *View {
	v := &View{
		svc:     s,
		updates: make(chan State, 1),
	}
	v.resetLocked(nil)
	return v
}

// Updates delivers the latest State. Intermediate states may be skipped.
// The channel is closed by Close.
func (v *View) Updates() <-chan State {
	return v.updates
}

func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.clone()
}

// SetIdentity switches the view to id, or to the signed-out state when id
// is nil. Watches for the previous identity are torn down first.
func (v *View) SetIdentity(ctx context.Context, id *profile.Identity) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	v.gen++
	gen := v.gen
	oldCancel, oldUnsubs := v.cancel, v.unsubs
	v.cancel, v.unsubs = nil, nil
	v.resetLocked(id)
	v.publishLocked()
	v.mu.Unlock()

	stop(oldCancel, oldUnsubs)
	if id == nil {
		return nil
	}

	wctx, cancel := context.WithCancel(ctx)
	unsubs, err := v.subscribe(wctx, gen, id.UID)

	v.mu.Lock()
	if err == nil && gen == v.gen {
		v.cancel, v.unsubs = cancel, unsubs
		v.mu.Unlock()
		return nil
	}
	v.mu.Unlock()
	stop(cancel, unsubs)
	return err
}

// Close tears down all watches and closes Updates.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.gen++
	cancel, unsubs := v.cancel, v.unsubs
	v.cancel, v.unsubs = nil, nil
	close(v.updates)
	v.mu.Unlock()

	stop(cancel, unsubs)
}

func stop(cancel context.CancelFunc, unsubs []docstore.Unsubscribe) {
	for _, u := range unsubs {
		u()
	}
	if cancel != nil {
		cancel()
	}
}

func (v *View) subscribe(ctx context.Context, gen uint64, uid string) ([]docstore.Unsubscribe, error) {
	st := docstore.Scoped(v.svc.store, uid)
	var unsubs []docstore.Unsubscribe
	add := func(u docstore.Unsubscribe, err error) error {
		if err != nil {
			return err
		}
		unsubs = append(unsubs, u)
		return nil
	}

	err := add(st.WatchDocument(ctx, profile.Path(uid), func(snap docstore.DocumentSnapshot) {
		v.onProfile(gen, snap)
	}))
	if err != nil {
		return unsubs, fmt.Errorf("watch profile: %w", err)
	}

	for _, src := range v.svc.sources {
		for _, status := range shelf.Statuses {
			err := add(st.WatchCollection(ctx, src.Collection(uid, status), func(snap docstore.CollectionSnapshot) {
				v.onShelf(gen, src.Name(), status, snap)
			}))
			if err != nil {
				return unsubs, fmt.Errorf("watch %s %s shelf: %w", src.Name(), status, err)
			}
		}
	}

	err = add(st.WatchCollection(ctx, shelf.FavoritesCollection(uid), func(snap docstore.CollectionSnapshot) {
		v.onFavorites(gen, snap)
	}))
	if err != nil {
		return unsubs, fmt.Errorf("watch favorites: %w", err)
	}
	return unsubs, nil
}

func (v *View) onProfile(gen uint64, snap docstore.DocumentSnapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		return
	}
	if snap.Err != nil {
		v.snapshotFailedLocked(snap.Path, snap.Err, &v.state.ProfilePermissionDenied)
		return
	}

	v.state.ProfilePermissionDenied = false
	v.state.Profile = nil
	if snap.Exists {
		p := profile.FromDocument(snap.Doc)
		v.state.Profile = &p
	}
	v.publishLocked()
}

func (v *View) onShelf(gen uint64, source string, status shelf.Status, snap docstore.CollectionSnapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		return
	}
	if snap.Err != nil {
		v.snapshotFailedLocked(snap.Collection, snap.Err, &v.state.ShelfPermissionDenied)
		return
	}

	v.state.ShelfPermissionDenied = false
	v.raw[source][status] = shelf.FromDocuments(snap.Docs)
	v.state.Shelves[status] = v.svc.merge(v.raw, status)
	v.publishLocked()
}

func (v *View) onFavorites(gen uint64, snap docstore.CollectionSnapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		return
	}
	if snap.Err != nil {
		v.snapshotFailedLocked(snap.Collection, snap.Err, &v.state.ShelfPermissionDenied)
		return
	}

	v.state.ShelfPermissionDenied = false
	v.state.Favorites = shelf.FromDocuments(snap.Docs)
	v.publishLocked()
}

func (v *View) snapshotFailedLocked(path string, err error, denied *bool) {
	if !errors.Is(err, docstore.ErrPermissionDenied) {
		v.svc.logger.Warn("library watch failed", "path", path, "error", err)
		return
	}
	*denied = true
	v.publishLocked()
}

func (v *View) resetLocked(id *profile.Identity) {
	if id != nil {
		cp := *id
		id = &cp
	}
	v.state = emptyState(id)
	v.raw = make(map[string]map[shelf.Status][]shelf.StoredBook, len(v.svc.sources))
	for _, src := range v.svc.sources {
		v.raw[src.Name()] = make(map[shelf.Status][]shelf.StoredBook)
	}
}

func (v *View) publishLocked() {
	s := v.state.clone()
	select {
	case <-v.updates:
	default:
	}
	select {
	case v.updates <- s:
	default:
	}
}
