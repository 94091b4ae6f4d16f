package store

import (
	"context"
	"sync"
)

// ChangeEvent describes a committed write.
type ChangeEvent struct {
	Path    Path
	Deleted bool
}

// Hub fans committed writes out to watchers. Each watcher gets a coalescing
// signal channel: several writes before the watcher wakes up collapse into one.
type Hub struct {
	mu       sync.Mutex
	watchers map[uint64]*watcher
	next     uint64
}

type watcher struct {
	covers func(Path) bool
	signal chan struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{watchers: make(map[uint64]*watcher)}
}

// Emit notifies every watcher whose scope covers the event path.
func (h *Hub) Emit(ev ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, w := range h.watchers {
		if !w.covers(ev.Path) {
			continue
		}
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
}

// watch registers a watcher and returns its signal channel and a cancel func.
func (h *Hub) watch(covers func(Path) bool) (<-chan struct{}, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	key := h.next
	w := &watcher{covers: covers, signal: make(chan struct{}, 1)}
	h.watchers[key] = w

	return w.signal, func() {
		h.mu.Lock()
		delete(h.watchers, key)
		h.mu.Unlock()
	}
}

// Len returns the number of active watchers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers)
}

// Querier runs queries. Both backends implement it.
type Querier interface {
	Query(ctx context.Context, q Query) ([]*Document, error)
}

// Subscribe delivers the result set of q to onSnapshot once immediately and
// again after every committed write inside q's scope. The returned function
// cancels the subscription and blocks until the delivery goroutine has exited,
// so no callback runs after it returns. It must not be called from inside a
// callback.
func Subscribe(ctx context.Context, src Querier, hub *Hub, q Query, onSnapshot func([]*Document), onError func(error)) (func(), error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	// Register before the first read so no write between the two is missed.
	signal, stopWatch := hub.watch(q.Covers)

	initial, err := src.Query(ctx, q)
	if err != nil {
		stopWatch()
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer stopWatch()

		onSnapshot(initial)
		for {
			select {
			case <-subCtx.Done():
				return
			case <-signal:
			}

			docs, err := src.Query(subCtx, q)
			if subCtx.Err() != nil {
				return
			}
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			onSnapshot(docs)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}
