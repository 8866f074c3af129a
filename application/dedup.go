package application

import (
	"sync"

	"github.com/meetscribe/scribe-go/domain/call"
)

// waiter receives the first caller's result for a shared key. The done
// channel closes after resp is set.
type waiter struct {
	done chan struct{}
	resp call.Response
}

// registry tracks in-flight calls by cache key so duplicates can await
// the first caller's result instead of dispatching again.
type registry struct {
	mu      sync.Mutex
	pending map[string]*waiter
}

func newRegistry() *registry {
	return &registry{pending: make(map[string]*waiter)}
}

// register claims the key. The second return reports whether this caller
// is the first; duplicates get the existing waiter to block on.
func (r *registry) register(key string) (*waiter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w, ok := r.pending[key]; ok {
		return w, false
	}
	w := &waiter{done: make(chan struct{})}
	r.pending[key] = w
	return w, true
}

// broadcast publishes the first caller's result to every duplicate
// blocked on the key. Safe to call for a key that was never registered.
func (r *registry) broadcast(key string, resp call.Response) {
	r.mu.Lock()
	w, ok := r.pending[key]
	r.mu.Unlock()
	if !ok {
		return
	}

	w.resp = resp
	close(w.done)
}

// unregister releases the key. Waiters already holding the waiter keep
// their reference; new calls for the key start fresh.
func (r *registry) unregister(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, key)
}

// len reports the number of in-flight keys.
func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
