package server

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	ErrRegistryFull  = errors.New("registry full")
	ErrDuplicatePeer = errors.New("peer already registered")
)

// Registry tracks connected peers by handle in insertion order.
// It is mutated by the event loop only; the lock lets other goroutines observe it.
type Registry struct {
	mu       sync.RWMutex
	peers    map[int]*Peer
	order    []int
	capacity int
	logger   zerolog.Logger

	// Ordered snapshot reused until the next mutation
	cached atomic.Pointer[[]*Peer]
}

// NewRegistry creates a registry that holds at most capacity peers.
func NewRegistry(capacity int, logger zerolog.Logger) *Registry {
	return &Registry{
		peers:    make(map[int]*Peer, capacity),
		order:    make([]int, 0, capacity),
		capacity: capacity,
		logger:   logger,
	}
}

// Add registers p under its handle.
func (r *Registry) Add(p *Peer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.peers[p.fd]; exists {
		return fmt.Errorf("%w: fd %d", ErrDuplicatePeer, p.fd)
	}
	if len(r.peers) >= r.capacity {
		return fmt.Errorf("%w: %d/%d", ErrRegistryFull, len(r.peers), r.capacity)
	}

	r.peers[p.fd] = p
	r.order = append(r.order, p.fd)
	r.cached.Store(nil)

	r.logger.Debug().
		Int("fd", p.fd).
		Str("remote", p.display).
		Int("count", len(r.peers)).
		Msg("peer registered")
	return nil
}

// Remove deregisters the peer with handle fd.
func (r *Registry) Remove(fd int) (*Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.peers[fd]
	if !exists {
		return nil, false
	}
	delete(r.peers, fd)
	for i, v := range r.order {
		if v == fd {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.cached.Store(nil)

	r.logger.Debug().
		Int("fd", fd).
		Str("remote", p.display).
		Int("count", len(r.peers)).
		Msg("peer deregistered")
	return p, true
}

// Get retrieves a peer by handle.
func (r *Registry) Get(fd int) (*Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.peers[fd]
	return p, exists
}

// List returns the peers in insertion order. The slice must not be modified.
func (r *Registry) List() []*Peer {
	if cached := r.cached.Load(); cached != nil {
		return *cached
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	peers := make([]*Peer, 0, len(r.order))
	for _, fd := range r.order {
		peers = append(peers, r.peers[fd])
	}
	r.cached.Store(&peers)
	return peers
}

// Displays returns the "ip:port" of every peer in insertion order.
func (r *Registry) Displays() []string {
	peers := r.List()
	out := make([]string, len(peers))
	for i, p := range peers {
		out[i] = p.display
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

func (r *Registry) Capacity() int { return r.capacity }

// Full reports whether no further peer can be added.
func (r *Registry) Full() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers) >= r.capacity
}

// Clear removes every peer and returns them in insertion order.
func (r *Registry) Clear() []*Peer {
	r.mu.Lock()
	defer r.mu.Unlock()

	peers := make([]*Peer, 0, len(r.order))
	for _, fd := range r.order {
		peers = append(peers, r.peers[fd])
	}
	clear(r.peers)
	r.order = r.order[:0]
	r.cached.Store(nil)
	return peers
}
