package tracker

import (
	"sync"

	"github.com/emiliopalmerini/worktimer/internal/domain"
)

// IdentityHub fans a saved identity out to every running agent.
type IdentityHub struct {
	mu   sync.Mutex
	subs map[chan domain.Identity]struct{}
}

func NewIdentityHub() *IdentityHub {
	return &IdentityHub{subs: make(map[chan domain.Identity]struct{})}
}

// Subscribe returns a channel for one agent and a func that releases it.
func (h *IdentityHub) Subscribe() (<-chan domain.Identity, func()) {
	ch := make(chan domain.Identity, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

// Publish never blocks. An agent that has not consumed the previous identity
// gets the newer one instead.
func (h *IdentityHub) Publish(id domain.Identity) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- id:
		default:
		}
	}
}
