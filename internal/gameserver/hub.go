package gameserver

import (
	"sync"

	"github.com/cory-johannsen/beastbattle/internal/game/match"
)

const defaultSubscriberBuffer = 16

// Hub fans the snapshots of one match out to any number of subscribers.
//
// Snapshots older than the last one published are dropped, so subscribers
// see versions in increasing order. A subscriber that falls behind loses
// its oldest queued snapshot rather than blocking the match.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]chan match.Snapshot
	nextID uint64
	last   match.Snapshot
	seen   bool
	closed bool
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan match.Snapshot)}
}

// Publish delivers s to every subscriber. It never blocks.
//
// Postcondition: s is queued on every subscriber unless an equal or newer version
// has already been published or the hub is closed.
func (h *Hub) Publish(s match.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || (h.seen && s.Version <= h.last.Version) {
		return
	}
	h.last, h.seen = s, true
	for _, ch := range h.subs {
		pushLatest(ch, s)
	}
}

// Subscribe registers a subscriber. The most recent snapshot, if any, is queued
// immediately. The returned cancel func unregisters it and closes the channel.
//
// Postcondition: the channel is closed by cancel or by Close, whichever comes first.
func (h *Hub) Subscribe() (<-chan match.Snapshot, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan match.Snapshot, defaultSubscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	if h.seen {
		ch <- h.last
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Subscribers returns the number of registered subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close closes every subscriber channel. Later Publish calls are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// pushLatest queues s on ch, discarding the oldest entry when ch is full.
//
// Precondition: the caller is the only sender on ch.
func pushLatest(ch chan match.Snapshot, s match.Snapshot) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
