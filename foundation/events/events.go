// Package events allows for the registering and receiving of events.
// Receivers can limit what they receive to a set of topics, a topic being
// the prefix of the message up to the first colon.
package events

import (
	"fmt"
	"strings"
	"sync"
)

// messageBuffer is the number of messages a receiver can fall behind before
// messages are dropped for it. Websocket sends can take long.
const messageBuffer = 100

// receiver represents a registered channel and the topics it wants.
type receiver struct {
	ch     chan string
	topics map[string]bool
}

// wants reports whether the message belongs to one of the receiver's topics.
func (r receiver) wants(msg string) bool {
	if len(r.topics) == 0 {
		return true
	}

	topic, _, found := strings.Cut(msg, ":")
	if !found {
		return false
	}

	return r.topics[strings.TrimSpace(topic)]
}

// =============================================================================

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive events.
type Events struct {
	mu sync.RWMutex
	m  map[string]receiver
}

// New constructs an events for registering and receiving events.
func New() *Events {
	return &Events{
		m: make(map[string]receiver),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, r := range evt.m {
		delete(evt.m, id)
		close(r.ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used to
// receive events. When topics are provided, only messages for those topics
// are delivered.
func (evt *Events) Acquire(id string, topics ...string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if r, exists := evt.m[id]; exists {
		return r.ch
	}

	r := receiver{
		ch:     make(chan string, messageBuffer),
		topics: make(map[string]bool, len(topics)),
	}
	for _, topic := range topics {
		r.topics[topic] = true
	}

	evt.m[id] = r
	return r.ch
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	r, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(r.ch)
	return nil
}

// Len returns the number of registered receivers.
func (evt *Events) Len() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}

// Send signals a message to every registered channel that wants it. Send
// will not block waiting for a receiver on any given channel.
func (evt *Events) Send(s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, r := range evt.m {
		if !r.wants(s) {
			continue
		}

		select {
		case r.ch <- s:
		default:
		}
	}
}
