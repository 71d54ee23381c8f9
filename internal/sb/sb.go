// SPDX-License-Identifier: AGPL-3.0-or-later
// sbn-go - Software Bus Network bridge for cross-processor message forwarding
// Copyright (C) 2026 sbn-go contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// Package sb models the local Software Bus as a seam this module bridges
// over the network, not as something it owns. The SB itself, its table
// loaders, and its ground-command handler are out of scope; this package is
// the boundary SBN's Subscription Mirror and Forwarder talk to.
package sb

import (
	"sync"

	"sbn-go/internal/peertable"
)

// Message is one published Software Bus message.
type Message struct {
	ID      peertable.MessageId
	Payload []byte
}

// SubEvent reports a local task subscribing to or unsubscribing from a
// MessageId, as snooped off the bus's broadcast channel by the Subscription
// Mirror. QosHint carries the subscriber's delivery-quality hint; it is
// meaningless on an unsubscribe event.
type SubEvent struct {
	ID         peertable.MessageId
	Subscribed bool
	QosHint    peertable.QosHint
}

// Subscription is a live tap on one MessageId's published traffic.
type Subscription struct {
	ch     chan Message
	cancel func()
}

// Channel returns the receive side of this subscription.
func (s *Subscription) Channel() <-chan Message {
	return s.ch
}

// Close tears down the subscription. A per-MessageId subscription emits an
// unsubscribe SubEvent once the last subscriber to that MessageId closes; a
// SubscribeAll tap emits none.
func (s *Subscription) Close() {
	s.cancel()
}

// Bus is the local Software Bus seam: publish, subscribe to a MessageId's
// traffic, and snoop the stream of subscribe/unsubscribe events so the
// Subscription Mirror can announce local interest to peers.
type Bus interface {
	Publish(id peertable.MessageId, payload []byte)
	// Subscribe taps a MessageId's traffic, recording qos as this
	// subscription's delivery-quality hint for the Subscription Mirror to
	// carry into the SUB record it announces to peers.
	Subscribe(id peertable.MessageId, qos peertable.QosHint) *Subscription
	// SubscribeAll taps every published message regardless of MessageId;
	// the Forwarder uses it to decide, per message, which peers'
	// RemoteSubs it matches.
	SubscribeAll() *Subscription
	Events() <-chan SubEvent
	LocalSubs() []peertable.MessageId
}

type topic struct {
	mu   sync.RWMutex
	subs map[int]chan Message
	next int
}

// memoryBus is the in-memory default Bus implementation used when this
// module is run standalone (e.g. in tests) rather than wired to a real SB
// binding. A real SB integration implements Bus itself outside this module.
type memoryBus struct {
	mu     sync.RWMutex
	topics map[peertable.MessageId]*topic

	eventsMu sync.Mutex
	events   chan SubEvent

	allMu   sync.RWMutex
	allSubs map[int]chan Message
	allNext int
}

// NewMemoryBus constructs an in-memory Bus with the given event channel
// depth. Events are dropped (never block a publisher) if the Subscription
// Mirror falls behind.
func NewMemoryBus(eventDepth int) Bus {
	return &memoryBus{
		topics:  make(map[peertable.MessageId]*topic),
		events:  make(chan SubEvent, eventDepth),
		allSubs: make(map[int]chan Message),
	}
}

func (b *memoryBus) topicFor(id peertable.MessageId) *topic {
	b.mu.RLock()
	t, ok := b.topics[id]
	b.mu.RUnlock()
	if ok {
		return t
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.topics[id]; ok {
		return t
	}
	t = &topic{subs: make(map[int]chan Message)}
	b.topics[id] = t
	return t
}

func (b *memoryBus) Publish(id peertable.MessageId, payload []byte) {
	msg := Message{ID: id, Payload: payload}

	t := b.topicFor(id)
	t.mu.RLock()
	for _, ch := range t.subs {
		select {
		case ch <- msg:
		default:
			// Slow subscriber: SBN makes no delivery guarantee across the
			// bus either, so a full channel just drops the message.
		}
	}
	t.mu.RUnlock()

	b.allMu.RLock()
	for _, ch := range b.allSubs {
		select {
		case ch <- msg:
		default:
		}
	}
	b.allMu.RUnlock()
}

// SubscribeAll taps every published message regardless of MessageId. It
// does not emit SubEvents: it is SBN's own Forwarder tapping the bus, not a
// local task whose interest should be announced to peers.
func (b *memoryBus) SubscribeAll() *Subscription {
	b.allMu.Lock()
	key := b.allNext
	b.allNext++
	ch := make(chan Message, 64)
	b.allSubs[key] = ch
	b.allMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.allMu.Lock()
			delete(b.allSubs, key)
			b.allMu.Unlock()
			close(ch)
		})
	}
	return &Subscription{ch: ch, cancel: cancel}
}

func (b *memoryBus) Subscribe(id peertable.MessageId, qos peertable.QosHint) *Subscription {
	t := b.topicFor(id)

	t.mu.Lock()
	key := t.next
	t.next++
	ch := make(chan Message, 16)
	t.subs[key] = ch
	t.mu.Unlock()

	b.emit(SubEvent{ID: id, Subscribed: true, QosHint: qos})

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, key)
			remaining := len(t.subs)
			t.mu.Unlock()
			close(ch)
			if remaining == 0 {
				b.emit(SubEvent{ID: id, Subscribed: false})
			}
		})
	}

	return &Subscription{ch: ch, cancel: cancel}
}

func (b *memoryBus) emit(ev SubEvent) {
	select {
	case b.events <- ev:
	default:
	}
}

func (b *memoryBus) Events() <-chan SubEvent {
	return b.events
}

func (b *memoryBus) LocalSubs() []peertable.MessageId {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]peertable.MessageId, 0, len(b.topics))
	for id, t := range b.topics {
		t.mu.RLock()
		n := len(t.subs)
		t.mu.RUnlock()
		if n > 0 {
			out = append(out, id)
		}
	}
	return out
}
