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

// Package submirror tracks the local Software Bus's subscription set and
// fans out SUB/UNSUB frames to every Heartbeating peer whenever it changes,
// and builds the full snapshot sent to a peer that has just transitioned to
// Heartbeating.
package submirror

import (
	"context"
	"log/slog"
	"sync"

	"sbn-go/internal/peertable"
	"sbn-go/internal/sb"
	"sbn-go/internal/wire"
)

// Sender delivers an already-framed byte slice to one peer's outbound pipe.
type Sender func(p *peertable.Peer, frame []byte)

// Mirror owns the single-writer set of MessageIds the local Software Bus is
// currently subscribed to, snooped from the bus's broadcast of
// subscribe/unsubscribe events.
type Mirror struct {
	bus      sb.Bus
	table    *peertable.Table
	log      *slog.Logger
	selfCpuID peertable.CpuID

	mu        sync.Mutex
	localSubs map[peertable.MessageId]peertable.QosHint
	// excluded holds MessageIds SBN's own tasks (e.g. the bootstrap temp
	// pipe) subscribe to internally, which must never be mirrored to
	// peers — re-announcing them would let a message loop back.
	excluded map[peertable.MessageId]struct{}
}

// New constructs a Mirror over the given Bus and peer Table. selfCpuID is
// stamped into the CpuID header field of every SUB/UNSUB frame it sends.
func New(bus sb.Bus, table *peertable.Table, selfCpuID peertable.CpuID, log *slog.Logger) *Mirror {
	return &Mirror{
		bus:       bus,
		table:     table,
		selfCpuID: selfCpuID,
		log:       log,
		localSubs: make(map[peertable.MessageId]peertable.QosHint),
		excluded:  make(map[peertable.MessageId]struct{}),
	}
}

// Exclude marks a MessageId as SBN's own internal traffic, never mirrored.
func (m *Mirror) Exclude(ids ...peertable.MessageId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.excluded[id] = struct{}{}
	}
}

// Snapshot returns the current local subscription set, minus excluded
// self-traffic, suitable for sending in full to a newly-Heartbeating peer.
func (m *Mirror) Snapshot() []peertable.MessageId {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]peertable.MessageId, 0, len(m.localSubs))
	for id := range m.localSubs {
		if _, skip := m.excluded[id]; skip {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Run watches the bus's subscribe/unsubscribe event stream and fans each
// change out to every Heartbeating peer on every configured Net, via send.
// It returns when ctx is cancelled.
func (m *Mirror) Run(ctx context.Context, send Sender) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-m.bus.Events():
			if !ok {
				return
			}
			m.applyAndFanOut(ev, send)
		}
	}
}

func (m *Mirror) applyAndFanOut(ev sb.SubEvent, send Sender) {
	m.mu.Lock()
	if _, skip := m.excluded[ev.ID]; skip {
		m.mu.Unlock()
		return
	}
	if ev.Subscribed {
		m.localSubs[ev.ID] = ev.QosHint
	} else {
		delete(m.localSubs, ev.ID)
	}
	m.mu.Unlock()

	frame := m.frameFor(ev)
	for _, net := range m.table.Nets() {
		for _, p := range net.Peers() {
			if p.State() != peertable.Heartbeating {
				continue
			}
			send(p, frame)
		}
	}
	if m.log != nil {
		m.log.Debug("local subscription changed", "message_id", ev.ID, "subscribed", ev.Subscribed)
	}
}

// SnapshotFrames returns a single SUB frame carrying every currently
// locally-subscribed (MessageId, QosHint) record, for sending to a peer
// immediately after it transitions to Heartbeating. It returns nil if there
// is nothing to announce.
func (m *Mirror) SnapshotFrames() [][]byte {
	records := m.snapshotRecords()
	if len(records) == 0 {
		return nil
	}
	return [][]byte{wire.EncodeFrame(wire.Sub, uint32(m.selfCpuID), wire.EncodeSub(records...))}
}

func (m *Mirror) snapshotRecords() []wire.SubRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]wire.SubRecord, 0, len(m.localSubs))
	for id, qos := range m.localSubs {
		if _, skip := m.excluded[id]; skip {
			continue
		}
		out = append(out, wire.SubRecord{MessageId: uint16(id), QosHint: uint8(qos)})
	}
	return out
}

func (m *Mirror) frameFor(ev sb.SubEvent) []byte {
	msgType := wire.Sub
	if !ev.Subscribed {
		msgType = wire.Unsub
	}
	record := wire.SubRecord{MessageId: uint16(ev.ID), QosHint: uint8(ev.QosHint)}
	return wire.EncodeFrame(msgType, uint32(m.selfCpuID), wire.EncodeSub(record))
}
