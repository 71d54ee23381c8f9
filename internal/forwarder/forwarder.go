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

// Package forwarder drains locally-published Software Bus traffic and
// delivers it to every peer whose RemoteSubs includes the message, applying
// the configured remap and framing it as an APP wire message. It never
// re-forwards SBN's own task traffic, so messages SBN injects cannot loop.
package forwarder

import (
	"context"
	"log/slog"

	"sbn-go/internal/peertable"
	"sbn-go/internal/remap"
	"sbn-go/internal/sb"
	"sbn-go/internal/wire"
)

// Forwarder taps the local bus and fans each published message out to every
// subscribed peer on every Net.
type Forwarder struct {
	table     *peertable.Table
	remap     *remap.Table
	bus       sb.Bus
	selfCpuID peertable.CpuID
	log       *slog.Logger

	// excluded holds MessageIds originated by SBN's own tasks, which must
	// never be re-published onto the wire — this is what keeps SBN from
	// forwarding its own traffic back out in a loop.
	excluded map[peertable.MessageId]struct{}
}

// New constructs a Forwarder over the given peer table, remap table, and
// bus.
func New(table *peertable.Table, remapTable *remap.Table, bus sb.Bus, selfCpuID peertable.CpuID, log *slog.Logger, excluded ...peertable.MessageId) *Forwarder {
	ex := make(map[peertable.MessageId]struct{}, len(excluded))
	for _, id := range excluded {
		ex[id] = struct{}{}
	}
	return &Forwarder{
		table:     table,
		remap:     remapTable,
		bus:       bus,
		selfCpuID: selfCpuID,
		log:       log,
		excluded:  ex,
	}
}

// Run drains the bus's all-message tap and delivers each message to every
// matching peer, until ctx is cancelled.
func (f *Forwarder) Run(ctx context.Context) {
	sub := f.bus.SubscribeAll()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			f.deliver(msg)
		}
	}
}

func (f *Forwarder) deliver(msg sb.Message) {
	if _, skip := f.excluded[msg.ID]; skip {
		return
	}
	for _, net := range f.table.Nets() {
		if !net.Enabled {
			continue
		}
		for _, p := range net.Peers() {
			if p.State() != peertable.Heartbeating {
				continue
			}
			if !p.HasRemoteSub(msg.ID) {
				continue
			}
			remoteID := f.remap.Outbound(net.Name, msg.ID)
			frame := wire.EncodeFrame(wire.App, uint32(f.selfCpuID), wire.EncodeApp(uint16(remoteID), msg.Payload))
			f.tryDeliver(p, frame)
		}
	}
}

// tryDeliver enqueues frame onto the peer's outbound pipe without blocking;
// a full pipe means the peer (or its send helper task) is behind, and SBN
// makes no delivery guarantee, so the frame is dropped rather than stalling
// delivery to every other peer.
func (f *Forwarder) tryDeliver(p *peertable.Peer, frame []byte) {
	select {
	case p.OutPipe <- frame:
	default:
		if f.log != nil {
			f.log.Debug("dropped frame, peer pipe full", "cpu_id", p.ProcessorID)
		}
	}
}
