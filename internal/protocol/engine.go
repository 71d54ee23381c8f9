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

// Package protocol implements the per-peer liveness state machine and the
// dispatch-on-receive algorithm: the core of what this module bridges
// between processors.
package protocol

import (
	"log/slog"
	"time"

	sbnclock "sbn-go/internal/clock"
	"sbn-go/internal/config"
	"sbn-go/internal/metrics"
	"sbn-go/internal/peertable"
	"sbn-go/internal/remap"
	"sbn-go/internal/sb"
	"sbn-go/internal/submirror"
	"sbn-go/internal/wire"
)

// Sender hands an already-framed byte slice to one peer's transport.
type Sender func(net *peertable.Net, peer *peertable.Peer, frame []byte)

// Engine evaluates the transition table (§4.1-style: Announcing/Heartbeating)
// on each Tick, and dispatches inbound frames via HandleFrame.
type Engine struct {
	table     *peertable.Table
	clock     sbnclock.Clock
	timing    config.Timing
	mirror    *submirror.Mirror
	bus       sb.Bus
	remap     *remap.Table
	log       *slog.Logger
	send      Sender
	selfCpuID peertable.CpuID
	selfIdent string
	metrics   *metrics.Metrics

	outPipeDepth int
}

// New constructs an Engine wired to the given peer table, clock, bus,
// subscription mirror, and remap table.
func New(
	table *peertable.Table,
	clk sbnclock.Clock,
	timing config.Timing,
	mirror *submirror.Mirror,
	bus sb.Bus,
	remapTable *remap.Table,
	selfCpuID peertable.CpuID,
	selfIdent string,
	outPipeDepth int,
	log *slog.Logger,
	send Sender,
	m *metrics.Metrics,
) *Engine {
	return &Engine{
		table:        table,
		clock:        clk,
		timing:       timing,
		mirror:       mirror,
		bus:          bus,
		remap:        remapTable,
		selfCpuID:    selfCpuID,
		selfIdent:    selfIdent,
		outPipeDepth: outPipeDepth,
		log:          log,
		send:         send,
		metrics:      m,
	}
}

// Tick evaluates every peer's liveness transition once. It is driven by the
// main loop on a fixed cadence (config.Timing.Tick) via the command-pipe
// timeout.
func (e *Engine) Tick() {
	now := e.clock.Now()
	for _, net := range e.table.Nets() {
		if !net.Enabled {
			continue
		}
		for _, p := range net.Peers() {
			e.tickPeer(net, p, now)
		}
	}
}

func (e *Engine) tickPeer(net *peertable.Net, p *peertable.Peer, now time.Time) {
	switch p.State() {
	case peertable.Announcing:
		if now.Sub(p.LastSend()) > e.timing.Announce {
			e.send(net, p, wire.EncodeFrame(wire.Announce, uint32(e.selfCpuID), wire.EncodeAnnounce(e.selfIdent)))
			p.MarkSent(now)
		}
	case peertable.Heartbeating:
		if now.Sub(p.LastRecv()) > e.timing.HBTimeout {
			p.Demote()
			if e.log != nil {
				e.log.Warn("lost connection", "net", net.Name, "cpu_id", p.ProcessorID)
			}
			return
		}
		if now.Sub(p.LastSend()) > e.timing.HBSend {
			e.send(net, p, wire.EncodeFrame(wire.Heartbeat, uint32(e.selfCpuID), nil))
			p.MarkSent(now)
		}
	}
}

// HandleFrame dispatches one inbound frame that arrived on net. It resolves
// the sending Peer by the CpuID carried in the header, then promotes to
// Heartbeating and resends the current subscription snapshot whenever the
// peer was still Announcing or the frame itself is an ANNOUNCE — the latter
// covers a peer that restarted and re-announced before this side's
// HBTimeout ever tripped its record of it, so the restarted peer gets
// resynced without waiting out a full timeout cycle. Otherwise it just
// refreshes LastRecv. It then routes SUB/UNSUB/APP payloads.
// SBN's own task messages never re-enter this path: the Subscription
// Mirror's Exclude set keeps them out of the snapshot it sends here.
func (e *Engine) HandleFrame(net *peertable.Net, raw []byte) error {
	f, err := wire.DecodeFrame(raw)
	if err != nil {
		return err
	}

	p := net.PeerOrCreate(peertable.CpuID(f.Header.CpuID), "", e.outPipeDepth)
	now := e.clock.Now()

	if p.State() == peertable.Announcing || f.Header.MsgType == wire.Announce {
		p.Promote(now)
		if e.log != nil {
			e.log.Info("alive", "net", net.Name, "cpu_id", p.ProcessorID)
		}
		for _, frame := range e.mirror.SnapshotFrames() {
			e.send(net, p, frame)
		}
	} else {
		p.MarkRecv(now)
	}

	switch f.Header.MsgType {
	case wire.Announce:
		if ident := wire.DecodeAnnounce(f.Payload); ident != "" && ident != e.selfIdent {
			p.IncVersionMismatch()
			if e.metrics != nil {
				e.metrics.IncVersionMismatch(net.Name, p.ProcessorID)
			}
			if e.log != nil {
				e.log.Warn("version mismatch", "net", net.Name, "cpu_id", p.ProcessorID, "remote_ident", ident, "local_ident", e.selfIdent)
			}
		}
	case wire.Heartbeat:
		// Liveness-only; refresh already handled above.
	case wire.Sub:
		records, err := wire.DecodeSub(f.Payload)
		if err != nil {
			return err
		}
		for _, r := range records {
			p.AddRemoteSub(peertable.MessageId(r.MessageId), peertable.QosHint(r.QosHint))
		}
	case wire.Unsub:
		records, err := wire.DecodeSub(f.Payload)
		if err != nil {
			return err
		}
		for _, r := range records {
			p.RemoveRemoteSub(peertable.MessageId(r.MessageId))
		}
	case wire.App:
		id, payload, err := wire.DecodeApp(f.Payload)
		if err != nil {
			return err
		}
		localID := e.remap.Inbound(net.Name, peertable.MessageId(id))
		e.bus.Publish(localID, payload)
	default:
		if e.log != nil {
			e.log.Warn("unknown frame type", "net", net.Name, "cpu_id", p.ProcessorID, "type", f.Header.MsgType)
		}
	}

	return nil
}
