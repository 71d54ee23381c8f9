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

// Package sbn wires every other package into the running bridge: the peer
// table, local bus, subscription mirror, protocol engine, forwarder, and
// bootstrap handshake, driven by one main loop per the configured run mode.
package sbn

import (
	"fmt"
	"log/slog"

	sbnclock "sbn-go/internal/clock"
	"sbn-go/internal/bootstrap"
	"sbn-go/internal/config"
	"sbn-go/internal/forwarder"
	"sbn-go/internal/metrics"
	"sbn-go/internal/netscheduler"
	"sbn-go/internal/peertable"
	"sbn-go/internal/protocol"
	"sbn-go/internal/remap"
	"sbn-go/internal/sb"
	"sbn-go/internal/submirror"
	"sbn-go/internal/transport"

	_ "sbn-go/internal/transport/tcp"
	_ "sbn-go/internal/transport/udp"
)

// outPipeDepth bounds each peer's outbound frame queue. A full pipe means
// the peer (or its send helper) is behind; frames are dropped rather than
// stalling delivery to every other peer, matching the no-guaranteed-delivery
// contract this bridge makes everywhere else.
const outPipeDepth = 100

// Status is the run-status the hosting environment distinguishes.
type Status int

const (
	// StatusRunning is reported while the main loop is executing normally.
	StatusRunning Status = iota
	// StatusExitNormal is reported after a clean, cooperative shutdown.
	StatusExitNormal
	// StatusExitError is reported after the main loop exits on an
	// unexpected failure.
	StatusExitError
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusExitNormal:
		return "exit_normal"
	case StatusExitError:
		return "exit_error"
	default:
		return "unknown"
	}
}

// App is the assembled bridge: every Net's transport, the peer table, the
// local bus seam, and the components that drive traffic between them.
type App struct {
	cfg   config.Config
	clock sbnclock.Clock
	log   *slog.Logger

	table      *peertable.Table
	bus        sb.Bus
	remapTable *remap.Table
	mirror     *submirror.Mirror
	engine     *protocol.Engine
	fwd        *forwarder.Forwarder
	boot       *bootstrap.Bootstrap
	metrics    *metrics.Metrics
	housekeep  *netscheduler.HousekeepingScheduler

	transports map[string]transport.Transport
}

// New assembles an App from configuration. It constructs (but does not
// start) every Net's transport and every stateless component; Run performs
// the actual Init/listen/teardown lifecycle.
func New(cfg config.Config, clk sbnclock.Clock, m *metrics.Metrics, log *slog.Logger) (*App, error) {
	selfCpuID := peertable.CpuID(cfg.CpuID)

	table := peertable.NewTable()
	transports := make(map[string]transport.Transport, len(cfg.Nets))

	for _, n := range cfg.Nets {
		net := peertable.NewNet(n.Name, string(n.Transport), n.Enabled)
		for _, peerCfg := range n.Peers {
			peer := net.PeerOrCreate(peertable.CpuID(peerCfg.CpuID), peerCfg.Name, outPipeDepth)
			peer.SetAddress(fmt.Sprintf("%s:%d", peerCfg.Address, peerCfg.Port))
		}
		table.AddNet(net)

		if !n.Enabled {
			continue
		}
		tr, err := transport.New(string(n.Transport), n.Bind, n.Port)
		if err != nil {
			return nil, fmt.Errorf("net %q: %w", n.Name, err)
		}
		transports[n.Name] = tr
	}

	bus := sb.NewMemoryBus(64)
	remapTable := remap.New(cfg.Remap)
	mirror := submirror.New(bus, table, selfCpuID, log)

	bootCfg := bootstrap.Config{
		SubsRequestID:  peertable.MessageId(cfg.Bootstrap.SubsRequestID),
		SubsResponseID: peertable.MessageId(cfg.Bootstrap.SubsResponseID),
		InitEventID:    peertable.MessageId(cfg.Bootstrap.InitEventID),
	}
	mirror.Exclude(bootCfg.ExcludedIDs()...)
	boot := bootstrap.New(bus, clk, bootCfg, cfg.Timing.BootstrapResendEvery, log)

	fwd := forwarder.New(table, remapTable, bus, selfCpuID, log, bootCfg.ExcludedIDs()...)

	send := func(net *peertable.Net, peer *peertable.Peer, frame []byte) {
		enqueue(log, net, peer, frame)
	}
	engine := protocol.New(table, clk, cfg.Timing, mirror, bus, remapTable, selfCpuID, cfg.Ident, outPipeDepth, log, send, m)

	var housekeep *netscheduler.HousekeepingScheduler
	if m != nil {
		var err error
		housekeep, err = netscheduler.New(table, m, log)
		if err != nil {
			return nil, fmt.Errorf("housekeeping scheduler: %w", err)
		}
		if err := housekeep.RegisterFlush(cfg.Metrics.FlushInterval); err != nil {
			return nil, fmt.Errorf("housekeeping flush: %w", err)
		}
	}

	return &App{
		cfg:        cfg,
		clock:      clk,
		log:        log,
		table:      table,
		bus:        bus,
		remapTable: remapTable,
		mirror:     mirror,
		engine:     engine,
		fwd:        fwd,
		boot:       boot,
		metrics:    m,
		housekeep:  housekeep,
		transports: transports,
	}, nil
}

// Bus exposes the App's local Software Bus seam, so a caller hosting this
// module alongside a real SB binding can publish/subscribe directly.
func (a *App) Bus() sb.Bus {
	return a.bus
}

// Housekeeping returns a point-in-time snapshot of every known peer's
// liveness and subscription counters, for an external collaborator (e.g. a
// ground command handler) to embed into its own telemetry packet without
// scraping the Prometheus endpoint.
func (a *App) Housekeeping() []metrics.HousekeepingRecord {
	return metrics.Snapshot(a.table)
}

// enqueue pushes frame onto peer's outbound pipe without blocking. It is
// the Sender every component (Engine, Subscription Mirror) drives; the
// per-Net drain then consumes the pipe into the transport.
func enqueue(log *slog.Logger, net *peertable.Net, peer *peertable.Peer, frame []byte) {
	select {
	case peer.OutPipe <- frame:
	default:
		if log != nil {
			log.Debug("dropped frame, peer pipe full", "net", net.Name, "cpu_id", peer.ProcessorID)
		}
	}
}
