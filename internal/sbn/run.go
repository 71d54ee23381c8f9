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

package sbn

import (
	"context"

	"golang.org/x/sync/errgroup"

	"sbn-go/internal/config"
	"sbn-go/internal/peertable"
	"sbn-go/internal/transport"
	"sbn-go/internal/wire"
)

// Run starts every Net's transport, the supporting tasks (Subscription
// Mirror, Forwarder, bootstrap handshake, housekeeping scheduler), and the
// main loop, blocking until ctx is cancelled or an unexpected failure
// occurs. It returns the terminal Status alongside any error.
//
// The main loop is tick-driven: it wakes on T_tick (or sooner, if ctx is
// cancelled) and runs one protocol cycle — Engine.Tick, then, in
// RunModeInline, receiving and sending for every Net itself. In
// RunModeTasked, a dedicated receive goroutine and send goroutine per Net
// do that work instead, and the main loop only drives the tick.
func (a *App) Run(ctx context.Context) (Status, error) {
	for name, tr := range a.transports {
		if err := tr.Init(ctx); err != nil {
			return StatusExitError, err
		}
		if a.log != nil {
			a.log.Info("transport initialized", "net", name)
		}
	}
	defer a.shutdownTransports()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.mirror.Run(gctx, func(p *peertable.Peer, frame []byte) {
			net, _ := a.table.Net(p.NetName)
			enqueue(a.log, net, p, frame)
		})
		return nil
	})
	g.Go(func() error {
		a.fwd.Run(gctx)
		return nil
	})
	g.Go(func() error {
		a.boot.Run(gctx, a.cfg.Timing.BootstrapPoll)
		return nil
	})

	if a.housekeep != nil {
		a.housekeep.Start()
		defer a.housekeep.Stop()
	}

	if a.cfg.RunMode == config.RunModeTasked {
		for name, tr := range a.transports {
			net, ok := a.table.Net(name)
			if !ok {
				continue
			}
			g.Go(func() error {
				a.receiveTask(gctx, net, tr)
				return nil
			})
			g.Go(func() error {
				a.sendTask(gctx, net, tr)
				return nil
			})
		}
	}

	g.Go(func() error {
		return a.mainLoop(gctx)
	})

	if err := g.Wait(); err != nil {
		return StatusExitError, err
	}
	return StatusExitNormal, nil
}

// mainLoop blocks on the command pipe (here, the tick) with timeout T_tick,
// and runs one protocol cycle per wakeup until ctx is cancelled.
func (a *App) mainLoop(ctx context.Context) error {
	ticker := a.clock.Ticker(a.cfg.Timing.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.runCycle(ctx)
		}
	}
}

// runCycle performs the Protocol Engine's per-tick liveness sweep and, in
// RunModeInline, the receive and send work a dedicated task would otherwise
// do.
func (a *App) runCycle(ctx context.Context) {
	a.engine.Tick()

	if a.cfg.RunMode != config.RunModeInline {
		return
	}

	for name, tr := range a.transports {
		net, ok := a.table.Net(name)
		if !ok {
			continue
		}
		a.drainInbound(ctx, net, tr)
		a.drainOutbound(net, tr)
	}
}

// receiveTask blocks on the transport's receive channel, handing each
// inbound frame to the Protocol Engine, until ctx is cancelled.
func (a *App) receiveTask(ctx context.Context, net *peertable.Net, tr transport.Transport) {
	for {
		select {
		case <-ctx.Done():
			return
		case inbound, ok := <-tr.Recv():
			if !ok {
				return
			}
			a.handleInbound(net, inbound)
		}
	}
}

// sendTask repeatedly drains every peer's outbound pipe into the
// transport, until ctx is cancelled. There is no transport-side blocking
// receive to select on here, so it paces itself on the protocol tick.
func (a *App) sendTask(ctx context.Context, net *peertable.Net, tr transport.Transport) {
	ticker := a.clock.Ticker(a.cfg.Timing.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.drainOutbound(net, tr)
		}
	}
}

// drainInbound non-blockingly drains whatever frames are already queued on
// the transport's receive channel and dispatches each to the Protocol
// Engine.
func (a *App) drainInbound(_ context.Context, net *peertable.Net, tr transport.Transport) {
	for {
		select {
		case inbound, ok := <-tr.Recv():
			if !ok {
				return
			}
			a.handleInbound(net, inbound)
		default:
			return
		}
	}
}

func (a *App) handleInbound(net *peertable.Net, inbound transport.Inbound) {
	if h, err := wire.DecodeHeader(inbound.Data); err == nil {
		peer := net.PeerOrCreate(peertable.CpuID(h.CpuID), "", outPipeDepth)
		if peer.Address() == "" {
			peer.SetAddress(inbound.RemoteAddr)
		}
		if a.metrics != nil {
			a.metrics.AddBytesRecv(net.Name, peertable.CpuID(h.CpuID), len(inbound.Data))
		}
	}
	if err := a.engine.HandleFrame(net, inbound.Data); err != nil {
		if a.log != nil {
			a.log.Warn("dropped malformed frame", "net", net.Name, "error", err)
		}
	}
}

// drainOutbound non-blockingly empties every peer's outbound pipe into the
// transport. A full pipe was already the point at which delivery gave up,
// so this only ever removes frames that are actually ready to send.
func (a *App) drainOutbound(net *peertable.Net, tr transport.Transport) {
	for _, p := range net.Peers() {
	drain:
		for {
			select {
			case frame := <-p.OutPipe:
				addr := p.Address()
				if addr == "" {
					continue drain
				}
				if err := tr.Send(addr, frame); err != nil {
					if a.log != nil {
						a.log.Debug("send failed", "net", net.Name, "cpu_id", p.ProcessorID, "error", err)
					}
					continue drain
				}
				p.MarkSent(a.clock.Now())
				if a.metrics != nil {
					a.metrics.AddBytesSent(net.Name, p.ProcessorID, len(frame))
				}
			default:
				break drain
			}
		}
	}
}

func (a *App) shutdownTransports() {
	for name, tr := range a.transports {
		if err := tr.Shutdown(); err != nil && a.log != nil {
			a.log.Error("failed to shut down transport", "net", name, "error", err)
		}
	}
}
