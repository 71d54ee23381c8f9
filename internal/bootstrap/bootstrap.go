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

// Package bootstrap resolves the startup hazard where the local Software Bus
// has not finished initializing when this module starts: a subscription
// request sent too early is silently dropped. Bootstrap opens a temporary
// pipe on the bus, periodically re-sends the request, and watches for either
// a subscription response or the bus's own INIT lifecycle event, exiting on
// whichever arrives first. Per the decided reading of the source this is
// adapted from, the final resend always happens on exit regardless of which
// of those two events ended the loop — there is no "no resend needed" fast
// path.
package bootstrap

import (
	"context"
	"log/slog"
	"time"

	sbnclock "sbn-go/internal/clock"
	"sbn-go/internal/peertable"
	"sbn-go/internal/sb"
)

// Config names the well-known MessageIds the bus uses for bootstrap
// handshaking. These are excluded from the Forwarder and Subscription
// Mirror's traffic, since they are SBN's own task messages.
type Config struct {
	// SubsRequestID is published to ask the bus for a full dump of current
	// subscriptions.
	SubsRequestID peertable.MessageId
	// SubsResponseID is the id the bus replies with. Observing it ends the
	// bootstrap loop, same as the INIT event (see package doc).
	SubsResponseID peertable.MessageId
	// InitEventID is the id the bus publishes once it has finished
	// initializing.
	InitEventID peertable.MessageId
}

// ExcludedIDs returns the MessageIds this package's handshake traffic uses,
// for callers wiring them into the Subscription Mirror and Forwarder's
// exclusion sets.
func (c Config) ExcludedIDs() []peertable.MessageId {
	return []peertable.MessageId{c.SubsRequestID, c.SubsResponseID, c.InitEventID}
}

// Bootstrap runs the startup handshake described in the package doc.
type Bootstrap struct {
	bus   sb.Bus
	clock sbnclock.Clock
	log   *slog.Logger

	subsRequestID  peertable.MessageId
	subsResponseID peertable.MessageId
	initEventID    peertable.MessageId

	resendEvery  int
	responseSeen bool
}

// New constructs a Bootstrap. resendEvery is the number of poll ticks
// between unconditional re-sends of the subscription request, matching the
// "every N polls" cadence.
func New(bus sb.Bus, clk sbnclock.Clock, cfg Config, resendEvery int, log *slog.Logger) *Bootstrap {
	if resendEvery < 1 {
		resendEvery = 1
	}
	return &Bootstrap{
		bus:            bus,
		clock:          clk,
		log:            log,
		subsRequestID:  cfg.SubsRequestID,
		subsResponseID: cfg.SubsResponseID,
		initEventID:    cfg.InitEventID,
		resendEvery:    resendEvery,
	}
}

// Run executes the bootstrap loop: it subscribes to the subscription
// response and INIT event, sends the initial subscription request, then
// polls at pollInterval (driven by the injected clock so tests can advance
// virtual time), resending every resendEvery polls, until either the
// subscription response or the INIT event is observed — at which point it
// resends once more before returning — or ctx is cancelled.
func (b *Bootstrap) Run(ctx context.Context, pollInterval time.Duration) {
	respSub := b.bus.Subscribe(b.subsResponseID, 0)
	defer respSub.Close()
	initSub := b.bus.Subscribe(b.initEventID, 0)
	defer initSub.Close()

	ticker := b.clock.Ticker(pollInterval)
	defer ticker.Stop()

	b.sendRequest()

	polls := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-respSub.Channel():
			b.responseSeen = true
			if b.log != nil {
				b.log.Info("subscription response observed, resending and exiting bootstrap")
			}
			b.sendRequest()
			return
		case <-initSub.Channel():
			if b.log != nil {
				b.log.Info("bus init observed, resending subscription request")
			}
			b.sendRequest()
			return
		case <-ticker.C:
			polls++
			if polls%b.resendEvery == 0 {
				b.sendRequest()
			}
		}
	}
}

func (b *Bootstrap) sendRequest() {
	b.bus.Publish(b.subsRequestID, nil)
	if b.log != nil {
		b.log.Debug("sent subscription request", "seen_response", b.responseSeen)
	}
}
