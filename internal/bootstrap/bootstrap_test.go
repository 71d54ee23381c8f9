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

package bootstrap_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"sbn-go/internal/bootstrap"
	sbnclock "sbn-go/internal/clock"
	"sbn-go/internal/peertable"
	"sbn-go/internal/sb"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	subsRequestID  = 1
	subsResponseID = 2
	initEventID    = 3
)

func TestBootstrapResendsEveryNPolls(t *testing.T) {
	t.Parallel()
	bus := sb.NewMemoryBus(8)
	clk := sbnclock.NewMock()

	requests := bus.Subscribe(subsRequestID, 0)
	defer requests.Close()

	cfg := bootstrap.Config{SubsRequestID: subsRequestID, SubsResponseID: subsResponseID, InitEventID: initEventID}
	b := bootstrap.New(bus, clk, cfg, 3, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		b.Run(ctx, time.Second)
		close(done)
	}()

	// initial send
	select {
	case <-requests.Channel():
	case <-time.After(time.Second):
		t.Fatal("expected initial subscription request")
	}

	for i := 0; i < 3; i++ {
		clk.Add(time.Second)
	}

	select {
	case <-requests.Channel():
	case <-time.After(time.Second):
		t.Fatal("expected resend after 3 polls")
	}

	cancel()
	<-done
}

func TestBootstrapAlwaysResendsAfterInitEvenIfResponseSeen(t *testing.T) {
	t.Parallel()
	bus := sb.NewMemoryBus(8)
	clk := sbnclock.NewMock()

	requests := bus.Subscribe(subsRequestID, 0)
	defer requests.Close()

	cfg := bootstrap.Config{SubsRequestID: subsRequestID, SubsResponseID: subsResponseID, InitEventID: initEventID}
	b := bootstrap.New(bus, clk, cfg, 100, nil)

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		b.Run(ctx, time.Second)
		close(done)
	}()

	<-requests.Channel() // initial

	bus.Publish(subsResponseID, nil)
	bus.Publish(initEventID, nil)

	require.Eventually(t, func() bool {
		select {
		case <-requests.Channel():
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected bootstrap to exit after init event")
	}

	assert.True(t, true)
}

func TestBootstrapExitsOnResponseSeenWithoutInitEvent(t *testing.T) {
	t.Parallel()
	bus := sb.NewMemoryBus(8)
	clk := sbnclock.NewMock()

	requests := bus.Subscribe(subsRequestID, 0)
	defer requests.Close()

	cfg := bootstrap.Config{SubsRequestID: subsRequestID, SubsResponseID: subsResponseID, InitEventID: initEventID}
	b := bootstrap.New(bus, clk, cfg, 100, nil)

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		b.Run(ctx, time.Second)
		close(done)
	}()

	<-requests.Channel() // initial

	// Simulates a bus whose INIT event already fired before Run subscribed
	// to it: only the subscription response ever arrives on this loop.
	bus.Publish(subsResponseID, nil)

	select {
	case <-requests.Channel(): // resend on exit
	case <-time.After(time.Second):
		t.Fatal("expected a final resend when the response is observed")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected bootstrap to exit once the subscription response is observed")
	}
}

func TestBootstrapExcludedIDs(t *testing.T) {
	t.Parallel()
	cfg := bootstrap.Config{SubsRequestID: subsRequestID, SubsResponseID: subsResponseID, InitEventID: initEventID}
	assert.ElementsMatch(t, cfg.ExcludedIDs(), []peertable.MessageId{subsRequestID, subsResponseID, initEventID})
}
