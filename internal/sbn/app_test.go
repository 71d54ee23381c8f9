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

package sbn_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	sbnclock "sbn-go/internal/clock"
	"sbn-go/internal/config"
	"sbn-go/internal/peertable"
	"sbn-go/internal/sbn"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func baseConfig(name string, cpuID uint32, bind string, port int, peerPort int, peerCpuID uint32) config.Config {
	return config.Config{
		LogLevel: config.LogLevelError,
		CpuID:    cpuID,
		RunMode:  config.RunModeInline,
		Ident:    "sbn-go-v1",
		Timing: config.Timing{
			Announce:             1 * time.Millisecond,
			HBSend:               2 * time.Millisecond,
			HBTimeout:            50 * time.Millisecond,
			Tick:                 1 * time.Millisecond,
			BootstrapPoll:        time.Second,
			BootstrapResendEvery: 5,
		},
		Bootstrap: config.Bootstrap{SubsRequestID: 65533, SubsResponseID: 65534, InitEventID: 65535},
		Nets: []config.Net{
			{
				Name:      name,
				Transport: config.TransportUDP,
				Enabled:   true,
				Bind:      bind,
				Port:      port,
				Peers: []config.PeerConfig{
					{Name: "peer", CpuID: peerCpuID, Address: bind, Port: peerPort},
				},
			},
		},
	}
}

func TestAppNewRejectsUnknownTransport(t *testing.T) {
	t.Parallel()
	cfg := baseConfig("wired", 1, "127.0.0.1", 32101, 32102, 2)
	cfg.Nets[0].Transport = "carrier-pigeon"

	_, err := sbn.New(cfg, sbnclock.New(), nil, nil)
	require.Error(t, err)
}

func TestAppHousekeepingSnapshotsConfiguredPeers(t *testing.T) {
	t.Parallel()
	cfg := baseConfig("wired", 1, "127.0.0.1", 0, 0, 2)
	cfg.Nets[0].Enabled = false

	app, err := sbn.New(cfg, sbnclock.New(), nil, nil)
	require.NoError(t, err)

	records := app.Housekeeping()
	require.Len(t, records, 1)
	assert.Equal(t, "wired", records[0].Net)
	assert.Equal(t, peertable.CpuID(2), records[0].CpuID)
	assert.Equal(t, peertable.Announcing, records[0].State)
}

func TestAppBusExposesLocalPublish(t *testing.T) {
	t.Parallel()
	cfg := baseConfig("wired", 1, "127.0.0.1", 0, 0, 2)
	cfg.Nets[0].Enabled = false // avoid actually binding a socket for this test

	app, err := sbn.New(cfg, sbnclock.New(), nil, nil)
	require.NoError(t, err)
	require.NotNil(t, app.Bus())

	sub := app.Bus().Subscribe(42, 0)
	defer sub.Close()
	app.Bus().Publish(42, []byte("hi"))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, []byte("hi"), msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("expected local publish to reach local subscriber")
	}
}

// TestTwoAppsPromoteAndExchangeSubscriptions exercises S1 (announce
// handshake) and S2 (subscription propagation) end-to-end over real UDP
// sockets on loopback: two App instances, each configured with the other
// as its sole peer, reach Heartbeating and mirror a local subscription to
// the remote side.
func TestTwoAppsPromoteAndExchangeSubscriptions(t *testing.T) {
	t.Parallel()

	const (
		portA = 32201
		portB = 32202
	)

	clk := sbnclock.NewMock()

	cfgA := baseConfig("link", 1, "127.0.0.1", portA, portB, 2)
	cfgB := baseConfig("link", 2, "127.0.0.1", portB, portA, 1)

	appA, err := sbn.New(cfgA, clk, nil, nil)
	require.NoError(t, err)
	appB, err := sbn.New(cfgB, clk, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	doneA := make(chan struct{})
	doneB := make(chan struct{})
	go func() { appA.Run(ctx); close(doneA) }() //nolint:errcheck
	go func() { appB.Run(ctx); close(doneB) }() //nolint:errcheck
	defer func() {
		cancel()
		<-doneA
		<-doneB
	}()

	// Drive enough virtual ticks for both sides to cross T_announce several
	// times; real goroutines race to observe each Ticker.C send, so advance
	// repeatedly rather than once.
	for i := 0; i < 50; i++ {
		clk.Add(time.Millisecond)
		time.Sleep(time.Millisecond)
	}

	// Confirm liveness promotion indirectly: drive a local subscription on
	// B and confirm a publish on A reaches it over the bus. That can only
	// happen once both sides are Heartbeating and have exchanged
	// subscription snapshots.
	sub := appB.Bus().Subscribe(peertable.MessageId(0x1820), 2)
	defer sub.Close()

	// Give the subscribe event a moment to be mirrored from B to A over the
	// bus's own event channel before publishing, and advance virtual ticks so
	// the Subscription Mirror's fan-out frame actually gets sent/received.
	for i := 0; i < 50; i++ {
		clk.Add(time.Millisecond)
		time.Sleep(time.Millisecond)
	}

	appA.Bus().Publish(peertable.MessageId(0x1820), []byte("HELLO"))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, []byte("HELLO"), msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("expected message published on A to be routed to B's local bus")
	}
}
