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

package peertable_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sbn-go/internal/peertable"
)

func TestPeerStartsAnnouncing(t *testing.T) {
	t.Parallel()
	p := peertable.NewPeer("wired", 2, "cpu2", 8)
	assert.Equal(t, peertable.Announcing, p.State())
	assert.True(t, p.LastRecv().IsZero())
}

func TestPeerPromoteSetsLastRecv(t *testing.T) {
	t.Parallel()
	p := peertable.NewPeer("wired", 2, "cpu2", 8)
	now := time.Now()
	p.Promote(now)
	assert.Equal(t, peertable.Heartbeating, p.State())
	assert.Equal(t, now, p.LastRecv())
}

func TestPeerDemoteClearsRemoteSubs(t *testing.T) {
	t.Parallel()
	p := peertable.NewPeer("wired", 2, "cpu2", 8)
	p.Promote(time.Now())
	p.AddRemoteSub(10, 1)
	require.True(t, p.HasRemoteSub(10))

	p.Demote()
	assert.Equal(t, peertable.Announcing, p.State())
	assert.False(t, p.HasRemoteSub(10))
	assert.Empty(t, p.RemoteSubs())
}

func TestPeerRemoteSubsAtMostOneEntryPerMessageId(t *testing.T) {
	t.Parallel()
	p := peertable.NewPeer("wired", 2, "cpu2", 8)
	p.AddRemoteSub(5, 1)
	p.AddRemoteSub(5, 2)
	assert.Len(t, p.RemoteSubs(), 1)
	qos, ok := p.RemoteSubQos(5)
	require.True(t, ok)
	assert.Equal(t, peertable.QosHint(2), qos)
}

func TestNetPeerOrCreateIsIdempotent(t *testing.T) {
	t.Parallel()
	n := peertable.NewNet("wired", "udp", true)
	p1 := n.PeerOrCreate(2, "cpu2", 8)
	p2 := n.PeerOrCreate(2, "cpu2", 8)
	assert.Same(t, p1, p2)
	assert.Len(t, n.Peers(), 1)
}

func TestNetRemovePeer(t *testing.T) {
	t.Parallel()
	n := peertable.NewNet("wired", "udp", true)
	n.PeerOrCreate(2, "cpu2", 8)
	n.RemovePeer(2)
	_, ok := n.Peer(2)
	assert.False(t, ok)
}

func TestTableAddAndLookupNet(t *testing.T) {
	t.Parallel()
	table := peertable.NewTable()
	n := peertable.NewNet("wired", "udp", true)
	table.AddNet(n)

	got, ok := table.Net("wired")
	require.True(t, ok)
	assert.Same(t, n, got)
	assert.Len(t, table.Nets(), 1)
}
