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

// Package peertable holds the data model invariants of the protocol engine:
// (Net, CpuID) uniquely identifies a Peer, a Peer carries at most one
// RemoteSubs entry (MessageId, QosHint) per MessageId, and RemoteSubs is
// cleared whenever a Peer falls back to Announcing.
package peertable

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// CpuID identifies a processor on the Software Bus Network.
type CpuID uint32

// MessageId identifies a Software Bus message type.
type MessageId uint16

// QosHint is the delivery-quality hint a subscriber attaches to a
// MessageId, carried opaquely across the wire alongside every SUB/UNSUB
// record. SBN does not interpret it.
type QosHint uint8

// State is the liveness state of a Peer.
type State uint8

const (
	// Announcing is the initial/reconnecting state: no heartbeats have
	// been received recently, RemoteSubs is empty.
	Announcing State = iota
	// Heartbeating is the steady state once an inbound frame has been
	// observed from the peer.
	Heartbeating
)

func (s State) String() string {
	switch s {
	case Announcing:
		return "announcing"
	case Heartbeating:
		return "heartbeating"
	default:
		return "unknown"
	}
}

// Peer is one remote processor reachable over a given Net. All field access
// outside this package goes through the accessor methods, which hold the
// per-peer mutex; the protocol engine is the only writer of State,
// LastRecv, and RemoteSubs, and LastSend is written by the engine and by
// the outbound drain once a frame has been handed to the transport.
type Peer struct {
	mu sync.RWMutex

	ProcessorID CpuID
	Name        string
	NetName     string

	state    State
	lastSend time.Time
	lastRecv time.Time

	remoteSubs map[MessageId]QosHint

	// OutPipe is the per-peer forwarding queue the Forwarder drains and
	// the transport send helper task (or inline send) consumes.
	OutPipe chan []byte

	versionMismatchCount uint32

	address string
}

// SetAddress records the transport-level address ("host:port") this peer
// is reachable at. Peers created reactively from an inbound frame's CpuID
// (rather than from static configuration) have no address until one is set.
func (p *Peer) SetAddress(addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.address = addr
}

// Address returns this peer's transport-level address, or "" if unknown.
func (p *Peer) Address() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.address
}

// NewPeer constructs a Peer in the Announcing state with no remote
// subscriptions and an empty outbound pipe of the given depth.
func NewPeer(netName string, id CpuID, name string, outPipeDepth int) *Peer {
	return &Peer{
		ProcessorID: id,
		Name:        name,
		NetName:     netName,
		state:       Announcing,
		remoteSubs:  make(map[MessageId]QosHint),
		OutPipe:     make(chan []byte, outPipeDepth),
	}
}

// State returns the peer's current liveness state.
func (p *Peer) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// LastSend returns the last time a frame was sent to this peer.
func (p *Peer) LastSend() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSend
}

// LastRecv returns the last time a frame was received from this peer. The
// zero time means no frame has ever been received (invariant: Heartbeating
// only holds once LastRecv has been set by a transition).
func (p *Peer) LastRecv() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastRecv
}

// MarkSent records that a frame was just sent to this peer.
func (p *Peer) MarkSent(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastSend = now
}

// Promote transitions an Announcing peer to Heartbeating, recording the
// receive time that justified the promotion. Calling Promote while already
// Heartbeating just refreshes LastRecv.
func (p *Peer) Promote(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Heartbeating
	p.lastRecv = now
}

// MarkRecv refreshes LastRecv for an already-Heartbeating peer.
func (p *Peer) MarkRecv(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastRecv = now
}

// Demote transitions a Heartbeating peer back to Announcing, clearing its
// RemoteSubs per the data model invariant.
func (p *Peer) Demote() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Announcing
	p.remoteSubs = make(map[MessageId]QosHint)
}

// AddRemoteSub records that this peer has subscribed to a MessageId with the
// given QosHint. At most one record per MessageId is kept: a repeated SUB
// for the same MessageId overwrites the stored QosHint rather than adding a
// second entry.
func (p *Peer) AddRemoteSub(id MessageId, qos QosHint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remoteSubs[id] = qos
}

// RemoveRemoteSub removes a MessageId from this peer's RemoteSubs.
func (p *Peer) RemoveRemoteSub(id MessageId) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.remoteSubs, id)
}

// HasRemoteSub reports whether this peer is subscribed to a MessageId. The
// Forwarder consults this before delivering, so a peer never receives a
// message it never subscribed to.
func (p *Peer) HasRemoteSub(id MessageId) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.remoteSubs[id]
	return ok
}

// RemoteSubs returns a snapshot copy of this peer's subscribed MessageIds.
func (p *Peer) RemoteSubs() []MessageId {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]MessageId, 0, len(p.remoteSubs))
	for id := range p.remoteSubs {
		out = append(out, id)
	}
	return out
}

// RemoteSubQos returns the QosHint last recorded for a MessageId this peer
// is subscribed to, and whether it is currently subscribed at all.
func (p *Peer) RemoteSubQos(id MessageId) (QosHint, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	qos, ok := p.remoteSubs[id]
	return qos, ok
}

// IncVersionMismatch bumps the per-peer protocol-version mismatch counter
// exposed in housekeeping telemetry.
func (p *Peer) IncVersionMismatch() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.versionMismatchCount++
}

// VersionMismatchCount returns the current mismatch counter value.
func (p *Peer) VersionMismatchCount() uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.versionMismatchCount
}

// Net is one configured peer network: a transport binding plus the set of
// peers reachable over it, keyed by CpuID.
type Net struct {
	Name      string
	Transport string
	Enabled   bool

	peers *xsync.Map[CpuID, *Peer]
}

// NewNet constructs an empty Net.
func NewNet(name, transport string, enabled bool) *Net {
	return &Net{
		Name:      name,
		Transport: transport,
		Enabled:   enabled,
		peers:     xsync.NewMap[CpuID, *Peer](),
	}
}

// Peer looks up a peer by CpuID.
func (n *Net) Peer(id CpuID) (*Peer, bool) {
	return n.peers.Load(id)
}

// PeerOrCreate returns the existing peer for id, or creates and stores a new
// Announcing peer if none exists yet.
func (n *Net) PeerOrCreate(id CpuID, name string, outPipeDepth int) *Peer {
	p, _ := n.peers.LoadOrStore(id, NewPeer(n.Name, id, name, outPipeDepth))
	return p
}

// RemovePeer deletes a peer from this Net.
func (n *Net) RemovePeer(id CpuID) {
	n.peers.Delete(id)
}

// Peers returns a snapshot of all peers currently known on this Net.
func (n *Net) Peers() []*Peer {
	out := make([]*Peer, 0)
	n.peers.Range(func(_ CpuID, p *Peer) bool {
		out = append(out, p)
		return true
	})
	return out
}

// Table is the process-wide aggregate of all configured Nets, keyed by name.
type Table struct {
	mu   sync.RWMutex
	nets map[string]*Net
}

// NewTable constructs an empty Table.
func NewTable() *Table {
	return &Table{nets: make(map[string]*Net)}
}

// AddNet registers a Net under its name.
func (t *Table) AddNet(n *Net) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nets[n.Name] = n
}

// Net looks up a registered Net by name.
func (t *Table) Net(name string) (*Net, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nets[name]
	return n, ok
}

// Nets returns a snapshot of all registered Nets.
func (t *Table) Nets() []*Net {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Net, 0, len(t.nets))
	for _, n := range t.nets {
		out = append(out, n)
	}
	return out
}
