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

// Package transport defines the capability set a wire transport exposes to
// the rest of this module — init, send, receive, shutdown — and a registry
// transports register themselves into by name, replacing the dynamically
// loaded module plugins of the system this package bridges.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Inbound is one frame received off a transport, already stripped of any
// transport-specific addressing metadata.
type Inbound struct {
	// RemoteAddr identifies the sender in a transport-specific way (e.g.
	// "host:port" for UDP). It does not identify the peer, since the SBN
	// wire header itself carries the authoritative CpuID; the main loop
	// records it as the send address of a peer that has none yet.
	RemoteAddr string
	Data       []byte
}

// Transport is the capability set every wire transport implements: start
// listening, send a framed message to a peer address, receive inbound
// frames, and tear down. The core never knows whether it is driving UDP,
// TCP, or any other binding.
type Transport interface {
	// Init starts the transport's listener. It must not block.
	Init(ctx context.Context) error
	// Send hands a complete wire frame to the peer at addr.
	Send(addr string, frame []byte) error
	// Recv returns the channel inbound frames arrive on.
	Recv() <-chan Inbound
	// Shutdown tears down the transport's resources.
	Shutdown() error
}

// Factory constructs a Transport bound to the given local address.
type Factory func(bind string, port int) (Transport, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// ErrUnknownTransport is returned by New when no factory is registered
// under the requested name.
var ErrUnknownTransport = errors.New("transport: no factory registered for this kind")

// Register adds a Factory under the given transport kind name. Transport
// packages call this from an init func, the way Go's database/sql drivers
// register themselves.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New looks up the registered Factory for kind and constructs a Transport
// bound to bind:port.
func New(kind, bind string, port int) (Transport, error) {
	mu.RLock()
	f, ok := factories[kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, kind)
	}
	return f(bind, port)
}
