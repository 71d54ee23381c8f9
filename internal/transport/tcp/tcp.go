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

// Package tcp implements a stream transport binding. Unlike udp, TCP has no
// message boundaries of its own, so this package frames the stream using
// the same fixed header the wire package already defines (MsgSize tells the
// reader exactly how many payload bytes follow), and keeps one persistent
// outbound connection per peer address, dialing lazily on first send.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"sbn-go/internal/transport"
	"sbn-go/internal/wire"
)

func init() {
	transport.Register("tcp", New)
}

const inboundBacklog = 100

// ErrListen is returned when the TCP listener cannot be opened.
var ErrListen = errors.New("tcp: error opening listener")

// Transport is a tcp.Transport bound to one local address, accepting
// inbound connections and dialing outbound ones on demand.
type Transport struct {
	bind string
	port int

	listener net.Listener
	inbox    chan transport.Inbound
	log      *slog.Logger

	mu    sync.Mutex
	conns map[string]net.Conn
}

// New constructs a TCP transport.Factory-compatible binding.
func New(bind string, port int) (transport.Transport, error) {
	return &Transport{
		bind:  bind,
		port:  port,
		inbox: make(chan transport.Inbound, inboundBacklog),
		conns: make(map[string]net.Conn),
	}, nil
}

// Init opens the listener and starts the accept loop.
func (t *Transport) Init(ctx context.Context) error {
	l, err := net.Listen("tcp", fmt.Sprintf("%s:%d", t.bind, t.port))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrListen, err)
	}
	t.listener = l

	go t.accept(ctx)
	return nil
}

func (t *Transport) accept(ctx context.Context) {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if t.log != nil {
				t.log.Warn("tcp accept error", "error", err)
			}
			return
		}
		go t.readLoop(ctx, conn)
	}
}

func (t *Transport) readLoop(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()

	header := make([]byte, wire.HeaderSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, err := io.ReadFull(conn, header); err != nil {
			if t.log != nil && !errors.Is(err, io.EOF) {
				t.log.Warn("tcp header read error", "remote", remote, "error", err)
			}
			return
		}
		h, err := wire.DecodeHeader(header)
		if err != nil {
			if t.log != nil {
				t.log.Warn("tcp bad header", "remote", remote, "error", err)
			}
			return
		}

		payload := make([]byte, h.MsgSize)
		if h.MsgSize > 0 {
			if _, err := io.ReadFull(conn, payload); err != nil {
				if t.log != nil {
					t.log.Warn("tcp payload read error", "remote", remote, "error", err)
				}
				return
			}
		}

		frame := make([]byte, 0, wire.HeaderSize+len(payload))
		frame = append(frame, header...)
		frame = append(frame, payload...)

		select {
		case t.inbox <- transport.Inbound{RemoteAddr: remote, Data: frame}:
		default:
			if t.log != nil {
				t.log.Warn("dropped inbound tcp frame, inbox full")
			}
		}
	}
}

// Send writes a complete frame to addr, dialing and caching a connection if
// one doesn't already exist.
func (t *Transport) Send(addr string, frame []byte) error {
	conn, err := t.connFor(addr)
	if err != nil {
		return err
	}
	if _, err := conn.Write(frame); err != nil {
		t.mu.Lock()
		delete(t.conns, addr)
		t.mu.Unlock()
		_ = conn.Close()
		return err
	}
	return nil
}

func (t *Transport) connFor(addr string) (net.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if conn, ok := t.conns[addr]; ok {
		return conn, nil
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp: dial %q: %w", addr, err)
	}
	t.conns[addr] = conn
	return conn, nil
}

// Recv returns the inbound frame channel.
func (t *Transport) Recv() <-chan transport.Inbound {
	return t.inbox
}

// Shutdown closes the listener and every outbound connection.
func (t *Transport) Shutdown() error {
	t.mu.Lock()
	for addr, conn := range t.conns {
		_ = conn.Close()
		delete(t.conns, addr)
	}
	t.mu.Unlock()

	if t.listener == nil {
		return nil
	}
	return t.listener.Close()
}
