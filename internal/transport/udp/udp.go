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

// Package udp implements a best-effort datagram transport binding. It is
// grounded on the MMDVM UDP server's socket setup and read-loop-into-channel
// shape: a fixed read buffer size, explicit socket buffer tuning, and a
// goroutine that copies each datagram out of the reused read buffer before
// handing it to the rest of the module.
package udp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"sbn-go/internal/transport"
)

func init() {
	transport.Register("udp", New)
}

const (
	maxDatagramSize = 65507
	socketBufferSize = 1 << 20 // 1MB, matches the MMDVM server's tuning.
	inboundBacklog   = 100
)

var (
	ErrOpenSocket   = errors.New("udp: error opening socket")
	ErrSocketBuffer = errors.New("udp: error setting socket buffer size")
)

// Transport is a udp.Transport bound to one local address.
type Transport struct {
	bind string
	port int

	conn   *net.UDPConn
	inbox  chan transport.Inbound
	log    *slog.Logger
}

// New constructs a UDP transport.Factory-compatible binding.
func New(bind string, port int) (transport.Transport, error) {
	return &Transport{
		bind:  bind,
		port:  port,
		inbox: make(chan transport.Inbound, inboundBacklog),
	}, nil
}

// Init opens the UDP socket and starts the background receive loop.
func (t *Transport) Init(ctx context.Context) error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP(t.bind), Port: t.port})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpenSocket, err)
	}
	if err := conn.SetReadBuffer(socketBufferSize); err != nil {
		return fmt.Errorf("%w: %w", ErrSocketBuffer, err)
	}
	if err := conn.SetWriteBuffer(socketBufferSize); err != nil {
		return fmt.Errorf("%w: %w", ErrSocketBuffer, err)
	}
	t.conn = conn

	go t.listen(ctx)
	return nil
}

func (t *Transport) listen(ctx context.Context) {
	buf := make([]byte, maxDatagramSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, remote, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if t.log != nil {
				t.log.Warn("udp read error", "error", err)
			}
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		select {
		case t.inbox <- transport.Inbound{RemoteAddr: remote.String(), Data: data}:
		default:
			if t.log != nil {
				t.log.Warn("dropped inbound udp frame, inbox full")
			}
		}
	}
}

// Send writes a complete frame to addr in a single datagram.
func (t *Transport) Send(addr string, frame []byte) error {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("udp: resolve %q: %w", addr, err)
	}
	_, err = t.conn.WriteToUDP(frame, raddr)
	return err
}

// Recv returns the inbound frame channel.
func (t *Transport) Recv() <-chan transport.Inbound {
	return t.inbox
}

// Shutdown closes the UDP socket.
func (t *Transport) Shutdown() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

// LocalUDPAddr returns the address the socket actually bound to, useful
// when Init was called with an ephemeral port (port 0).
func (t *Transport) LocalUDPAddr() *net.UDPAddr {
	return t.conn.LocalAddr().(*net.UDPAddr)
}
