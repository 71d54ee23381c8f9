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

package udp_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sbn-go/internal/transport"
	_ "sbn-go/internal/transport/udp"
)

func TestUDPRoundTrip(t *testing.T) {
	t.Parallel()

	a, err := transport.New("udp", "127.0.0.1", 0)
	require.NoError(t, err)
	b, err := transport.New("udp", "127.0.0.1", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, a.Init(ctx))
	require.NoError(t, b.Init(ctx))
	defer a.Shutdown()
	defer b.Shutdown()

	bAddr := localAddr(t, b)

	require.NoError(t, a.Send(bAddr, []byte("hello")))

	select {
	case in := <-b.Recv():
		assert.Equal(t, []byte("hello"), in.Data)
	case <-time.After(time.Second):
		t.Fatal("expected inbound datagram")
	}
}

// localAddr extracts the bound ephemeral port a Transport ended up
// listening on, by asking the transport for the OS-assigned local address
// through its LocalUDPAddr method.
func localAddr(t *testing.T, tr transport.Transport) string {
	t.Helper()
	type addrer interface{ LocalUDPAddr() *net.UDPAddr }
	if a, ok := tr.(addrer); ok {
		return a.LocalUDPAddr().String()
	}
	t.Fatal("transport does not expose its bound address")
	return ""
}
