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

package transport_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sbn-go/internal/transport"
)

type fakeTransport struct{}

func (fakeTransport) Init(context.Context) error             { return nil }
func (fakeTransport) Send(string, []byte) error              { return nil }
func (fakeTransport) Recv() <-chan transport.Inbound          { return nil }
func (fakeTransport) Shutdown() error                         { return nil }

func TestRegisterAndNew(t *testing.T) {
	transport.Register("fake-kind-for-test", func(bind string, port int) (transport.Transport, error) {
		return fakeTransport{}, nil
	})

	tr, err := transport.New("fake-kind-for-test", "127.0.0.1", 0)
	require.NoError(t, err)
	assert.NotNil(t, tr)
}

func TestNewUnknownKind(t *testing.T) {
	_, err := transport.New("does-not-exist", "127.0.0.1", 0)
	assert.ErrorIs(t, err, transport.ErrUnknownTransport)
}
