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

package wire_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sbn-go/internal/wire"
)

func TestFrameRoundTrip(t *testing.T) {
	t.Parallel()
	raw := wire.EncodeFrame(wire.App, 7, []byte("payload"))
	f, err := wire.DecodeFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, wire.App, f.Header.MsgType)
	assert.Equal(t, uint32(7), f.Header.CpuID)
	assert.Equal(t, []byte("payload"), f.Payload)
}

func TestDecodeFrameShortHeader(t *testing.T) {
	t.Parallel()
	_, err := wire.DecodeFrame([]byte{1, 2, 3})
	assert.ErrorIs(t, err, wire.ErrShortHeader)
}

func TestDecodeFrameShortPayload(t *testing.T) {
	t.Parallel()
	h := wire.Header{MsgSize: 10, MsgType: wire.App, CpuID: 1}
	raw := append(h.Encode(), []byte("short")...)
	_, err := wire.DecodeFrame(raw)
	assert.ErrorIs(t, err, wire.ErrShortPayload)
}

func TestEncodeDecodeSubSingleRecord(t *testing.T) {
	t.Parallel()
	payload := wire.EncodeSub(wire.SubRecord{MessageId: 42, QosHint: 3})
	records, err := wire.DecodeSub(payload)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint16(42), records[0].MessageId)
	assert.Equal(t, uint8(3), records[0].QosHint)
}

func TestEncodeDecodeSubMultipleRecords(t *testing.T) {
	t.Parallel()
	want := []wire.SubRecord{
		{MessageId: 1, QosHint: 0},
		{MessageId: 2, QosHint: 1},
		{MessageId: 65535, QosHint: 255},
	}
	payload := wire.EncodeSub(want...)
	got, err := wire.DecodeSub(payload)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decoded records mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeSubRejectsShortAndMisalignedPayloads(t *testing.T) {
	t.Parallel()
	_, err := wire.DecodeSub(nil)
	assert.ErrorIs(t, err, wire.ErrShortSubPayload)

	_, err = wire.DecodeSub([]byte{0, 1})
	assert.ErrorIs(t, err, wire.ErrShortSubPayload)
}

func TestEncodeDecodeApp(t *testing.T) {
	t.Parallel()
	payload := wire.EncodeApp(99, []byte("hello"))
	id, body, err := wire.DecodeApp(payload)
	require.NoError(t, err)
	assert.Equal(t, uint16(99), id)
	assert.Equal(t, []byte("hello"), body)
}

func TestEncodeDecodeAnnounce(t *testing.T) {
	t.Parallel()
	payload := wire.EncodeAnnounce("sbn-go-v1")
	assert.Equal(t, "sbn-go-v1", wire.DecodeAnnounce(payload))
}
