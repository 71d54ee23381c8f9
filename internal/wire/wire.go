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

package wire

import (
	"encoding/binary"
	"errors"
)

// MsgType identifies the payload that follows the fixed header.
type MsgType uint8

const (
	NoMsg MsgType = iota
	Sub
	Unsub
	App
	Heartbeat
	Announce
)

// HeaderSize is the size in bytes of the fixed frame header.
const HeaderSize = 7

var (
	// ErrShortHeader indicates fewer than HeaderSize bytes were supplied.
	ErrShortHeader = errors.New("wire: frame shorter than header size")
	// ErrShortPayload indicates the declared MsgSize exceeds the bytes available.
	ErrShortPayload = errors.New("wire: frame shorter than declared size")
	// ErrShortSubPayload indicates a SUB/UNSUB payload is empty or is not a
	// whole number of records.
	ErrShortSubPayload = errors.New("wire: sub/unsub frame missing message id")
	// ErrShortAppPayload indicates an APP frame is missing its MessageId.
	ErrShortAppPayload = errors.New("wire: app frame missing message id")
)

// Header is the 7-byte fixed prefix of every frame: MsgSize (u16), MsgType
// (u8), CpuID (u32), all in network byte order. MsgSize counts the bytes of
// the payload that follows the header, not the header itself.
type Header struct {
	MsgSize uint16
	MsgType MsgType
	CpuID   uint32
}

// Encode writes the header in network byte order.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(buf[0:2], h.MsgSize)
	buf[2] = byte(h.MsgType)
	binary.BigEndian.PutUint32(buf[3:7], h.CpuID)
	return buf
}

// DecodeHeader reads a Header from the front of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrShortHeader
	}
	return Header{
		MsgSize: binary.BigEndian.Uint16(b[0:2]),
		MsgType: MsgType(b[2]),
		CpuID:   binary.BigEndian.Uint32(b[3:7]),
	}, nil
}

// Frame is a decoded header plus the raw payload bytes that followed it.
// Payload byte order is whatever the sender's Software Bus convention uses;
// SBN does not normalize it, see doc.go.
type Frame struct {
	Header  Header
	Payload []byte
}

// EncodeFrame serializes a complete frame: header followed by payload.
func EncodeFrame(msgType MsgType, cpuID uint32, payload []byte) []byte {
	h := Header{MsgSize: uint16(len(payload)), MsgType: msgType, CpuID: cpuID}
	out := make([]byte, 0, HeaderSize+len(payload))
	out = append(out, h.Encode()...)
	out = append(out, payload...)
	return out
}

// DecodeFrame splits a wire-format byte slice into its header and payload.
func DecodeFrame(b []byte) (Frame, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return Frame{}, err
	}
	rest := b[HeaderSize:]
	if len(rest) < int(h.MsgSize) {
		return Frame{}, ErrShortPayload
	}
	return Frame{Header: h, Payload: rest[:h.MsgSize]}, nil
}

// SubRecord is one (MessageId, QosHint) pair carried in a SUB or UNSUB
// payload.
type SubRecord struct {
	MessageId uint16
	QosHint   uint8
}

// subRecordSize is the encoded size in bytes of one SubRecord.
const subRecordSize = 3

// EncodeSub builds a SUB or UNSUB payload out of one or more records.
func EncodeSub(records ...SubRecord) []byte {
	buf := make([]byte, len(records)*subRecordSize)
	for i, r := range records {
		off := i * subRecordSize
		binary.BigEndian.PutUint16(buf[off:off+2], r.MessageId)
		buf[off+2] = r.QosHint
	}
	return buf
}

// DecodeSub extracts the one or more (MessageId, QosHint) records from a
// SUB/UNSUB payload.
func DecodeSub(payload []byte) ([]SubRecord, error) {
	if len(payload) == 0 || len(payload)%subRecordSize != 0 {
		return nil, ErrShortSubPayload
	}
	out := make([]SubRecord, 0, len(payload)/subRecordSize)
	for off := 0; off < len(payload); off += subRecordSize {
		out = append(out, SubRecord{
			MessageId: binary.BigEndian.Uint16(payload[off : off+2]),
			QosHint:   payload[off+2],
		})
	}
	return out, nil
}

// EncodeApp builds an APP payload: a MessageId header followed by the raw
// application payload bytes, passed through verbatim.
func EncodeApp(messageID uint16, appPayload []byte) []byte {
	buf := make([]byte, 2+len(appPayload))
	binary.BigEndian.PutUint16(buf[0:2], messageID)
	copy(buf[2:], appPayload)
	return buf
}

// DecodeApp splits an APP payload into its MessageId and application bytes.
func DecodeApp(payload []byte) (uint16, []byte, error) {
	if len(payload) < 2 {
		return 0, nil, ErrShortAppPayload
	}
	return binary.BigEndian.Uint16(payload[0:2]), payload[2:], nil
}

// EncodeAnnounce builds an ANNOUNCE payload: the sender's Ident string,
// verbatim UTF-8 bytes.
func EncodeAnnounce(ident string) []byte {
	return []byte(ident)
}

// DecodeAnnounce reads the Ident string out of an ANNOUNCE payload.
func DecodeAnnounce(payload []byte) string {
	return string(payload)
}
