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

// Package wire implements the SBN frame codec: a fixed 7-byte header
// (MsgSize, MsgType, CpuID) in network byte order, followed by a typed
// payload.
//
// Header byte order is always big-endian regardless of the two endpoints'
// native architectures. Payload byte order is NOT normalized by this
// package: APP payloads carry application (Software Bus) data whose byte
// order is whatever the originating processor's Software Bus convention
// uses. A bridge between two processors of differing endianness must
// normalize APP payloads itself; sbn-go forwards them as opaque bytes.
package wire
