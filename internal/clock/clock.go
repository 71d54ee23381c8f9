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

// Package clock abstracts monotonic time so the protocol engine's liveness
// thresholds can be driven deterministically in tests instead of sleeping on
// the wall clock.
package clock

import "github.com/benbjohnson/clock"

// Clock is the seam every duration comparison in the protocol engine and
// bootstrap sequence goes through. It is satisfied by both the real,
// wall-clock-backed implementation and a test mock that can be advanced
// programmatically.
type Clock = clock.Clock

// Mock is a controllable clock for tests; advancing it deterministically
// drives the protocol engine's transition table.
type Mock = clock.Mock

// New returns a Clock backed by the real system clock.
func New() Clock {
	return clock.New()
}

// NewMock returns a Mock clock initialized to the Unix epoch, for tests that
// need to step through announce/heartbeat/timeout thresholds deterministically.
func NewMock() *Mock {
	return clock.NewMock()
}
