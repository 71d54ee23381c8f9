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

package config

// LogLevel represents the logging level for the application.
type LogLevel string

const (
	// LogLevelDebug is the debug logging level, providing detailed information.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the informational logging level, providing general information.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn is the warning logging level, indicating potential issues.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError is the error logging level, indicating serious issues.
	LogLevelError LogLevel = "error"
)

// TransportKind names which transport plugin a Net is bridged over.
type TransportKind string

const (
	// TransportUDP is a best-effort datagram transport.
	TransportUDP TransportKind = "udp"
	// TransportTCP is a stream transport with its own internal framing.
	TransportTCP TransportKind = "tcp"
)

// RunMode selects whether receive/send happen inline on the main loop's
// tick or on dedicated per-Net helper tasks, per spec.md §5's "decision
// between in-line and task modes is made at build configuration" — realized
// here as a runtime config choice instead, since Go has no build-time
// #ifdef equivalent worth reaching for.
type RunMode string

const (
	// RunModeInline drains receive and send in the main loop's tick.
	RunModeInline RunMode = "inline"
	// RunModeTasked runs a dedicated receive task and send task per Net.
	RunModeTasked RunMode = "tasked"
)
