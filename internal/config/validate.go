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

import "errors"

var (
	// ErrInvalidLogLevel indicates that the provided log level is not valid.
	ErrInvalidLogLevel = errors.New("invalid log level provided")
	// ErrInvalidRunMode indicates that the provided run mode is not valid.
	ErrInvalidRunMode = errors.New("invalid run mode provided")
	// ErrIdentRequired indicates the node's protocol identity string is empty.
	ErrIdentRequired = errors.New("ident is required")
	// ErrNetNameRequired indicates that a Net entry is missing its name.
	ErrNetNameRequired = errors.New("net name is required")
	// ErrInvalidTransport indicates that a Net's transport kind is not recognized.
	ErrInvalidTransport = errors.New("invalid transport kind provided")
	// ErrInvalidNetPort indicates that a Net's bind port is out of range.
	ErrInvalidNetPort = errors.New("invalid net port provided")
	// ErrDuplicateNetName indicates two Net entries share a name.
	ErrDuplicateNetName = errors.New("duplicate net name provided")
	// ErrPeerCpuIDRequired indicates a configured peer has no CpuID.
	ErrPeerCpuIDRequired = errors.New("peer cpu_id is required")
	// ErrPeerAddressRequired indicates a configured peer has no address.
	ErrPeerAddressRequired = errors.New("peer address is required")
	// ErrInvalidTiming indicates the timing thresholds violate the required
	// ordering T_announce < T_hb_send < T_hb_timeout.
	ErrInvalidTiming = errors.New("timing thresholds must satisfy announce < hb_send < hb_timeout")
	// ErrInvalidBootstrapResendEvery indicates the bootstrap resend cadence is non-positive.
	ErrInvalidBootstrapResendEvery = errors.New("bootstrap_resend_every must be positive")
	// ErrInvalidMetricsBindAddress indicates that the provided metrics server bind address is not valid.
	ErrInvalidMetricsBindAddress = errors.New("invalid metrics server bind address provided")
	// ErrInvalidMetricsPort indicates that the provided metrics server port is not valid.
	ErrInvalidMetricsPort = errors.New("invalid metrics server port provided")
	// ErrDuplicateBootstrapID indicates two bootstrap handshake MessageIds collide.
	ErrDuplicateBootstrapID = errors.New("bootstrap message ids must be distinct")
)

// Validate validates one Net entry.
func (n Net) Validate() error {
	if n.Name == "" {
		return ErrNetNameRequired
	}
	if n.Transport != TransportUDP && n.Transport != TransportTCP {
		return ErrInvalidTransport
	}
	if n.Port <= 0 || n.Port > 65535 {
		return ErrInvalidNetPort
	}
	for _, p := range n.Peers {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates one statically-configured peer.
func (p PeerConfig) Validate() error {
	if p.CpuID == 0 {
		return ErrPeerCpuIDRequired
	}
	if p.Address == "" {
		return ErrPeerAddressRequired
	}
	return nil
}

// Validate validates the protocol engine timing thresholds, enforcing the
// ordering invariant the liveness state machine depends on.
func (t Timing) Validate() error {
	if t.Announce <= 0 || t.HBSend <= 0 || t.HBTimeout <= 0 {
		return ErrInvalidTiming
	}
	if !(t.Announce < t.HBSend && t.HBSend < t.HBTimeout) {
		return ErrInvalidTiming
	}
	if t.BootstrapResendEvery <= 0 {
		return ErrInvalidBootstrapResendEvery
	}
	return nil
}

// Validate checks that the three bootstrap handshake MessageIds are
// pairwise distinct; a collision would make the subscription dump request,
// its response, and the bus's INIT event indistinguishable on the wire.
func (b Bootstrap) Validate() error {
	if b.SubsRequestID == b.SubsResponseID ||
		b.SubsRequestID == b.InitEventID ||
		b.SubsResponseID == b.InitEventID {
		return ErrDuplicateBootstrapID
	}
	return nil
}

// Validate validates the Metrics configuration.
func (m Metrics) Validate() error {
	if !m.Enabled {
		return nil
	}
	if m.Bind == "" {
		return ErrInvalidMetricsBindAddress
	}
	if m.Port <= 0 || m.Port > 65535 {
		return ErrInvalidMetricsPort
	}
	return nil
}

// Validate validates the whole configuration tree.
func (c Config) Validate() error {
	if c.LogLevel != LogLevelDebug &&
		c.LogLevel != LogLevelInfo &&
		c.LogLevel != LogLevelWarn &&
		c.LogLevel != LogLevelError {
		return ErrInvalidLogLevel
	}

	if c.RunMode != RunModeInline && c.RunMode != RunModeTasked {
		return ErrInvalidRunMode
	}

	if c.Ident == "" {
		return ErrIdentRequired
	}

	if err := c.Timing.Validate(); err != nil {
		return err
	}

	if err := c.Metrics.Validate(); err != nil {
		return err
	}

	if err := c.Bootstrap.Validate(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(c.Nets))
	for _, n := range c.Nets {
		if err := n.Validate(); err != nil {
			return err
		}
		if _, ok := seen[n.Name]; ok {
			return ErrDuplicateNetName
		}
		seen[n.Name] = struct{}{}
	}

	return nil
}
