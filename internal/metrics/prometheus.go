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

package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"sbn-go/internal/peertable"
)

// Metrics exposes per-peer housekeeping telemetry (spec.md §6) as
// Prometheus gauges and counters.
type Metrics struct {
	PeerState      *prometheus.GaugeVec
	LastSend       *prometheus.GaugeVec
	LastRecv       *prometheus.GaugeVec
	BytesSentTotal *prometheus.CounterVec
	BytesRecvTotal *prometheus.CounterVec
	RemoteSubs     *prometheus.GaugeVec
	VersionSkew    *prometheus.CounterVec
}

// NewMetrics constructs and registers the SBN housekeeping metric set
// against the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith constructs the metric set against the given registerer, so
// tests can use an isolated prometheus.NewRegistry() instead of colliding on
// the global default.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PeerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sbn_peer_state",
			Help: "Current liveness state of a peer (0=announcing, 1=heartbeating)",
		}, []string{"net", "cpu_id"}),
		LastSend: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sbn_last_send_seconds",
			Help: "Unix timestamp of the last frame sent to a peer",
		}, []string{"net", "cpu_id"}),
		LastRecv: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sbn_last_recv_seconds",
			Help: "Unix timestamp of the last frame received from a peer",
		}, []string{"net", "cpu_id"}),
		BytesSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sbn_bytes_sent_total",
			Help: "Total bytes sent to a peer",
		}, []string{"net", "cpu_id"}),
		BytesRecvTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sbn_bytes_recv_total",
			Help: "Total bytes received from a peer",
		}, []string{"net", "cpu_id"}),
		RemoteSubs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sbn_remote_subs",
			Help: "Number of MessageIds a peer is currently subscribed to",
		}, []string{"net", "cpu_id"}),
		VersionSkew: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sbn_version_mismatch_total",
			Help: "Total ANNOUNCE frames observed with a mismatched protocol identity",
		}, []string{"net", "cpu_id"}),
	}
	m.register(reg)
	return m
}

func (m *Metrics) register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.PeerState,
		m.LastSend,
		m.LastRecv,
		m.BytesSentTotal,
		m.BytesRecvTotal,
		m.RemoteSubs,
		m.VersionSkew,
	)
}

// ObservePeer snapshots one peer's current housekeeping counters into the
// metric set. Called by the periodic housekeeping-flush job, not on every
// tick, matching spec.md §6's "periodic counters" framing.
func (m *Metrics) ObservePeer(netName string, p *peertable.Peer) {
	cpuID := cpuIDLabel(p.ProcessorID)

	state := 0.0
	if p.State() == peertable.Heartbeating {
		state = 1.0
	}
	m.PeerState.WithLabelValues(netName, cpuID).Set(state)

	if !p.LastSend().IsZero() {
		m.LastSend.WithLabelValues(netName, cpuID).Set(float64(p.LastSend().Unix()))
	}
	if !p.LastRecv().IsZero() {
		m.LastRecv.WithLabelValues(netName, cpuID).Set(float64(p.LastRecv().Unix()))
	}
	m.RemoteSubs.WithLabelValues(netName, cpuID).Set(float64(len(p.RemoteSubs())))
}

// AddBytesSent records bytes written to a peer's transport.
func (m *Metrics) AddBytesSent(netName string, id peertable.CpuID, n int) {
	m.BytesSentTotal.WithLabelValues(netName, cpuIDLabel(id)).Add(float64(n))
}

// AddBytesRecv records bytes read from a peer's transport.
func (m *Metrics) AddBytesRecv(netName string, id peertable.CpuID, n int) {
	m.BytesRecvTotal.WithLabelValues(netName, cpuIDLabel(id)).Add(float64(n))
}

// IncVersionMismatch records one ANNOUNCE identity mismatch for a peer.
func (m *Metrics) IncVersionMismatch(netName string, id peertable.CpuID) {
	m.VersionSkew.WithLabelValues(netName, cpuIDLabel(id)).Inc()
}

func cpuIDLabel(id peertable.CpuID) string {
	return strconv.FormatUint(uint64(id), 10)
}
