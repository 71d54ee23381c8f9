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
	"time"

	"sbn-go/internal/peertable"
)

// HousekeepingRecord is one peer's housekeeping snapshot: the same counters
// ObservePeer pushes into Prometheus, shaped instead for an external
// collaborator (e.g. a ground command handler) to embed into its own
// telemetry packet without scraping /metrics.
type HousekeepingRecord struct {
	Net                  string
	CpuID                peertable.CpuID
	State                peertable.State
	LastSend             time.Time
	LastRecv             time.Time
	RemoteSubCount       int
	VersionMismatchCount uint32
}

// Snapshot walks every Net in table and returns one HousekeepingRecord per
// known peer, in no particular order.
func Snapshot(table *peertable.Table) []HousekeepingRecord {
	var out []HousekeepingRecord
	for _, net := range table.Nets() {
		for _, p := range net.Peers() {
			out = append(out, HousekeepingRecord{
				Net:                  net.Name,
				CpuID:                p.ProcessorID,
				State:                p.State(),
				LastSend:             p.LastSend(),
				LastRecv:             p.LastRecv(),
				RemoteSubCount:       len(p.RemoteSubs()),
				VersionMismatchCount: p.VersionMismatchCount(),
			})
		}
	}
	return out
}
