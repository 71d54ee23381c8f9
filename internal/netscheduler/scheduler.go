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

// Package netscheduler runs the periodic housekeeping telemetry flush on
// its own gocron cadence, independent of the protocol engine's tick. The
// tick itself stays driven by the main loop's command-pipe timeout per
// spec.md §4.4/§5; this scheduler only owns the snapshot-publish cadence.
package netscheduler

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"sbn-go/internal/metrics"
	"sbn-go/internal/peertable"
)

// HousekeepingScheduler periodically snapshots every known Peer's
// liveness/subscription counters into the metrics set.
type HousekeepingScheduler struct {
	scheduler gocron.Scheduler
	table     *peertable.Table
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// New creates a HousekeepingScheduler. It returns an error if the
// underlying gocron scheduler cannot be constructed.
func New(table *peertable.Table, m *metrics.Metrics, log *slog.Logger) (*HousekeepingScheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &HousekeepingScheduler{scheduler: s, table: table, metrics: m, log: log}, nil
}

// RegisterFlush schedules the housekeeping snapshot job on the given
// interval.
func (h *HousekeepingScheduler) RegisterFlush(interval time.Duration) error {
	_, err := h.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(h.flush),
		gocron.WithName("housekeeping-flush"),
	)
	return err
}

// Start starts the underlying gocron scheduler.
func (h *HousekeepingScheduler) Start() {
	h.scheduler.Start()
}

// Stop shuts down the underlying gocron scheduler.
func (h *HousekeepingScheduler) Stop() {
	if err := h.scheduler.Shutdown(); err != nil && h.log != nil {
		h.log.Error("failed to shut down housekeeping scheduler", "error", err)
	}
}

func (h *HousekeepingScheduler) flush() {
	if h.metrics == nil {
		return
	}
	for _, net := range h.table.Nets() {
		for _, p := range net.Peers() {
			h.metrics.ObservePeer(net.Name, p)
		}
	}
}
