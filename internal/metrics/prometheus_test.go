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

package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sbn-go/internal/metrics"
	"sbn-go/internal/peertable"
)

func TestObservePeerReportsState(t *testing.T) {
	m := metrics.NewMetricsWith(prometheus.NewRegistry())

	p := peertable.NewPeer("wired", 2, "cpu2", 4)
	p.Promote(time.Unix(1000, 0))
	p.AddRemoteSub(7, 0)
	p.AddRemoteSub(8, 1)

	m.ObservePeer("wired", p)

	require.Equal(t, float64(1), testutil.ToFloat64(m.PeerState.WithLabelValues("wired", "2")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.RemoteSubs.WithLabelValues("wired", "2")))
	assert.Equal(t, float64(1000), testutil.ToFloat64(m.LastRecv.WithLabelValues("wired", "2")))
}

func TestAddBytesAndVersionMismatch(t *testing.T) {
	m := metrics.NewMetricsWith(prometheus.NewRegistry())

	m.AddBytesSent("wired", 3, 10)
	m.AddBytesSent("wired", 3, 5)
	m.AddBytesRecv("wired", 3, 2)
	m.IncVersionMismatch("wired", 3)

	assert.Equal(t, float64(15), testutil.ToFloat64(m.BytesSentTotal.WithLabelValues("wired", "3")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.BytesRecvTotal.WithLabelValues("wired", "3")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.VersionSkew.WithLabelValues("wired", "3")))
}
