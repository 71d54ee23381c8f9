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

// Package remap rewrites MessageIds crossing a Net boundary, for the case
// where two processors disagree on message numbering.
package remap

import (
	"sync"

	"sbn-go/internal/config"
	"sbn-go/internal/peertable"
)

// Table holds the per-Net local<->remote MessageId mappings. Entries not
// present in the table pass through unchanged.
type Table struct {
	mu       sync.RWMutex
	inbound  map[string]map[peertable.MessageId]peertable.MessageId
	outbound map[string]map[peertable.MessageId]peertable.MessageId
}

// New builds a Table from the module's configured remap entries.
func New(entries []config.Remap) *Table {
	t := &Table{
		inbound:  make(map[string]map[peertable.MessageId]peertable.MessageId),
		outbound: make(map[string]map[peertable.MessageId]peertable.MessageId),
	}
	for _, e := range entries {
		if t.inbound[e.Net] == nil {
			t.inbound[e.Net] = make(map[peertable.MessageId]peertable.MessageId)
			t.outbound[e.Net] = make(map[peertable.MessageId]peertable.MessageId)
		}
		t.inbound[e.Net][peertable.MessageId(e.RemoteID)] = peertable.MessageId(e.LocalID)
		t.outbound[e.Net][peertable.MessageId(e.LocalID)] = peertable.MessageId(e.RemoteID)
	}
	return t
}

// Inbound rewrites a MessageId received on net into the locally-known id.
func (t *Table) Inbound(net string, id peertable.MessageId) peertable.MessageId {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if m, ok := t.inbound[net]; ok {
		if mapped, ok := m[id]; ok {
			return mapped
		}
	}
	return id
}

// Outbound rewrites a locally-known MessageId into what net's peer expects.
func (t *Table) Outbound(net string, id peertable.MessageId) peertable.MessageId {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if m, ok := t.outbound[net]; ok {
		if mapped, ok := m[id]; ok {
			return mapped
		}
	}
	return id
}
