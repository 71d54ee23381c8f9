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

import "time"

// Config stores the application configuration, loaded via configulator from
// a YAML file and environment variable overrides.
type Config struct {
	LogLevel LogLevel `yaml:"log_level" default:"info"`
	CpuID    uint32   `yaml:"cpu_id"`
	RunMode  RunMode  `yaml:"run_mode" default:"inline"`
	// Ident identifies this node's protocol version in every ANNOUNCE
	// frame it sends; a peer carrying a different Ident still promotes
	// and exchanges subscriptions, but the mismatch is logged and counted.
	Ident string `yaml:"ident" default:"sbn-go-v1"`

	Nets      []Net     `yaml:"nets"`
	Timing    Timing    `yaml:"timing"`
	Metrics   Metrics   `yaml:"metrics"`
	Remap     []Remap   `yaml:"remap"`
	Bootstrap Bootstrap `yaml:"bootstrap"`
}

// Bootstrap names the well-known MessageIds the local Software Bus uses for
// the startup handshake (spec.md §4.4): requesting a subscription dump,
// the bus's reply, and its INIT lifecycle event. These default to a
// reserved range unlikely to collide with application MessageIds.
type Bootstrap struct {
	SubsRequestID  uint16 `yaml:"subs_request_id" default:"65533"`
	SubsResponseID uint16 `yaml:"subs_response_id" default:"65534"`
	InitEventID    uint16 `yaml:"init_event_id" default:"65535"`
}

// Net describes one configured peer network a transport plugin will bridge.
type Net struct {
	Name      string     `yaml:"name"`
	Transport TransportKind `yaml:"transport" default:"udp"`
	Enabled   bool       `yaml:"enabled" default:"true"`
	Bind      string     `yaml:"bind"`
	Port      int        `yaml:"port"`
	Peers     []PeerConfig `yaml:"peers"`
}

// PeerConfig describes one statically-configured remote processor.
type PeerConfig struct {
	Name      string `yaml:"name"`
	CpuID     uint32 `yaml:"cpu_id"`
	Address   string `yaml:"address"`
	Port      int    `yaml:"port"`
}

// Remap rewrites a MessageId when forwarding a message onto a Net, allowing
// two processors that disagree on message numbering to interoperate.
type Remap struct {
	Net        string `yaml:"net"`
	LocalID    uint16 `yaml:"local_id"`
	RemoteID   uint16 `yaml:"remote_id"`
}

// Timing holds the protocol engine's tunable thresholds, all expressed as
// durations so they can be supplied in the config file as "500ms" etc.
type Timing struct {
	Announce  time.Duration `yaml:"announce" default:"2s"`
	HBSend    time.Duration `yaml:"hb_send" default:"5s"`
	HBTimeout time.Duration `yaml:"hb_timeout" default:"15s"`
	Tick      time.Duration `yaml:"tick" default:"1s"`
	BootstrapPoll time.Duration `yaml:"bootstrap_poll" default:"3s"`
	BootstrapResendEvery int `yaml:"bootstrap_resend_every" default:"5"`
}

// Metrics controls the optional Prometheus metrics HTTP server.
type Metrics struct {
	Enabled bool   `yaml:"enabled" default:"false"`
	Bind    string `yaml:"bind" default:"0.0.0.0"`
	Port    int    `yaml:"port" default:"9100"`
	FlushInterval time.Duration `yaml:"flush_interval" default:"5s"`
}
