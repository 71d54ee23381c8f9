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

package main

import (
	"fmt"
	"os"

	"sbn-go/internal/cmd"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := cmd.NewCommand(version, commit).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
