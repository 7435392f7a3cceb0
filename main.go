// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/jcodagnone/geobatch/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
