// Copyright (C) The Nullpgs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"github.com/nullpgs/nullpgs"
)

func main() {
	nullpgs.Main()
}
