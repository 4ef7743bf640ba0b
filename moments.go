// Copyright (C) The Nullpgs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package nullpgs

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// summarize reduces a score vector to mean, population variance
// (divide by n, not n-1), and the mean third and fourth powers of the
// z-scored values. A constant input has no defined z-scores, so m3
// and m4 are reported as NaN in that case; callers emit them as-is.
func summarize(values []float64) (m1, m2, m3, m4 float64) {
	m1 = stat.Mean(values, nil)
	m2 = stat.MomentAbout(2, values, m1, nil)
	if m2 == 0 {
		return m1, 0, math.NaN(), math.NaN()
	}
	m3 = stat.MomentAbout(3, values, m1, nil) / math.Pow(m2, 1.5)
	m4 = stat.MomentAbout(4, values, m1, nil) / (m2 * m2)
	return
}
