// Copyright (C) The Nullpgs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package nullpgs

import (
	"fmt"
	"math"

	"gopkg.in/check.v1"
)

type momentsSuite struct{}

var _ = check.Suite(&momentsSuite{})

func (s *momentsSuite) TestSummarize(c *check.C) {
	m1, m2, m3, m4 := summarize([]float64{1, 2, 3, 4})
	c.Check(m1, check.Equals, 2.5)
	c.Check(m2, check.Equals, 1.25)
	c.Check(fmt.Sprintf("%.6f", m3), check.Equals, "0.000000")
	c.Check(fmt.Sprintf("%.6f", m4), check.Equals, "1.640000")
}

func (s *momentsSuite) TestSummarizeSkewed(c *check.C) {
	// one outlier drags the mean and produces positive skew
	m1, m2, m3, _ := summarize([]float64{0, 0, 0, 0, 10})
	c.Check(m1, check.Equals, 2.0)
	c.Check(m2, check.Equals, 16.0)
	c.Check(fmt.Sprintf("%.6f", m3), check.Equals, "1.500000")
}

func (s *momentsSuite) TestSummarizeConstantInput(c *check.C) {
	// zero variance: z-scores are undefined, reported as NaN
	m1, m2, m3, m4 := summarize([]float64{5, 5, 5, 5})
	c.Check(m1, check.Equals, 5.0)
	c.Check(m2, check.Equals, 0.0)
	c.Check(math.IsNaN(m3), check.Equals, true)
	c.Check(math.IsNaN(m4), check.Equals, true)
}
