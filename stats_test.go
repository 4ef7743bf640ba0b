// Copyright (C) The Nullpgs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package nullpgs

import (
	"bytes"
	"encoding/json"

	"gopkg.in/check.v1"
)

type statsSuite struct{}

var _ = check.Suite(&statsSuite{})

func (s *statsSuite) TestDosageStats(c *check.C) {
	dosagePath := writeTestFile(c, "dosages.tsv", testDosages)
	var stdout bytes.Buffer
	exited := (&dosageStatsCmd{}).RunCommand("dosage-stats", []string{
		"-d", dosagePath,
		"-b", "10",
		"-loglevel", "warn",
	}, &bytes.Buffer{}, &stdout, &bytes.Buffer{})
	c.Assert(exited, check.Equals, 0)

	var ret struct {
		Samples          int
		Variants         int
		AFBins           int
		MissingGenotypes int64
		MinBinOccupancy  int
		MaxBinOccupancy  int
		EmptyBins        []int
	}
	err := json.Unmarshal(stdout.Bytes(), &ret)
	c.Assert(err, check.IsNil)
	c.Check(ret.Samples, check.Equals, 4)
	c.Check(ret.Variants, check.Equals, 3)
	c.Check(ret.AFBins, check.Equals, 10)
	c.Check(ret.MissingGenotypes, check.Equals, int64(1))
	c.Check(ret.MinBinOccupancy, check.Equals, 0)
	c.Check(ret.MaxBinOccupancy, check.Equals, 1)
	c.Check(len(ret.EmptyBins), check.Equals, 7)
}
