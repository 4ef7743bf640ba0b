// Copyright (C) The Nullpgs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package nullpgs

import (
	"errors"

	"gopkg.in/check.v1"
)

type nullmodelSuite struct{}

var _ = check.Suite(&nullmodelSuite{})

// Six variants, all with af 0.5 so they share one bin under any bin
// count, plus the testDosages store for bin-specific cases.
const nullTestDosages = "vid\tchrom\tpos\ts1\ts2\n" +
	"v1\t1\t100\t0\t2\n" +
	"v2\t1\t200\t1\t1\n" +
	"v3\t1\t300\t2\t0\n" +
	"v4\t1\t400\t0\t2\n" +
	"v5\t1\t500\t1\t1\n" +
	"v6\t1\t600\t2\t0\n"

func (s *nullmodelSuite) TestDeterminism(c *check.C) {
	ds, err := loadDosages(writeTestFile(c, "dosages.tsv", nullTestDosages), 10)
	c.Assert(err, check.IsNil)
	src := &model{id: "m1", offset: 0.25, coefs: []variantCoefficient{
		{vid: "v1", af: 0.5, afbin: 5, coef: 1},
		{vid: "v4", af: 0.5, afbin: 5, coef: -2},
		{vid: "v6", af: 0.5, afbin: 5, coef: 0.5},
	}}
	a, err := generateNull(src, ds, refExternal, 12345)
	c.Assert(err, check.IsNil)
	b, err := generateNull(src, ds, refExternal, 12345)
	c.Assert(err, check.IsNil)
	c.Check(a, check.DeepEquals, b)
}

func (s *nullmodelSuite) TestTermCountAndWeightsPreserved(c *check.C) {
	ds, err := loadDosages(writeTestFile(c, "dosages.tsv", nullTestDosages), 10)
	c.Assert(err, check.IsNil)
	src := &model{id: "m1", offset: 3, coefs: []variantCoefficient{
		{vid: "v1", af: 0.5, afbin: 5, coef: 1},
		{vid: "vAbsent", af: 0.5, afbin: 5, coef: 9},
		{vid: "v2", af: 0.5, afbin: 5, coef: -2},
		{vid: "vAlsoAbsent", af: 0.5, afbin: 5, coef: 9},
		{vid: "v3", af: 0.5, afbin: 5, coef: 0.5},
	}}
	null, err := generateNull(src, ds, refExternal, 99)
	c.Assert(err, check.IsNil)
	// only the terms absent from the dosage data are dropped
	c.Assert(len(null.coefs), check.Equals, 3)
	c.Check(null.offset, check.Equals, 3.0)
	weights := []float64{}
	for _, vc := range null.coefs {
		_, present := ds.rowOf[vc.vid]
		c.Check(present, check.Equals, true)
		c.Check(vc.af, check.Equals, ds.af[ds.rowOf[vc.vid]])
		c.Check(vc.afbin, check.Equals, ds.afbin[ds.rowOf[vc.vid]])
		weights = append(weights, vc.coef)
	}
	c.Check(weights, check.DeepEquals, []float64{1, -2, 0.5})
}

func (s *nullmodelSuite) TestFrequencyMatched(c *check.C) {
	// testDosages has one variant per occupied bin, so resampling can
	// only return the variant already in the term's bin.
	ds, err := loadDosages(writeTestFile(c, "dosages.tsv", testDosages), 10)
	c.Assert(err, check.IsNil)
	src := &model{id: "m1", coefs: []variantCoefficient{
		{vid: "v1", af: 0.5, afbin: 5, coef: 1},
		{vid: "v3", af: 1, afbin: 9, coef: 2},
	}}
	for seed := uint64(0); seed < 20; seed++ {
		null, err := generateNull(src, ds, refExternal, seed)
		c.Assert(err, check.IsNil)
		c.Check(null.coefs[0].vid, check.Equals, "v1")
		c.Check(null.coefs[1].vid, check.Equals, "v3")
	}
}

func (s *nullmodelSuite) TestEmptyBinFatal(c *check.C) {
	ds, err := loadDosages(writeTestFile(c, "dosages.tsv", testDosages), 10)
	c.Assert(err, check.IsNil)
	// v1 is genotyped, but the model's own frequency estimate puts it
	// in bin 4, which has no members.
	src := &model{id: "m1", coefs: []variantCoefficient{
		{vid: "v1", af: 0.45, afbin: 4, coef: 1},
	}}
	_, err = generateNull(src, ds, refExternal, 1)
	c.Check(errors.Is(err, errEmptyAFBin), check.Equals, true)

	// With the internal reference the store's own bin (5) is used
	// instead, and that bin is occupied.
	null, err := generateNull(src, ds, refInternal, 1)
	c.Assert(err, check.IsNil)
	c.Check(null.coefs[0].vid, check.Equals, "v1")
}
