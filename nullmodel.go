// Copyright (C) The Nullpgs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package nullpgs

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// generateNull builds a frequency-matched permutation of src: each
// term whose variant exists in the dosage store is re-keyed to a
// variant drawn uniformly, with replacement, from the matching AF bin
// (the store's bin of the source variant for refInternal, the term's
// own bin for refExternal). The drawn term carries the sampled
// variant's store frequency and bin but keeps the original weight.
// Terms whose variant is absent from the dosage store are dropped —
// there is nothing to frequency-match them against. The offset is
// copied unchanged.
//
// The generator is seeded from the caller's seed and owns all of its
// state, so a given (model, seed) pair always yields the same null
// model. Sampling with replacement means a null model may reuse one
// underlying variant for several terms, and no linkage or distance
// constraint is applied between draws.
func generateNull(src *model, ds *dosageStore, ref samplingRef, seed uint64) (*model, error) {
	rng := rand.New(rand.NewSource(seed))
	null := &model{
		id:     src.id,
		offset: src.offset,
		coefs:  make([]variantCoefficient, 0, len(src.coefs)),
	}
	for _, vc := range src.coefs {
		row, ok := ds.rowOf[vc.vid]
		if !ok {
			continue
		}
		bin := vc.afbin
		if ref == refInternal {
			bin = ds.afbin[row]
		}
		members := ds.bins[bin]
		if len(members) == 0 {
			return nil, fmt.Errorf("model %s: resampling %s: %w %d/%d", src.id, vc.vid, errEmptyAFBin, bin, ds.nbins)
		}
		pick := members[rng.Intn(len(members))]
		null.coefs = append(null.coefs, variantCoefficient{
			vid:   ds.variants[pick],
			af:    ds.af[pick],
			afbin: ds.afbin[pick],
			coef:  vc.coef,
		})
	}
	return null, nil
}
