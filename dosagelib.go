// Copyright (C) The Nullpgs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package nullpgs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
	log "github.com/sirupsen/logrus"
)

var (
	errDuplicateSample   = errors.New("duplicate sample identifier")
	errDuplicateVariant  = errors.New("duplicate variant identifier")
	errMalformedRecord   = errors.New("malformed record")
	errInvalidDosage     = errors.New("invalid dosage code")
	errAllAllelesMissing = errors.New("all genotypes missing")
	errEmptyAFBin        = errors.New("empty allele frequency bin")
)

// dosageStore holds one dense genotype dosage matrix plus per-variant
// allele frequency metadata. It is built once by loadDosages and never
// mutated afterwards, so it can be shared freely across every model
// and null iteration. The matrix is a single allocation of
// n_variants*n_samples bytes; a 1M x 1M cohort needs ~1 TB, which
// makes matrix size the scaling limit of this tool.
type dosageStore struct {
	nbins    int
	samples  []string
	variants []string       // row -> variant id
	rowOf    map[string]int // variant id -> row
	af       []float64      // row -> alt allele frequency
	afbin    []int          // row -> frequency bin
	bins     [][]int        // bin -> member rows, in load order
	dosages  []int8         // row-major; 0/1/2 alt copies, -1 missing
	nmissing int64
}

// frequencyBin maps an allele frequency to its bin. af==1.0 belongs to
// the top bin, not one past it.
func frequencyBin(af float64, nbins int) int {
	bin := int(math.Floor(af * float64(nbins)))
	if bin < 0 {
		bin = 0
	} else if bin >= nbins {
		bin = nbins - 1
	}
	return bin
}

// loadDosages reads a tab-separated dosage file. Header columns after
// the first three are sample identifiers; each data row is a variant
// id, two ignored columns, and one dosage character per sample.
func loadDosages(path string, nbins int) (*dosageStore, error) {
	if nbins < 1 {
		return nil, fmt.Errorf("invalid bin count %d", nbins)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var input io.Reader = bufio.NewReaderSize(f, 1<<20)
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(input)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer gz.Close()
		input = gz
	}

	ds := &dosageStore{
		nbins: nbins,
		rowOf: map[string]int{},
		bins:  make([][]int, nbins),
	}
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 1<<20), 1<<28)
	lineno := 0
	for scanner.Scan() {
		lineno++
		cols := strings.Split(scanner.Text(), "\t")
		if lineno == 1 {
			if len(cols) < 4 {
				return nil, fmt.Errorf("%s line %d: %w: header has %d columns, need at least 4", path, lineno, errMalformedRecord, len(cols))
			}
			seen := make(map[string]bool, len(cols)-3)
			for _, sample := range cols[3:] {
				if seen[sample] {
					return nil, fmt.Errorf("%s line 1: %w: %q", path, errDuplicateSample, sample)
				}
				seen[sample] = true
			}
			ds.samples = cols[3:]
			continue
		}
		if len(cols) != 3+len(ds.samples) {
			return nil, fmt.Errorf("%s line %d: %w: got %d columns, expected %d", path, lineno, errMalformedRecord, len(cols), 3+len(ds.samples))
		}
		vid := cols[0]
		if _, dup := ds.rowOf[vid]; dup {
			return nil, fmt.Errorf("%s line %d: %w: %q", path, lineno, errDuplicateVariant, vid)
		}
		altsum, called := 0, 0
		for _, code := range cols[3:] {
			var d int8
			switch code {
			case "0":
				d = 0
			case "1":
				d = 1
			case "2":
				d = 2
			case "-":
				d = -1
			default:
				return nil, fmt.Errorf("%s line %d: variant %q: %w: %q", path, lineno, vid, errInvalidDosage, code)
			}
			if d >= 0 {
				altsum += int(d)
				called++
			} else {
				ds.nmissing++
			}
			ds.dosages = append(ds.dosages, d)
		}
		if called == 0 {
			return nil, fmt.Errorf("%s line %d: variant %q: %w", path, lineno, vid, errAllAllelesMissing)
		}
		af := float64(altsum) / float64(2*called)
		bin := frequencyBin(af, nbins)
		row := len(ds.variants)
		ds.rowOf[vid] = row
		ds.variants = append(ds.variants, vid)
		ds.af = append(ds.af, af)
		ds.afbin = append(ds.afbin, bin)
		ds.bins[bin] = append(ds.bins[bin], row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if lineno == 0 {
		return nil, fmt.Errorf("%s: %w: empty file", path, errMalformedRecord)
	}

	min, empty := ds.binOccupancy()
	log.Infof("loaded %d variants x %d samples from %s, minimum AF bin occupancy %d", len(ds.variants), len(ds.samples), path, min)
	if len(empty) > 0 {
		log.Warnf("%d of %d AF bins are empty; null generation will fail if a model coefficient falls in an empty bin", len(empty), nbins)
	}
	return ds, nil
}

// binOccupancy returns the minimum member count across all bins and
// the indexes of the empty bins.
func (ds *dosageStore) binOccupancy() (min int, empty []int) {
	min = -1
	for bin, members := range ds.bins {
		if min < 0 || len(members) < min {
			min = len(members)
		}
		if len(members) == 0 {
			empty = append(empty, bin)
		}
	}
	return
}

func (ds *dosageStore) dosage(row, col int) int8 {
	return ds.dosages[row*len(ds.samples)+col]
}
