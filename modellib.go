// Copyright (C) The Nullpgs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package nullpgs

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
	log "github.com/sirupsen/logrus"
)

// afMismatchTolerance is the largest allowed difference between a
// model's own allele frequency estimate and the dosage data's for the
// same variant. Rows beyond it are excluded, not fatal.
const afMismatchTolerance = 0.05

type samplingRef int

const (
	// refExternal imputes missing dosages and picks resampling bins
	// using the model's own allele frequencies.
	refExternal samplingRef = iota
	// refInternal uses the dosage store's frequencies instead.
	refInternal
)

func parseSamplingRef(name string) (samplingRef, error) {
	switch name {
	case "external":
		return refExternal, nil
	case "internal":
		return refInternal, nil
	}
	return 0, fmt.Errorf("invalid sampling reference %q (want external or internal)", name)
}

// variantCoefficient is one weighted term of a linear model. af and
// afbin are the model's own frequency estimate, which may differ from
// the dosage store's.
type variantCoefficient struct {
	vid   string
	af    float64
	afbin int
	coef  float64
}

// model is an intercept plus an ordered list of weighted terms. Terms
// keep their file order so that resampling draws and floating point
// accumulation are reproducible; a vid may legitimately appear in more
// than one term of a null model.
type model struct {
	id     string
	offset float64
	coefs  []variantCoefficient
}

// modelStore keeps models in first-reference order.
type modelStore struct {
	ids    []string
	models map[string]*model
}

func (ms *modelStore) ref(id string) *model {
	if m, ok := ms.models[id]; ok {
		return m
	}
	m := &model{id: id}
	ms.models[id] = m
	ms.ids = append(ms.ids, id)
	return m
}

// loadModels reads a tab-separated model coefficient file. The first
// line is a header and is skipped. Each row is model id, variant id,
// an ignored column, the model's allele frequency estimate, and a
// coefficient ("NA" counts as 0). A row whose variant id is "OFFSET"
// sets the model intercept; that sentinel has no meaning outside this
// parser. Rows whose frequency disagrees with the dosage data by more
// than afMismatchTolerance are dropped with a warning.
func loadModels(path string, nbins int, ds *dosageStore) (*modelStore, error) {
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

	ms := &modelStore{models: map[string]*model{}}
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 1<<20), 1<<28)
	lineno := 0
	for scanner.Scan() {
		lineno++
		if lineno == 1 {
			continue
		}
		cols := strings.Split(scanner.Text(), "\t")
		if len(cols) < 5 {
			return nil, fmt.Errorf("%s line %d: %w: got %d columns, expected 5", path, lineno, errMalformedRecord, len(cols))
		}
		mid, vid := cols[0], cols[1]
		coef := 0.0
		if cols[4] != "NA" {
			coef, err = strconv.ParseFloat(cols[4], 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w: coefficient: %v", path, lineno, errMalformedRecord, err)
			}
		}
		m := ms.ref(mid)
		if vid == "OFFSET" {
			m.offset = coef
			continue
		}
		af, err := strconv.ParseFloat(cols[3], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w: allele frequency: %v", path, lineno, errMalformedRecord, err)
		}
		if row, ok := ds.rowOf[vid]; ok {
			if delta := math.Abs(af - ds.af[row]); delta > afMismatchTolerance {
				log.Warnf("%s line %d: model %s: excluding %s: allele frequency %g differs from dosage data %g by %g", path, lineno, mid, vid, af, ds.af[row], delta)
				continue
			}
		}
		m.coefs = append(m.coefs, variantCoefficient{
			vid:   vid,
			af:    af,
			afbin: frequencyBin(af, nbins),
			coef:  coef,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Infof("loaded %d models from %s", len(ms.ids), path)
	return ms, nil
}
