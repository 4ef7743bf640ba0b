// Copyright (C) The Nullpgs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package nullpgs

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

// defaultSeed makes bare runs reproducible across hosts.
const defaultSeed = 2463534242

// score evaluates a model against every sample. Each sample starts at
// the model offset. A term whose variant is genotyped adds
// dosage*coef for called samples; missing genotypes are imputed as
// 2*af*coef, with af taken from the dosage store (refInternal) or the
// term itself (refExternal). A term whose variant is absent from the
// store adds 2*af*coef uniformly to every sample — a constant shift
// that preserves ranking but carries no per-sample information.
func (ds *dosageStore) score(m *model, ref samplingRef) []float64 {
	nsamples := len(ds.samples)
	scores := make([]float64, nsamples)
	for i := range scores {
		scores[i] = m.offset
	}
	for _, vc := range m.coefs {
		row, ok := ds.rowOf[vc.vid]
		if !ok {
			shift := 2 * vc.af * vc.coef
			for i := range scores {
				scores[i] += shift
			}
			continue
		}
		impute := 2 * vc.af * vc.coef
		if ref == refInternal {
			impute = 2 * ds.af[row] * vc.coef
		}
		base := row * nsamples
		for i := 0; i < nsamples; i++ {
			if d := ds.dosages[base+i]; d >= 0 {
				scores[i] += float64(d) * vc.coef
			} else {
				scores[i] += impute
			}
		}
	}
	return scores
}

type scorecmd struct {
	dosageFile string
	modelFile  string
	outputFile string
	format     string
	iterations int
	refName    string
	nbins      int
	seed       uint64
}

func (cmd *scorecmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&cmd.dosageFile, "dosages", "", "genotype dosage `file` (tab separated, required)")
	flags.StringVar(&cmd.dosageFile, "d", "", "short for -dosages")
	flags.StringVar(&cmd.modelFile, "models", "", "model coefficient `file` (tab separated, required)")
	flags.StringVar(&cmd.modelFile, "m", "", "short for -models")
	flags.StringVar(&cmd.outputFile, "out", "-", "output `file`")
	flags.StringVar(&cmd.outputFile, "o", "-", "short for -out")
	flags.StringVar(&cmd.format, "format", "complete", "output layout: complete (per sample) or summary (moments per iteration)")
	flags.StringVar(&cmd.format, "f", "complete", "short for -format")
	flags.IntVar(&cmd.iterations, "iter", 1000, "number of null model iterations per model")
	flags.IntVar(&cmd.iterations, "i", 1000, "short for -iter")
	flags.StringVar(&cmd.refName, "ref", "external", "allele frequency reference for imputation and bin matching: external (model's own) or internal (dosage data)")
	flags.StringVar(&cmd.refName, "r", "external", "short for -ref")
	flags.IntVar(&cmd.nbins, "bins", 100, "number of allele frequency bins")
	flags.IntVar(&cmd.nbins, "b", 100, "short for -bins")
	flags.Uint64Var(&cmd.seed, "seed", defaultSeed, "master seed for null model generation")
	flags.Uint64Var(&cmd.seed, "s", defaultSeed, "short for -seed")
	loglevel := flags.String("loglevel", "info", "logging threshold (trace, debug, info, warn, error, fatal, or panic)")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	}
	if cmd.dosageFile == "" || cmd.modelFile == "" {
		fmt.Fprintln(stderr, "cannot score without -dosages and -models arguments")
		flags.Usage()
		return 2
	}
	if cmd.format != "complete" && cmd.format != "summary" {
		fmt.Fprintf(stderr, "invalid format %q (want complete or summary)\n", cmd.format)
		return 2
	}
	if cmd.iterations < 0 {
		fmt.Fprintf(stderr, "invalid iteration count %d\n", cmd.iterations)
		return 2
	}
	ref, err := parseSamplingRef(cmd.refName)
	if err != nil {
		return 2
	}
	lvl, err := log.ParseLevel(*loglevel)
	if err != nil {
		return 2
	}
	log.SetLevel(lvl)

	ds, err := loadDosages(cmd.dosageFile, cmd.nbins)
	if err != nil {
		return 1
	}
	ms, err := loadModels(cmd.modelFile, cmd.nbins, ds)
	if err != nil {
		return 1
	}

	var output io.WriteCloser
	if cmd.outputFile == "-" {
		output = nopCloser{stdout}
	} else {
		output, err = os.OpenFile(cmd.outputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0777)
		if err != nil {
			return 1
		}
		defer output.Close()
	}
	bufw := bufio.NewWriter(output)
	err = cmd.runScores(ds, ms, ref, bufw)
	if err != nil {
		return 1
	}
	err = bufw.Flush()
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	return 0
}

// runScores is the batch sequence: all subseeds are drawn from the
// master generator up front, so the subseed assigned to iteration k
// does not depend on how many models are scored or in what order.
// Iteration 0 is the native (unpermuted) pass; its seed column is the
// run seed, recorded as metadata only.
func (cmd *scorecmd) runScores(ds *dosageStore, ms *modelStore, ref samplingRef, w io.Writer) error {
	master := rand.New(rand.NewSource(cmd.seed))
	subseeds := make([]uint64, cmd.iterations)
	for i := range subseeds {
		subseeds[i] = master.Uint64()
	}

	extRef := 0
	if ref == refExternal {
		extRef = 1
	}
	var err error
	if cmd.format == "complete" {
		_, err = fmt.Fprintln(w, "model\tsample\titer\tseed\tnafbins\texternal_ref_af\tvalue")
	} else {
		_, err = fmt.Fprintln(w, "model\titer\tseed\tnafbins\texternal_ref_af\tm1\tm2\tm3\tm4")
	}
	if err != nil {
		return err
	}
	emit := func(mid string, iter int, seed uint64, scores []float64) error {
		if cmd.format == "complete" {
			for i, v := range scores {
				if _, err := fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%v\n", mid, ds.samples[i], iter, seed, cmd.nbins, extRef, v); err != nil {
					return err
				}
			}
			return nil
		}
		m1, m2, m3, m4 := summarize(scores)
		_, err := fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%v\t%v\t%v\t%v\n", mid, iter, seed, cmd.nbins, extRef, m1, m2, m3, m4)
		return err
	}

	for _, mid := range ms.ids {
		m := ms.models[mid]
		if err := emit(mid, 0, cmd.seed, ds.score(m, ref)); err != nil {
			return err
		}
		for iter := 1; iter <= cmd.iterations; iter++ {
			null, err := generateNull(m, ds, ref, subseeds[iter-1])
			if err != nil {
				return err
			}
			if err := emit(mid, iter, subseeds[iter-1], ds.score(null, ref)); err != nil {
				return err
			}
		}
		log.Infof("model %s: native pass + %d null iterations scored", mid, cmd.iterations)
	}
	return nil
}
