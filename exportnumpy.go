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

	"github.com/kshedden/gonpy"
	log "github.com/sirupsen/logrus"
)

// exportNumpy writes native model scores as a models x samples
// float64 .npy matrix for downstream numeric tooling. Row order is
// model order in the coefficient file; column order is sample order
// in the dosage header, optionally written to a label file.
type exportNumpy struct {
	dosageFile string
	modelFile  string
	outputFile string
	labelsFile string
	refName    string
	nbins      int
}

func (cmd *exportNumpy) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	flags.StringVar(&cmd.labelsFile, "labels", "", "also write model and sample labels to `file`")
	flags.StringVar(&cmd.refName, "ref", "external", "allele frequency reference for missing dosage imputation: external or internal")
	flags.StringVar(&cmd.refName, "r", "external", "short for -ref")
	flags.IntVar(&cmd.nbins, "bins", 100, "number of allele frequency bins")
	flags.IntVar(&cmd.nbins, "b", 100, "short for -bins")
	loglevel := flags.String("loglevel", "info", "logging threshold (trace, debug, info, warn, error, fatal, or panic)")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	}
	if cmd.dosageFile == "" || cmd.modelFile == "" {
		fmt.Fprintln(stderr, "cannot export without -dosages and -models arguments")
		flags.Usage()
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

	rows, cols := len(ms.ids), len(ds.samples)
	out := make([]float64, rows*cols)
	for i, mid := range ms.ids {
		copy(out[i*cols:(i+1)*cols], ds.score(ms.models[mid], ref))
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
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return 1
	}
	npw.Shape = []int{rows, cols}
	err = npw.WriteFloat64(out)
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
	if cmd.labelsFile != "" {
		err = cmd.writeLabels(ms, ds)
		if err != nil {
			return 1
		}
	}
	return 0
}

func (cmd *exportNumpy) writeLabels(ms *modelStore, ds *dosageStore) error {
	f, err := os.OpenFile(cmd.labelsFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0777)
	if err != nil {
		return err
	}
	defer f.Close()
	bufw := bufio.NewWriter(f)
	for i, mid := range ms.ids {
		fmt.Fprintf(bufw, "row,%d,%q\n", i, mid)
	}
	for i, sample := range ds.samples {
		fmt.Fprintf(bufw, "col,%d,%q\n", i, sample)
	}
	if err := bufw.Flush(); err != nil {
		return err
	}
	return f.Close()
}
