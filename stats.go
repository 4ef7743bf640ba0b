// Copyright (C) The Nullpgs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package nullpgs

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// dosageStatsCmd reports dosage file diagnostics as JSON, most
// usefully the AF bin occupancy: an empty bin here means a later
// scoring run can fail during null generation.
type dosageStatsCmd struct {
	dosageFile string
	outputFile string
	nbins      int
}

func (cmd *dosageStatsCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	flags.StringVar(&cmd.outputFile, "out", "-", "output `file`")
	flags.StringVar(&cmd.outputFile, "o", "-", "short for -out")
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
	if cmd.dosageFile == "" {
		fmt.Fprintln(stderr, "cannot compute stats without -dosages argument")
		flags.Usage()
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
	err = cmd.doStats(ds, bufw)
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

func (cmd *dosageStatsCmd) doStats(ds *dosageStore, output io.Writer) error {
	var ret struct {
		Samples          int
		Variants         int
		AFBins           int
		MissingGenotypes int64
		MinBinOccupancy  int
		MaxBinOccupancy  int
		EmptyBins        []int `json:",omitempty"`
	}
	ret.Samples = len(ds.samples)
	ret.Variants = len(ds.variants)
	ret.AFBins = ds.nbins
	ret.MissingGenotypes = ds.nmissing
	ret.MinBinOccupancy, ret.EmptyBins = ds.binOccupancy()
	for _, members := range ds.bins {
		if len(members) > ret.MaxBinOccupancy {
			ret.MaxBinOccupancy = len(members)
		}
	}
	return json.NewEncoder(output).Encode(ret)
}
