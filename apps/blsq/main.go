// Copyright 2025 BLS Query Authors

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command blsq fetches BLS time series and prints them in tidy form.
//
// Usage:
//
//	blsq [flags] token [token...]
//
// where each token is a mapping alias, a "CU:field=value" pattern, or a
// literal series identifier.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/blsquery/blsquery/bls"
	"github.com/blsquery/blsquery/catalog"
	"github.com/blsquery/blsquery/extract"
	"github.com/blsquery/blsquery/series"
	"github.com/blsquery/blsquery/table"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	toml "github.com/pelletier/go-toml/v2"
)

type Flags struct {
	Config        string // optional TOML config file
	Mapping       string // alias mapping file, CSV or JSON
	Catalog       string // CPI master list CSV
	Start         int    // start year; 0 uses the API default window
	End           int    // end year
	Metadata      bool   // request and print per-series catalog metadata
	Calculations  bool
	AnnualAverage bool
	Aspects       bool
	Stats         bool   // print per-series summary statistics
	Out           string // write CSV to this file instead of printing
	Sample        int    // max rows to print without -out
	Tokens        []string
	LogLevel      logging.Level
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("blsq", flag.ExitOnError)
	fs.StringVar(&flags.Config, "config", "", "TOML configuration file")
	fs.StringVar(&flags.Mapping, "mapping", "", "alias mapping file (.csv or .json)")
	fs.StringVar(&flags.Catalog, "catalog", "", "CPI master list CSV for pattern expansion")
	fs.IntVar(&flags.Start, "start", 0, "start year; 0 requests the API default window")
	fs.IntVar(&flags.End, "end", 0, "end year; 0 requests the API default window")
	fs.BoolVar(&flags.Metadata, "metadata", false, "request per-series catalog metadata")
	fs.BoolVar(&flags.Calculations, "calculations", false, "request net and percent changes")
	fs.BoolVar(&flags.AnnualAverage, "annual-average", false, "request annual averages")
	fs.BoolVar(&flags.Aspects, "aspects", false, "request observation aspects")
	fs.BoolVar(&flags.Stats, "stats", false, "print per-series summary statistics")
	fs.StringVar(&flags.Out, "out", "", "write full results as CSV to this file")
	fs.IntVar(&flags.Sample, "sample", 25, "max rows to print without -out; 0 = all")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	flags.Tokens = fs.Args()
	if len(flags.Tokens) == 0 {
		return nil, errors.Reason("at least one series token is required")
	}
	if (flags.Start == 0) != (flags.End == 0) {
		return nil, errors.Reason("-start and -end must be set together")
	}
	return &flags, nil
}

type Config struct {
	Keys        []string `toml:"keys"` // BLS registration keys
	Mapping     string   `toml:"mapping"`
	Catalog     string   `toml:"catalog"`
	Concurrency int      `toml:"concurrency"`
	QPS         float64  `toml:"qps"`
	MaxAttempts int      `toml:"max_attempts"`
}

func parseConfig(filePath string) (*Config, error) {
	var c Config
	if filePath == "" {
		return &c, nil
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open config file %s", filePath)
	}
	defer f.Close()

	d := toml.NewDecoder(f)
	if err := d.Decode(&c); err != nil {
		return nil, errors.Annotate(err, "failed to read config file %s", filePath)
	}
	return &c, nil
}

// newResolver assembles the resolver from the mapping and catalog files, with
// flags taking precedence over the config.
func newResolver(flags *Flags, config *Config) (*series.Resolver, error) {
	mappingPath := flags.Mapping
	if mappingPath == "" {
		mappingPath = config.Mapping
	}
	mapping := series.Mapping{}
	if mappingPath != "" {
		var err error
		if mapping, err = series.LoadMapping(mappingPath); err != nil {
			return nil, errors.Annotate(err, "failed to load mapping")
		}
	}
	catalogPath := flags.Catalog
	if catalogPath == "" {
		catalogPath = config.Catalog
	}
	var cat *catalog.Catalog
	if catalogPath != "" {
		var err error
		if cat, err = catalog.Load(catalogPath); err != nil {
			return nil, errors.Annotate(err, "failed to load catalog")
		}
	}
	return series.NewResolver(mapping, cat), nil
}

func run(ctx context.Context, flags *Flags) error {
	config, err := parseConfig(flags.Config)
	if err != nil {
		return errors.Annotate(err, "failed to parse config")
	}
	resolver, err := newResolver(flags, config)
	if err != nil {
		return err
	}
	var keys bls.KeySupplier
	if len(config.Keys) > 0 {
		keys = bls.RandomKeyPool(config.Keys)
	} else {
		keys = bls.KeyPoolFromEnv()
	}
	retry := bls.DefaultRetryConfig()
	if config.MaxAttempts > 0 {
		retry.MaxAttempts = config.MaxAttempts
	}
	ctx = bls.UseClient(ctx, bls.Config{
		Keys:  keys,
		QPS:   config.QPS,
		Retry: retry,
	})

	var years bls.YearRange
	if flags.Start != 0 {
		if years, err = bls.NewYearRange(flags.Start, flags.End); err != nil {
			return err
		}
	}
	e := &extract.Extractor{Resolver: resolver, Concurrency: config.Concurrency}
	result, err := e.Extract(ctx, extract.Request{
		Tokens: flags.Tokens,
		Years:  years,
		Flags: bls.RequestFlags{
			Catalog:       flags.Metadata,
			Calculations:  flags.Calculations,
			AnnualAverage: flags.AnnualAverage,
			Aspects:       flags.Aspects,
		},
	})
	if err != nil {
		return errors.Annotate(err, "extraction failed")
	}
	for _, cf := range result.ChunkFailures {
		logging.Warningf(ctx, "chunk [%s] failed: %s", cf.Chunk, cf.Err.Error())
	}
	for _, sf := range result.SeriesFailures {
		logging.Warningf(ctx, "series %s: %s", sf.SeriesID, sf.Message)
	}
	for _, id := range result.NoData {
		logging.Warningf(ctx, "series %s returned no observations", id)
	}

	tbl := result.Table(flags.Metadata)
	if flags.Out != "" {
		f, err := os.Create(flags.Out)
		if err != nil {
			return errors.Annotate(err, "failed to create output file %s", flags.Out)
		}
		defer f.Close()
		if err := tbl.WriteCSV(f, table.Params{}); err != nil {
			return errors.Annotate(err, "failed to write CSV")
		}
		logging.Infof(ctx, "wrote %d records to %s", tbl.NumRows(), flags.Out)
	} else {
		if err := tbl.WriteText(os.Stdout, table.Params{Rows: flags.Sample}); err != nil {
			return errors.Annotate(err, "failed to print results")
		}
		if flags.Sample > 0 && tbl.NumRows() > flags.Sample {
			fmt.Printf("... %d more rows; use -out to save everything\n",
				tbl.NumRows()-flags.Sample)
		}
	}
	if flags.Stats {
		for _, s := range result.SeriesStats() {
			fmt.Println(s)
		}
	}
	return nil
}

func main() {
	ctx := context.Background()
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))

	if err := run(ctx, flags); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
