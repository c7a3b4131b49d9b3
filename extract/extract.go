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

// Package extract orchestrates a full acquisition run: resolve tokens into
// series identifiers, plan API-compliant chunks, fetch them concurrently, and
// normalize the responses into tidy records.
//
// A run degrades gracefully: failed chunks are reported alongside the data of
// the chunks that succeeded, and the run fails outright only when every chunk
// fails or the input cannot be resolved.
package extract

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/blsquery/blsquery/bls"
	"github.com/blsquery/blsquery/series"
	"github.com/blsquery/blsquery/table"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/parallel"
	"golang.org/x/exp/maps"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultConcurrency is the number of chunks fetched in parallel when the
// Extractor does not set one.
const DefaultConcurrency = 4

// Request describes one acquisition run.
type Request struct {
	Tokens []string // aliases, patterns, or literal series identifiers
	Years  bls.YearRange
	Flags  bls.RequestFlags
}

// ChunkFailure is a chunk whose fetch failed after retries.
type ChunkFailure struct {
	Chunk bls.Chunk
	Err   error
}

// SeriesFailure is a requested series that no successful response contained.
type SeriesFailure struct {
	SeriesID string
	Message  string
}

// Extractor runs acquisition requests against the Client in the context.
type Extractor struct {
	Resolver    *series.Resolver
	Concurrency int // 0 means DefaultConcurrency
}

// chunkResult is the outcome of fetching one chunk.
type chunkResult struct {
	chunk bls.Chunk
	resp  *bls.SeriesResponse
	err   error
}

// chunkJobsIter yields one fetch job per planned chunk.
type chunkJobsIter struct {
	context context.Context
	client  *bls.Client
	flags   bls.RequestFlags
	chunks  []bls.Chunk
	i       int
}

var _ parallel.JobsIter[chunkResult] = &chunkJobsIter{}

func (it *chunkJobsIter) Next() (parallel.Job[chunkResult], error) {
	if it.i >= len(it.chunks) {
		return nil, parallel.Done
	}
	chunk := it.chunks[it.i]
	it.i++
	job := func() chunkResult {
		resp, err := it.client.Fetch(it.context, chunk, it.flags)
		return chunkResult{chunk: chunk, resp: resp, err: err}
	}
	return job, nil
}

// recordKey identifies one tidy cell for cross-chunk deduplication.
type recordKey struct {
	seriesID string
	year     int
	period   string
}

// Result holds the outcome of one acquisition run. Records are sorted by
// series (in request order), year, and period.
type Result struct {
	Records        []TidyRecord
	NoData         []string // series returned by the API with no observations
	ChunkFailures  []ChunkFailure
	SeriesFailures []SeriesFailure
	idOrder        map[string]int
}

// Extract resolves the request tokens, plans chunks within the client limits,
// fetches them concurrently, and merges the normalized responses. It returns
// an error when resolution fails, when planning fails, or when every chunk
// fails; chunk failures short of that surface in the Result.
func (e *Extractor) Extract(ctx context.Context, req Request) (*Result, error) {
	client := bls.GetClient(ctx)
	if client == nil {
		return nil, errors.Reason("no BLS client in context; call bls.UseClient")
	}
	res, err := e.Resolver.Resolve(req.Tokens)
	if err != nil {
		return nil, err
	}
	chunks, err := bls.Plan(res.SeriesIDs, req.Years, client.Limits())
	if err != nil {
		return nil, errors.Annotate(err, "failed to plan request")
	}
	concurrency := e.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	logging.Infof(ctx, "fetching %d series in %d chunks with %d workers",
		len(res.SeriesIDs), len(chunks), concurrency)

	it := &chunkJobsIter{
		context: ctx,
		client:  client,
		flags:   req.Flags,
		chunks:  chunks,
	}
	m := parallel.Map[chunkResult](ctx, concurrency, it)

	result := &Result{idOrder: make(map[string]int)}
	for i, id := range res.SeriesIDs {
		result.idOrder[id] = i
	}
	merged := make(map[recordKey]TidyRecord)
	returned := make(map[string]bool)
	var messages []string
	for {
		v, err := m.Next()
		if err != nil { // can only be parallel.Done
			break
		}
		cr := v
		if cr.err != nil {
			logging.Warningf(ctx, "chunk [%s] failed: %s", cr.chunk, cr.err.Error())
			result.ChunkFailures = append(result.ChunkFailures,
				ChunkFailure{Chunk: cr.chunk, Err: cr.err})
			continue
		}
		messages = append(messages, cr.resp.Message...)
		for _, s := range cr.resp.Results.Series {
			returned[s.ID] = true
		}
		records, err := normalizeResponse(cr.resp, res)
		if err != nil {
			result.ChunkFailures = append(result.ChunkFailures,
				ChunkFailure{Chunk: cr.chunk, Err: err})
			continue
		}
		for _, rec := range records {
			key := recordKey{seriesID: rec.SeriesID, year: rec.Year, period: rec.Period}
			if _, ok := merged[key]; ok {
				logging.Debugf(ctx, "duplicate observation %s %d %s, keeping the later chunk",
					key.seriesID, key.year, key.period)
			}
			merged[key] = rec
		}
	}
	if len(result.ChunkFailures) == len(chunks) {
		return nil, errors.Annotate(result.ChunkFailures[0].Err,
			"all %d chunks failed", len(chunks))
	}
	result.seriesFailures(res.SeriesIDs, returned, messages)
	result.sortRecords(merged)
	result.noData(res.SeriesIDs, returned)
	return result, nil
}

// noData records the series the API returned without a single observation, in
// request order.
func (r *Result) noData(requested []string, returned map[string]bool) {
	counts := make(map[string]int)
	for _, rec := range r.Records {
		counts[rec.SeriesID]++
	}
	for _, id := range requested {
		if returned[id] && counts[id] == 0 {
			r.NoData = append(r.NoData, id)
		}
	}
}

// seriesFailures records the requested series absent from every successful
// response, attaching an API message line when one mentions the series.
func (r *Result) seriesFailures(requested []string, returned map[string]bool, messages []string) {
	for _, id := range requested {
		if returned[id] {
			continue
		}
		message := "series missing from all responses"
		for _, m := range messages {
			if strings.Contains(m, id) {
				message = m
				break
			}
		}
		r.SeriesFailures = append(r.SeriesFailures,
			SeriesFailure{SeriesID: id, Message: message})
	}
}

// sortRecords flattens the merged map into Records sorted by series in
// request order, then year, then period.
func (r *Result) sortRecords(merged map[recordKey]TidyRecord) {
	keys := maps.Keys(merged)
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		ao, aok := r.idOrder[a.seriesID]
		bo, bok := r.idOrder[b.seriesID]
		if !aok {
			ao = len(r.idOrder)
		}
		if !bok {
			bo = len(r.idOrder)
		}
		if ao != bo {
			return ao < bo
		}
		if a.seriesID != b.seriesID {
			return a.seriesID < b.seriesID
		}
		if a.year != b.year {
			return a.year < b.year
		}
		return a.period < b.period
	})
	r.Records = make([]TidyRecord, len(keys))
	for i, k := range keys {
		r.Records[i] = merged[k]
	}
}

// tidyRow adapts a TidyRecord to a table row, optionally with the catalog
// metadata columns.
type tidyRow struct {
	rec     TidyRecord
	catalog bool
}

var _ table.Row = tidyRow{}

func (r tidyRow) CSV() []string {
	rec := r.rec
	value := ""
	if rec.Valid {
		value = strconv.FormatFloat(rec.Value, 'f', -1, 64)
	}
	row := []string{
		rec.SeriesID,
		rec.Alias,
		strconv.Itoa(rec.Year),
		rec.Period,
		rec.PeriodName,
		value,
		strconv.FormatBool(rec.Latest),
	}
	if r.catalog {
		row = append(row,
			rec.Seasonality,
			rec.SeriesTitle,
			rec.SurveyName,
			rec.MeasureDataType,
			rec.Area,
			rec.Item,
		)
	}
	return append(row, rec.Footnotes)
}

// Table converts the records to a printable table. includeCatalog adds the
// catalog metadata columns, which are only populated when the request asked
// for catalog data.
func (r *Result) Table(includeCatalog bool) *table.Table {
	header := []string{
		"series_id", "alias", "year", "period", "period_name", "value", "latest"}
	if includeCatalog {
		header = append(header, "seasonality", "series_title", "survey_name",
			"measure_data_type", "area", "item")
	}
	header = append(header, "footnotes")
	t := table.NewTable(header...)
	for _, rec := range r.Records {
		t.AddRow(tidyRow{rec: rec, catalog: includeCatalog})
	}
	return t
}

// Stats summarize the valid observations of one series.
type Stats struct {
	SeriesID string
	Count    int
	Mean     float64
	Stdev    float64
	Min      float64
	Max      float64
}

func (s Stats) String() string {
	return fmt.Sprintf("%s: n=%d mean=%.4f stdev=%.4f min=%.4f max=%.4f",
		s.SeriesID, s.Count, s.Mean, s.Stdev, s.Min, s.Max)
}

// SeriesStats computes summary statistics over the valid observations of each
// series, in request order. Series with no valid observations are skipped.
func (r *Result) SeriesStats() []Stats {
	values := make(map[string][]float64)
	var order []string
	for _, rec := range r.Records {
		if !rec.Valid {
			continue
		}
		if _, ok := values[rec.SeriesID]; !ok {
			order = append(order, rec.SeriesID)
		}
		values[rec.SeriesID] = append(values[rec.SeriesID], rec.Value)
	}
	stats := make([]Stats, len(order))
	for i, id := range order {
		xs := values[id]
		stats[i] = Stats{
			SeriesID: id,
			Count:    len(xs),
			Mean:     stat.Mean(xs, nil),
			Stdev:    stat.StdDev(xs, nil),
			Min:      floats.Min(xs),
			Max:      floats.Max(xs),
		}
	}
	return stats
}
