// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package orchestrator assembles Reader -> Decoder -> CpG Index -> Pileup
// Engine -> Metric Kernel -> Writer for each subcommand, the way
// grailbio/bio/pileup/snp.Pileup assembles its own pipeline behind a single
// Opts struct and entry point.
package orchestrator

import (
	"context"
	"io"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/base/log"

	"github.com/dohlee/metheor/internal/cpgindex"
	"github.com/dohlee/metheor/internal/errs"
	"github.com/dohlee/metheor/internal/pileup"
	"github.com/dohlee/metheor/internal/readdecode"
	"github.com/dohlee/metheor/internal/xam"
)

// CommonOpts holds the flags every subcommand shares.
type CommonOpts struct {
	Input   string
	Output  string
	MinQual byte
	CpGSet  string
}

// dropCounters accumulates spec §7's per-reason decode-drop counts,
// reported at run end rather than aborting the run.
type dropCounters struct {
	counts map[errs.DecodeDropReason]int
}

func newDropCounters() *dropCounters {
	return &dropCounters{counts: make(map[errs.DecodeDropReason]int)}
}

func (d *dropCounters) add(reason errs.DecodeDropReason) {
	d.counts[reason]++
}

func (d *dropCounters) logSummary() {
	for reason, count := range d.counts {
		log.Printf("orchestrator: dropped %d records (%s)", count, reason)
	}
}

func refNameToID(header *sam.Header) map[string]int32 {
	m := make(map[string]int32)
	for _, ref := range header.Refs() {
		m[ref.Name()] = int32(ref.ID())
	}
	return m
}

// buildIndex builds an open or restricted CpG Index depending on whether
// opts.CpGSet is set.
func buildIndex(opts CommonOpts, header *sam.Header) (*cpgindex.Index, error) {
	if opts.CpGSet == "" {
		return cpgindex.NewOpen(), nil
	}
	return cpgindex.NewRestrictedFromPath(opts.CpGSet, refNameToID(header))
}

// RefNamer resolves a reference id back to its name via the running
// reader's header; orchestrators keep the header around for this.
type RefNamer func(refID int32) string

func newRefNamer(header *sam.Header) RefNamer {
	refs := header.Refs()
	return func(refID int32) string {
		if int(refID) < 0 || int(refID) >= len(refs) {
			return "*"
		}
		return refs[refID].Name()
	}
}

// ReadResolver matches metrics.Resolver's shape without orchestrator
// needing to import the metrics package just for a function type.
type ReadResolver func(pileup.ReadID) (*readdecode.ReadObservation, bool)

// runPipeline opens the input, walks every record through the decoder,
// pushes accepted reads into the pileup engine, and flushes at
// end-of-stream. makeSink is handed a ReadResolver bound to the engine
// that is about to run it, resolving the construction-order cycle between
// "the kernel needs a resolver bound to the engine" and "the engine needs
// a sink bound to the kernel" — the resolver closes over a not-yet-assigned
// *pileup.Engine variable, which is fine since it is only ever called
// after Push, by which point the engine is assigned.
func runPipeline(ctx context.Context, opts CommonOpts, makeSink func(idx *cpgindex.Index, resolve ReadResolver) pileup.Sink) (*cpgindex.Index, RefNamer, pileup.Sink, error) {
	reader, err := xam.Open(ctx, opts.Input)
	if err != nil {
		return nil, nil, nil, err
	}
	defer reader.Close()

	idx, err := buildIndex(opts, reader.Header())
	if err != nil {
		return nil, nil, nil, err
	}
	refName := newRefNamer(reader.Header())

	var engine *pileup.Engine
	resolve := func(id pileup.ReadID) (*readdecode.ReadObservation, bool) {
		return engine.Observation(id)
	}
	sink := makeSink(idx, resolve)
	engine = pileup.New(idx, sink)

	drops := newDropCounters()
	decodeOpts := readdecode.Opts{MinQual: opts.MinQual}

	for {
		rec, err := reader.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, nil, nil, err
		}
		obs, dropReason, err := readdecode.Decode(rec, idx, decodeOpts)
		if err != nil {
			return nil, nil, nil, err
		}
		if dropReason != nil {
			drops.add(*dropReason)
			continue
		}
		engine.Push(obs)
	}
	engine.Flush()
	drops.logSummary()
	return idx, refName, sink, nil
}
