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

// FDRP implements spec §4.5.6, grounded on fdrp.rs's AssociatedReads and
// compute_fdrp, adapted from its fixed-width byte-array read encoding to
// working directly against ReadObservation's sparse CpG list (the pileup
// engine already gives FDRP a materialized bucket, so there's no need for
// fdrp.rs's streaming-oriented positional array).
package metrics

import (
	"math/rand"

	"github.com/dohlee/metheor/internal/cpgindex"
	"github.com/dohlee/metheor/internal/pileup"
	"github.com/dohlee/metheor/internal/readdecode"
	"github.com/dohlee/metheor/internal/threadpool"
)

// FDRPRow is one output row.
type FDRPRow struct {
	Pos    cpgindex.Position
	FDRP   float64
	NReads int
}

// FDRP accumulates rows per flushed bucket.
type FDRP struct {
	idx               *cpgindex.Index
	minDepth, maxDepth int
	minOverlap        int32
	resolve           Resolver
	pool              *threadpool.Pool
	parallelThreshold int
	rng               *rand.Rand
	rows              []FDRPRow
}

// NewFDRP builds an FDRP accumulator.
func NewFDRP(idx *cpgindex.Index, minDepth, maxDepth int, minOverlap int32, resolve Resolver, pool *threadpool.Pool, parallelThreshold int) *FDRP {
	return &FDRP{
		idx: idx, minDepth: minDepth, maxDepth: maxDepth, minOverlap: minOverlap,
		resolve: resolve, pool: pool, parallelThreshold: parallelThreshold,
		rng: rand.New(rand.NewSource(ReservoirSeed)),
	}
}

// OnRead implements pileup.Sink.
func (f *FDRP) OnRead(pileup.ReadID, *readdecode.ReadObservation) {}

// OnBucket implements pileup.Sink.
func (f *FDRP) OnBucket(b pileup.Bucket) {
	if len(b.ReadIDs) < f.minDepth {
		return
	}
	sampled := ReservoirSample(b.ReadIDs, f.maxDepth, f.rng)
	obsList := make([]*readdecode.ReadObservation, 0, len(sampled))
	for _, rid := range sampled {
		if obs, ok := f.resolve(rid); ok {
			obsList = append(obsList, obs)
		}
	}
	n := len(obsList)
	if n < 2 {
		return
	}

	pairs := enumeratePairIndices(n)
	nDiscordant, nQualifying := reducePairs(pairs, n, f.pool, f.parallelThreshold, func(p pairIndex) (discordant bool, qualifies bool) {
		stats := evaluatePair(obsList[p.i], obsList[p.j], f.minOverlap)
		return stats.Discordant, stats.Qualifies
	})
	if nQualifying == 0 {
		return
	}
	f.rows = append(f.rows, FDRPRow{
		Pos:    b.Pos,
		FDRP:   float64(nDiscordant) / float64(nQualifying),
		NReads: n,
	})
}

// Close is a no-op.
func (f *FDRP) Close() {}

// Rows returns accumulated output rows.
func (f *FDRP) Rows() []FDRPRow { return f.rows }

type pairIndex struct{ i, j int }

// enumeratePairIndices materializes every unordered pair of [0, n), the
// "enumerate pair indices into a vector" step spec §4.5.6 requires before
// distributing evaluations across the thread pool.
func enumeratePairIndices(n int) []pairIndex {
	pairs := make([]pairIndex, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, pairIndex{i: i, j: j})
		}
	}
	return pairs
}

// reducePairs evaluates every pair with eval, reducing in pair-index order
// regardless of whether the work ran in parallel or sequentially — the
// deterministic-reduction requirement of spec §4.5.6/§5. The parallel/
// sequential gate compares nReads (the sampled-read count spec §4.5.6
// defines parallel_threshold over), not len(pairs) (= C(nReads, 2)).
func reducePairs(pairs []pairIndex, nReads int, pool *threadpool.Pool, parallelThreshold int, eval func(pairIndex) (discordant, qualifies bool)) (nDiscordant, nQualifying int) {
	if nReads < parallelThreshold || pool == nil {
		for _, p := range pairs {
			d, q := eval(p)
			if q {
				nQualifying++
				if d {
					nDiscordant++
				}
			}
		}
		return
	}

	discordantByShard, qualifyingByShard := pool.Reduce(len(pairs), func(shardStart, shardEnd int) (int, int) {
		d, q := 0, 0
		for idx := shardStart; idx < shardEnd; idx++ {
			disc, qual := eval(pairs[idx])
			if qual {
				q++
				if disc {
					d++
				}
			}
		}
		return d, q
	})
	for _, v := range discordantByShard {
		nDiscordant += v
	}
	for _, v := range qualifyingByShard {
		nQualifying += v
	}
	return
}
