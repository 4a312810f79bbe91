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

// qFDRP implements spec §4.5.7, sharing FDRP's pair qualification and
// sampling but reducing over fractional Hamming distance instead of a
// binary discordance flag, grounded on qfdrp.rs's get_num_overlap_cpgs /
// hamming_distance / compute_qfdrp.
package metrics

import (
	"math/rand"

	"github.com/dohlee/metheor/internal/cpgindex"
	"github.com/dohlee/metheor/internal/pileup"
	"github.com/dohlee/metheor/internal/readdecode"
	"github.com/dohlee/metheor/internal/threadpool"
)

// QFDRPRow is one output row.
type QFDRPRow struct {
	Pos    cpgindex.Position
	QFDRP  float64
	NReads int
}

// QFDRP accumulates rows per flushed bucket.
type QFDRP struct {
	idx                *cpgindex.Index
	minDepth, maxDepth int
	minOverlap         int32
	resolve            Resolver
	pool               *threadpool.Pool
	parallelThreshold  int
	rng                *rand.Rand
	rows               []QFDRPRow
}

// NewQFDRP builds a QFDRP accumulator.
func NewQFDRP(idx *cpgindex.Index, minDepth, maxDepth int, minOverlap int32, resolve Resolver, pool *threadpool.Pool, parallelThreshold int) *QFDRP {
	return &QFDRP{
		idx: idx, minDepth: minDepth, maxDepth: maxDepth, minOverlap: minOverlap,
		resolve: resolve, pool: pool, parallelThreshold: parallelThreshold,
		rng: rand.New(rand.NewSource(ReservoirSeed)),
	}
}

// OnRead implements pileup.Sink.
func (q *QFDRP) OnRead(pileup.ReadID, *readdecode.ReadObservation) {}

// OnBucket implements pileup.Sink.
func (q *QFDRP) OnBucket(b pileup.Bucket) {
	if len(b.ReadIDs) < q.minDepth {
		return
	}
	sampled := ReservoirSample(b.ReadIDs, q.maxDepth, q.rng)
	obsList := make([]*readdecode.ReadObservation, 0, len(sampled))
	for _, rid := range sampled {
		if obs, ok := q.resolve(rid); ok {
			obsList = append(obsList, obs)
		}
	}
	n := len(obsList)
	if n < 2 {
		return
	}

	pairs := enumeratePairIndices(n)
	sum, nQualifying := reducePairSums(pairs, n, q.pool, q.parallelThreshold, func(p pairIndex) (d float64, qualifies bool) {
		stats := evaluatePair(obsList[p.i], obsList[p.j], q.minOverlap)
		if !stats.Qualifies {
			return 0, false
		}
		return float64(stats.Mismatches) / float64(stats.Shared), true
	})
	if nQualifying == 0 {
		return
	}
	q.rows = append(q.rows, QFDRPRow{
		Pos:    b.Pos,
		QFDRP:  sum / float64(nQualifying),
		NReads: n,
	})
}

// Close is a no-op.
func (q *QFDRP) Close() {}

// Rows returns accumulated output rows.
func (q *QFDRP) Rows() []QFDRPRow { return q.rows }

// reducePairSums is qFDRP's analogue of reducePairs, summing a
// floating-point distance instead of counting a boolean. Spec §5 requires
// the parallel path to sum in a deterministic shard order, not completion
// order, for reproducibility "within floating-point associativity". As in
// reducePairs, the gate compares nReads against parallelThreshold, per
// spec §4.5.6's definition of parallel_threshold over the sampled-read
// count rather than the pair count.
func reducePairSums(pairs []pairIndex, nReads int, pool *threadpool.Pool, parallelThreshold int, eval func(pairIndex) (float64, bool)) (sum float64, nQualifying int) {
	if nReads < parallelThreshold || pool == nil {
		for _, p := range pairs {
			d, q := eval(p)
			if q {
				sum += d
				nQualifying++
			}
		}
		return
	}

	sumBits, countInts := pool.ReduceFloat(len(pairs), func(shardStart, shardEnd int) (float64, int) {
		s, c := 0.0, 0
		for idx := shardStart; idx < shardEnd; idx++ {
			d, q := eval(pairs[idx])
			if q {
				s += d
				c++
			}
		}
		return s, c
	})
	for _, v := range sumBits {
		sum += v
	}
	for _, v := range countInts {
		nQualifying += v
	}
	return
}
