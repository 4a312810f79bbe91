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

// PM implements spec §4.5.4 (epipolymorphism), grounded on pm.rs's
// PMResult::to_bedgraph_field.
package metrics

import (
	"github.com/dohlee/metheor/internal/cpgindex"
	"github.com/dohlee/metheor/internal/pileup"
	"github.com/dohlee/metheor/internal/readdecode"
)

// PMRow is one output row.
type PMRow struct {
	Pos      cpgindex.Position
	PM       float64
	NReads   uint32
}

// PM accumulates quartet-pattern counts per anchor CpG as buckets flush,
// mirroring the quartet-extraction-then-reduce shape pm.rs uses, but
// driven off the bucket stream: a CpG's quartet can only be finalized once
// its own bucket (and the three CpGs after it) are known, so PM resolves
// quartets lazily as each anchor's bucket closes.
type PM struct {
	idx      *cpgindex.Index
	minDepth int
	resolve  Resolver
	rows     []PMRow
}

// NewPM builds a PM accumulator.
func NewPM(idx *cpgindex.Index, minDepth int, resolve Resolver) *PM {
	return &PM{idx: idx, minDepth: minDepth, resolve: resolve}
}

// OnRead implements pileup.Sink; PM needs nothing at read-admission time.
func (p *PM) OnRead(pileup.ReadID, *readdecode.ReadObservation) {}

// OnBucket implements pileup.Sink. Depth is confirmed once a bucket
// flushes; PM then resolves each covering read's full observation and
// extracts any quartet anchored at this CpG.
func (p *PM) OnBucket(b pileup.Bucket) {
	if len(b.ReadIDs) < p.minDepth {
		return
	}
	var counts [16]uint32
	for _, rid := range b.ReadIDs {
		obs, ok := p.resolve(rid)
		if !ok {
			continue
		}
		for _, q := range extractQuartets(obs) {
			if cpgindex.CpGID(q.Anchor) == b.CpGID {
				counts[q.Pattern]++
			}
		}
	}
	pm, _, total := quartetFrequencies(counts)
	if total == 0 {
		return
	}
	p.rows = append(p.rows, PMRow{Pos: b.Pos, PM: pm, NReads: total})
}

// Close is a no-op; PM needs no end-of-stream finalization beyond the
// pileup engine's own final flush.
func (p *PM) Close() {}

// Rows returns accumulated output rows.
func (p *PM) Rows() []PMRow { return p.rows }
