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

// ME implements spec §4.5.5 (methylation entropy), sharing quartet
// extraction with PM; grounded on me.rs's MEResult::to_bedgraph_field.
package metrics

import (
	"github.com/dohlee/metheor/internal/cpgindex"
	"github.com/dohlee/metheor/internal/pileup"
	"github.com/dohlee/metheor/internal/readdecode"
)

// MERow is one output row.
type MERow struct {
	Pos    cpgindex.Position
	ME     float64
	NReads uint32
}

// ME accumulates quartet-pattern counts per anchor CpG, the same way PM
// does, differing only in which quartetFrequencies result each row keeps.
type ME struct {
	idx      *cpgindex.Index
	minDepth int
	resolve  Resolver
	rows     []MERow
}

// NewME builds an ME accumulator.
func NewME(idx *cpgindex.Index, minDepth int, resolve Resolver) *ME {
	return &ME{idx: idx, minDepth: minDepth, resolve: resolve}
}

// OnRead implements pileup.Sink.
func (e *ME) OnRead(pileup.ReadID, *readdecode.ReadObservation) {}

// OnBucket implements pileup.Sink.
func (e *ME) OnBucket(b pileup.Bucket) {
	if len(b.ReadIDs) < e.minDepth {
		return
	}
	var counts [16]uint32
	for _, rid := range b.ReadIDs {
		obs, ok := e.resolve(rid)
		if !ok {
			continue
		}
		for _, q := range extractQuartets(obs) {
			if cpgindex.CpGID(q.Anchor) == b.CpGID {
				counts[q.Pattern]++
			}
		}
	}
	_, me, total := quartetFrequencies(counts)
	if total == 0 {
		return
	}
	e.rows = append(e.rows, MERow{Pos: b.Pos, ME: me, NReads: total})
}

// Close is a no-op.
func (e *ME) Close() {}

// Rows returns accumulated output rows.
func (e *ME) Rows() []MERow { return e.rows }
