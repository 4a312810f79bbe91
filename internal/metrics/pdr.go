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

// PDR implements spec §4.5.1, grounded on pdr.rs's compute_helper: per
// stretch, a read's "stretch class" is Discordant iff it carries both
// states among the CpGs it has inside that stretch.
package metrics

import (
	"github.com/dohlee/metheor/internal/cpgindex"
	"github.com/dohlee/metheor/internal/pileup"
	"github.com/dohlee/metheor/internal/readdecode"
)

// PDRRow is one output row: a flushed stretch and its discordance ratio.
type PDRRow struct {
	RefID        int32
	Start, End   int32
	NDiscordant  int
	NTotal       int
	PDR          float64
}

// PDR accumulates rows as stretches close.
type PDR struct {
	detector *stretchDetector
	rows     []PDRRow
}

// NewPDR builds a PDR accumulator.
func NewPDR(idx *cpgindex.Index, minDepth, minCpgs int, resolve Resolver) *PDR {
	p := &PDR{}
	p.detector = newStretchDetector(minDepth, minCpgs, resolve, func(s stretch, reads map[pileup.ReadID][]readStateInStretch) {
		p.closeStretch(idx, s, reads)
	})
	return p
}

func (p *PDR) closeStretch(idx *cpgindex.Index, s stretch, reads map[pileup.ReadID][]readStateInStretch) {
	nTotal := 0
	nDiscordant := 0
	for _, states := range reads {
		if len(states) == 0 {
			continue
		}
		hasM, hasU := false, false
		for _, st := range states {
			if st.isMethyl {
				hasM = true
			} else {
				hasU = true
			}
		}
		nTotal++
		if hasM && hasU {
			nDiscordant++
		}
	}
	if nTotal == 0 {
		return
	}
	startPos := idx.Position(s.startID)
	endPos := idx.Position(s.ids[len(s.ids)-1])
	p.rows = append(p.rows, PDRRow{
		RefID:       s.refID,
		Start:       startPos.Pos,
		End:         endPos.Pos,
		NDiscordant: nDiscordant,
		NTotal:      nTotal,
		PDR:         float64(nDiscordant) / float64(nTotal),
	})
}

// OnRead implements pileup.Sink; PDR drives off the bucket stream instead.
func (p *PDR) OnRead(pileup.ReadID, *readdecode.ReadObservation) {}

// OnBucket implements pileup.Sink.
func (p *PDR) OnBucket(b pileup.Bucket) { p.detector.Add(b) }

// Close flushes any trailing open stretch. Call after the pileup engine's
// own end-of-stream flush.
func (p *PDR) Close() { p.detector.Close() }

// Rows returns accumulated output rows in flush order (ascending genomic
// position per reference, per spec §8 invariant 1).
func (p *PDR) Rows() []PDRRow { return p.rows }
