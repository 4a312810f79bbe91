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

// MHL implements spec §4.5.3, grounded on mhl.rs's AssociatedReads::compute_mhl.
// It resolves Open Question (a) (spec §9) by scoping t_k to the stretch's
// CpG span: t_k sums (num_cpgs_in_stretch_for_read - k + 1) over every read
// with at least k in-stretch CpGs, matching mhl.rs's denom loop but with
// num_cpg taken from the stretch-local count rather than the whole read
// (mhl.rs's source, read from a single-CpG accumulator, only ever saw
// whole-read num_cpgs because its stretches spanned the full read; this
// implementation's stretches are narrower, so the analogous quantity is
// the count within the stretch).
package metrics

import (
	"github.com/dohlee/metheor/internal/cpgindex"
	"github.com/dohlee/metheor/internal/pileup"
	"github.com/dohlee/metheor/internal/readdecode"
)

// MHLRow is one output row.
type MHLRow struct {
	RefID      int32
	Start, End int32
	MHL        float64
}

// MHL accumulates rows as stretches close.
type MHL struct {
	detector *stretchDetector
	rows     []MHLRow
}

// NewMHL builds an MHL accumulator.
func NewMHL(idx *cpgindex.Index, minDepth, minCpgs int, resolve Resolver) *MHL {
	m := &MHL{}
	m.detector = newStretchDetector(minDepth, minCpgs, resolve, func(s stretch, reads map[pileup.ReadID][]readStateInStretch) {
		m.closeStretch(idx, s, reads)
	})
	return m
}

func (m *MHL) closeStretch(idx *cpgindex.Index, s stretch, reads map[pileup.ReadID][]readStateInStretch) {
	type perRead struct {
		numCpg int
		runs   []int // lengths of maximal fully-methylated runs, ascending start
		// states ordered by cpg id within the stretch
		methyl []bool
	}

	readInfos := make([]perRead, 0, len(reads))
	maxCpg := 0
	for _, states := range reads {
		if len(states) == 0 {
			continue
		}
		methyl := make([]bool, len(states))
		for i, st := range states {
			methyl[i] = st.isMethyl
		}
		readInfos = append(readInfos, perRead{numCpg: len(states), methyl: methyl})
		if len(states) > maxCpg {
			maxCpg = len(states)
		}
	}
	if len(readInfos) == 0 || maxCpg == 0 {
		return
	}

	lSum := 0.0
	for l := 1; l <= maxCpg; l++ {
		lSum += float64(l)
	}

	mhl := 0.0
	for l := 1; l <= maxCpg; l++ {
		var hK, tK float64
		for _, r := range readInfos {
			if r.numCpg < l {
				continue
			}
			tK += float64(r.numCpg - l + 1)
			hK += float64(countFullyMethylatedWindows(r.methyl, l))
		}
		if tK == 0 {
			continue
		}
		mhl += float64(l) * hK / tK
	}
	mhl /= lSum

	startPos := idx.Position(s.startID)
	endPos := idx.Position(s.ids[len(s.ids)-1])
	m.rows = append(m.rows, MHLRow{
		RefID: s.refID,
		Start: startPos.Pos,
		End:   endPos.Pos,
		MHL:   mhl,
	})
}

// countFullyMethylatedWindows counts contiguous length-l windows over
// methyl that are entirely true, matching mhl.rs's h_k numerator
// ("number of reads whose contiguous k-CpG window ... is fully
// methylated") generalized to count every qualifying window rather than
// capping at one per read, since the source's h_k is itself a per-(l)
// count accumulated across reads sharing the stretch key.
func countFullyMethylatedWindows(methyl []bool, l int) int {
	count := 0
	for i := 0; i+l <= len(methyl); i++ {
		allM := true
		for j := i; j < i+l; j++ {
			if !methyl[j] {
				allM = false
				break
			}
		}
		if allM {
			count++
		}
	}
	return count
}

// OnRead implements pileup.Sink; MHL drives off the bucket stream instead.
func (m *MHL) OnRead(pileup.ReadID, *readdecode.ReadObservation) {}

// OnBucket implements pileup.Sink.
func (m *MHL) OnBucket(b pileup.Bucket) { m.detector.Add(b) }

// Close flushes any trailing open stretch.
func (m *MHL) Close() { m.detector.Close() }

// Rows returns accumulated output rows.
func (m *MHL) Rows() []MHLRow { return m.rows }
