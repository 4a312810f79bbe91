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

package metrics

import (
	"sort"

	"github.com/dohlee/metheor/internal/cpgindex"
	"github.com/dohlee/metheor/internal/pileup"
	"github.com/dohlee/metheor/internal/readdecode"
)

// LPMDPairRow is one row of the optional per-pair report.
type LPMDPairRow struct {
	A, B                 cpgindex.Position
	NDiscordant, NTotal  int64
}

// LPMD accumulates pairwise concordance/discordance directly from the
// per-read stream, grounded on lpmd.rs's compute_all /
// compute_pairwise_cpg_concordance_discordance. It ignores OnBucket
// entirely: spec §4.5 names LPMD as one of the two kernels that consumes
// decoded reads directly rather than a flushed CpG bucket.
type LPMD struct {
	idx         *cpgindex.Index
	minDistance int32
	maxDistance int32
	withPairs   bool

	nConcordant int64
	nDiscordant int64

	pairConcordant map[pairKey]int64
	pairDiscordant map[pairKey]int64
}

type pairKey struct {
	a, b cpgindex.CpGID
}

// NewLPMD builds an LPMD accumulator. withPairs enables the per-pair report
// (spec §6: "with --pairs, additionally a per-pair table").
func NewLPMD(idx *cpgindex.Index, minDistance, maxDistance int32, withPairs bool) *LPMD {
	l := &LPMD{
		idx:         idx,
		minDistance: minDistance,
		maxDistance: maxDistance,
		withPairs:   withPairs,
	}
	if withPairs {
		l.pairConcordant = make(map[pairKey]int64)
		l.pairDiscordant = make(map[pairKey]int64)
	}
	return l
}

// OnRead implements pileup.Sink.
func (l *LPMD) OnRead(_ pileup.ReadID, obs *readdecode.ReadObservation) {
	cpgs := obs.CpGs
	for i := 0; i < len(cpgs); i++ {
		posI := l.idx.Position(cpgs[i].ID)
		for j := i + 1; j < len(cpgs); j++ {
			posJ := l.idx.Position(cpgs[j].ID)
			if posI.RefID != posJ.RefID {
				break
			}
			d := posJ.Pos - posI.Pos
			if d > l.maxDistance {
				break
			}
			if d < l.minDistance {
				continue
			}
			discordant := cpgs[i].State != cpgs[j].State
			if discordant {
				l.nDiscordant++
			} else {
				l.nConcordant++
			}
			if l.withPairs {
				k := pairKey{a: cpgs[i].ID, b: cpgs[j].ID}
				if discordant {
					l.pairDiscordant[k]++
				} else {
					l.pairConcordant[k]++
				}
			}
		}
	}
}

// OnBucket implements pileup.Sink; LPMD does not use the bucket stream.
func (l *LPMD) OnBucket(pileup.Bucket) {}

// Result returns the global counters and LPMD ratio.
func (l *LPMD) Result() (nDiscordant, nTotal int64, lpmd float64, ok bool) {
	nTotal = l.nConcordant + l.nDiscordant
	if nTotal == 0 {
		return l.nDiscordant, 0, 0, false
	}
	return l.nDiscordant, nTotal, float64(l.nDiscordant) / float64(nTotal), true
}

// PairRows returns the per-pair report sorted by (a, b) CpGID, matching
// lpmd.rs's print_pair_statistics sort-then-print order.
func (l *LPMD) PairRows() []LPMDPairRow {
	if !l.withPairs {
		return nil
	}
	keys := make([]pairKey, 0, len(l.pairConcordant))
	for k := range l.pairConcordant {
		keys = append(keys, k)
	}
	for k := range l.pairDiscordant {
		if _, ok := l.pairConcordant[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})

	rows := make([]LPMDPairRow, 0, len(keys))
	for _, k := range keys {
		nc := l.pairConcordant[k]
		nd := l.pairDiscordant[k]
		rows = append(rows, LPMDPairRow{
			A:           l.idx.Position(k.a),
			B:           l.idx.Position(k.b),
			NDiscordant: nd,
			NTotal:      nc + nd,
		})
	}
	return rows
}
