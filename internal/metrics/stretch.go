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
	"github.com/dohlee/metheor/internal/cpgindex"
	"github.com/dohlee/metheor/internal/pileup"
)

// stretch is a maximal run of consecutive CpG ids, each with flushed depth
// >= minDepth, within one reference (spec §4.5.1's stretch definition,
// shared verbatim by PDR and MHL).
type stretch struct {
	refID   int32
	startID cpgindex.CpGID
	ids     []cpgindex.CpGID
}

// stretchDetector consumes the bucket-flush stream (which arrives in
// strictly ascending cpg_id order per §4.4's ordering guarantee) and calls
// onStretch for every maximal run meeting minCpgs once the run closes —
// either because a low-depth bucket broke it, the reference changed, a
// below-min-depth CpG was never flushed at all (restricted mode never
// pushes a zero-coverage CpG into the pileup engine, so the gap in cpg_id
// itself is the only signal that one was skipped), or the stream ended.
//
// Depth confirmation (a CpG "covered by at least min_depth reads") can
// only be known once its bucket is flushed, so both PDR and MHL are driven
// off the bucket stream here rather than the raw per-read stream; §4.5's
// preamble describes PDR as read-stream-driven, but §4.5.1's concrete
// definition requires confirmed per-CpG depth, which only the flushed
// bucket provides. Per-read state within the stretch is recovered via
// resolve, since buckets carry read ids rather than observations.
type stretchDetector struct {
	minDepth int
	minCpgs  int
	resolve  Resolver
	onStretch func(s stretch, readsByID map[pileup.ReadID][]readStateInStretch)

	cur       *stretch
	readsByID map[pileup.ReadID][]readStateInStretch
}

type readStateInStretch struct {
	id       cpgindex.CpGID
	isMethyl bool
}

func newStretchDetector(minDepth, minCpgs int, resolve Resolver, onStretch func(stretch, map[pileup.ReadID][]readStateInStretch)) *stretchDetector {
	return &stretchDetector{minDepth: minDepth, minCpgs: minCpgs, resolve: resolve, onStretch: onStretch}
}

func (d *stretchDetector) Add(b pileup.Bucket) {
	if len(b.ReadIDs) < d.minDepth {
		d.closeCurrent()
		return
	}
	lastID := cpgindex.CpGID(0)
	sameRun := d.cur != nil && d.cur.refID == b.Pos.RefID
	if sameRun {
		lastID = d.cur.ids[len(d.cur.ids)-1]
		sameRun = b.CpGID == lastID+1
	}
	if sameRun {
		d.cur.ids = append(d.cur.ids, b.CpGID)
	} else {
		d.closeCurrent()
		d.cur = &stretch{refID: b.Pos.RefID, startID: b.CpGID, ids: []cpgindex.CpGID{b.CpGID}}
		d.readsByID = make(map[pileup.ReadID][]readStateInStretch)
	}
	for _, rid := range b.ReadIDs {
		obs, ok := d.resolve(rid)
		if !ok {
			continue
		}
		state, found := obs.StateAt(b.CpGID)
		if !found {
			continue
		}
		d.readsByID[rid] = append(d.readsByID[rid], readStateInStretch{id: b.CpGID, isMethyl: isMethylState(state)})
	}
}

func (d *stretchDetector) closeCurrent() {
	if d.cur != nil && len(d.cur.ids) >= d.minCpgs {
		d.onStretch(*d.cur, d.readsByID)
	}
	d.cur = nil
	d.readsByID = nil
}

// Close flushes any still-open stretch at end-of-stream.
func (d *stretchDetector) Close() {
	d.closeCurrent()
}
