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

// Package pileup implements the sliding-window engine that accumulates
// reads into per-CpG buckets and flushes each bucket once the coordinate
// frontier has passed it.
//
// The teacher's pileup/snp package tracks live state with
// circular.Bitmap, a SIMD bitmap sized to a power-of-two read span. That
// sizing assumption doesn't hold here — bisulfite libraries don't bound
// read length the way the teacher's duplicate-marking window does — so
// this engine tracks the active set with a container/heap min-heap of CpG
// ids ordered by genomic position instead; asymptotically it does the same
// job (cheapest-to-flush lookup), just without a fixed-width assumption.
package pileup

import (
	"container/heap"

	"github.com/dohlee/metheor/internal/cpgindex"
	"github.com/dohlee/metheor/internal/readdecode"
)

// ReadID is a monotonically increasing handle into the engine's read arena.
type ReadID uint32

// Bucket is a flushed accumulation for one CpG: the set of reads observed
// to cover it, plus the CpG's genomic coordinates for row emission.
type Bucket struct {
	CpGID   cpgindex.CpGID
	Pos     cpgindex.Position
	ReadIDs []ReadID
}

// Sink receives flushed buckets in ascending (reference id, position)
// order, plus every read as it is decoded (for kernels like LPMD that
// consume the per-read stream directly rather than a flushed bucket).
type Sink interface {
	OnRead(id ReadID, obs *readdecode.ReadObservation)
	OnBucket(b Bucket)
}

// cpgHeap is a min-heap of live CpG ids ordered by (reference id, genomic
// position).
type cpgHeap struct {
	ids []cpgindex.CpGID
	idx *cpgindex.Index
}

func (h cpgHeap) Len() int { return len(h.ids) }
func (h cpgHeap) Less(i, j int) bool {
	pi, pj := h.idx.Position(h.ids[i]), h.idx.Position(h.ids[j])
	if pi.RefID != pj.RefID {
		return pi.RefID < pj.RefID
	}
	return pi.Pos < pj.Pos
}
func (h cpgHeap) Swap(i, j int) { h.ids[i], h.ids[j] = h.ids[j], h.ids[i] }
func (h *cpgHeap) Push(x interface{}) {
	h.ids = append(h.ids, x.(cpgindex.CpGID))
}
func (h *cpgHeap) Pop() interface{} {
	old := h.ids
	n := len(old)
	item := old[n-1]
	h.ids = old[:n-1]
	return item
}

type readSlot struct {
	obs          *readdecode.ReadObservation
	remainingCpG int
}

// Engine is the streaming pileup: append decoded reads, and it flushes
// buckets on its own once the coordinate frontier proves no future record
// can still cover them.
type Engine struct {
	idx *cpgindex.Index

	active     map[cpgindex.CpGID][]ReadID
	frontier   *cpgHeap
	inHeap     map[cpgindex.CpGID]bool
	arena      map[ReadID]*readSlot
	nextReadID ReadID

	sink Sink
}

// New builds an Engine over idx, delivering reads and flushed buckets to
// sink.
func New(idx *cpgindex.Index, sink Sink) *Engine {
	return &Engine{
		idx:    idx,
		active: make(map[cpgindex.CpGID][]ReadID),
		frontier: &cpgHeap{
			idx: idx,
		},
		inHeap: make(map[cpgindex.CpGID]bool),
		arena:  make(map[ReadID]*readSlot),
		sink:   sink,
	}
}

// Push admits one decoded read, advances the frontier to its leftmost
// reference coordinate, appends the read to every CpG bucket it observes,
// and flushes every bucket now strictly left of the frontier.
func (e *Engine) Push(obs *readdecode.ReadObservation) {
	id := e.nextReadID
	e.nextReadID++

	e.arena[id] = &readSlot{obs: obs, remainingCpG: len(obs.CpGs)}
	e.sink.OnRead(id, obs)

	for _, c := range obs.CpGs {
		if _, present := e.active[c.ID]; !present {
			e.active[c.ID] = nil
		}
		e.active[c.ID] = append(e.active[c.ID], id)
		if !e.inHeap[c.ID] {
			e.inHeap[c.ID] = true
			heap.Push(e.frontier, c.ID)
		}
	}

	e.flushBefore(obs.RefID, obs.RefStart)
}

// flushBefore releases every bucket on a reference before frontierRef, or
// on frontierRef at a position strictly less than frontierPos, in
// ascending (reference, position) order (the heap's pop order).
func (e *Engine) flushBefore(frontierRef, frontierPos int32) {
	for e.frontier.Len() > 0 {
		topID := e.frontier.ids[0]
		pos := e.idx.Position(topID)
		if pos.RefID > frontierRef || (pos.RefID == frontierRef && pos.Pos >= frontierPos) {
			break
		}
		heap.Pop(e.frontier)
		delete(e.inHeap, topID)
		e.flushOne(topID)
	}
}

// Flush releases every remaining bucket in ascending (reference, position)
// order, for end-of-stream.
func (e *Engine) Flush() {
	for e.frontier.Len() > 0 {
		topID := heap.Pop(e.frontier).(cpgindex.CpGID)
		delete(e.inHeap, topID)
		e.flushOne(topID)
	}
}

func (e *Engine) flushOne(id cpgindex.CpGID) {
	readIDs := e.active[id]
	delete(e.active, id)

	e.sink.OnBucket(Bucket{
		CpGID:   id,
		Pos:     e.idx.Position(id),
		ReadIDs: readIDs,
	})

	for _, rid := range readIDs {
		slot, ok := e.arena[rid]
		if !ok {
			continue
		}
		slot.remainingCpG--
		if slot.remainingCpG <= 0 {
			delete(e.arena, rid)
		}
	}
}

// Observation resolves a ReadID back to its decoded observation. Valid only
// until the read's last CpG has flushed, per the arena-release design note.
func (e *Engine) Observation(id ReadID) (*readdecode.ReadObservation, bool) {
	slot, ok := e.arena[id]
	if !ok {
		return nil, false
	}
	return slot.obs, true
}
