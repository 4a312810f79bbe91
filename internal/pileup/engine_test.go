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

package pileup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dohlee/metheor/internal/cpgindex"
	"github.com/dohlee/metheor/internal/readdecode"
)

type recordingSink struct {
	reads   []ReadID
	buckets []Bucket
}

func (s *recordingSink) OnRead(id ReadID, _ *readdecode.ReadObservation) { s.reads = append(s.reads, id) }
func (s *recordingSink) OnBucket(b Bucket)                               { s.buckets = append(s.buckets, b) }

func obsAt(refID, start, end int32, cpgIDs ...cpgindex.CpGID) *readdecode.ReadObservation {
	cpgs := make([]readdecode.CpGObs, len(cpgIDs))
	for i, id := range cpgIDs {
		cpgs[i] = readdecode.CpGObs{ID: id}
	}
	return &readdecode.ReadObservation{RefID: refID, RefStart: start, RefEnd: end, CpGs: cpgs}
}

func TestEngineFlushesBucketsOnceFrontierPassesThem(t *testing.T) {
	idx := cpgindex.NewOpen()
	id10, _ := idx.Lookup(0, 10)
	id20, _ := idx.Lookup(0, 20)
	id30, _ := idx.Lookup(0, 30)

	sink := &recordingSink{}
	e := New(idx, sink)

	// Read covering CpG@10; frontier is still at 10, so nothing flushes yet.
	e.Push(obsAt(0, 10, 11, id10))
	assert.Equal(t, 0, len(sink.buckets))

	// A read starting at 20 proves nothing earlier than 20 can gain more
	// coverage, so CpG@10 flushes. CpG@20 itself is not flushed yet.
	e.Push(obsAt(0, 20, 21, id20))
	assert.Equal(t, 1, len(sink.buckets))
	assert.Equal(t, id10, sink.buckets[0].CpGID)

	e.Push(obsAt(0, 30, 31, id30))
	assert.Equal(t, 2, len(sink.buckets))
	assert.Equal(t, id20, sink.buckets[1].CpGID)

	// End of stream flushes everything still active, in ascending position
	// order.
	e.Flush()
	assert.Equal(t, 3, len(sink.buckets))
	assert.Equal(t, id30, sink.buckets[2].CpGID)
}

func TestEngineBucketCarriesEveryCoveringReadID(t *testing.T) {
	idx := cpgindex.NewOpen()
	id10, _ := idx.Lookup(0, 10)

	sink := &recordingSink{}
	e := New(idx, sink)

	e.Push(obsAt(0, 10, 11, id10))
	e.Push(obsAt(0, 10, 11, id10))
	e.Flush()

	assert.Equal(t, 1, len(sink.buckets))
	assert.Equal(t, []ReadID{0, 1}, sink.buckets[0].ReadIDs)
}

func TestEngineOnReadFiresForEveryPushInArrivalOrder(t *testing.T) {
	idx := cpgindex.NewOpen()
	id10, _ := idx.Lookup(0, 10)

	sink := &recordingSink{}
	e := New(idx, sink)

	e.Push(obsAt(0, 10, 11, id10))
	e.Push(obsAt(0, 10, 11, id10))

	assert.Equal(t, []ReadID{0, 1}, sink.reads)
}

func TestEngineObservationResolvesUntilReadsLastCpGFlushes(t *testing.T) {
	idx := cpgindex.NewOpen()
	id10, _ := idx.Lookup(0, 10)
	id15, _ := idx.Lookup(0, 15)
	id20, _ := idx.Lookup(0, 20)

	sink := &recordingSink{}
	e := New(idx, sink)

	obs := obsAt(0, 10, 21, id10, id20)
	e.Push(obs)

	resolved, ok := e.Observation(ReadID(0))
	assert.True(t, ok)
	assert.Same(t, obs, resolved)

	// A filler read at 15 advances the frontier past CpG@10 but not
	// CpG@20; the original read has one remaining CpG, so its arena slot
	// must still resolve.
	e.Push(obsAt(0, 15, 16, id15))
	_, ok = e.Observation(ReadID(0))
	assert.True(t, ok)

	// Flushing the rest releases CpG@20 too, which was the read's last
	// remaining bucket membership, so its arena slot is now gone.
	e.Flush()
	_, ok = e.Observation(ReadID(0))
	assert.False(t, ok)
}
