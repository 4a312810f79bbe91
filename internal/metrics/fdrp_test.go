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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dohlee/metheor/internal/cpgindex"
	"github.com/dohlee/metheor/internal/pileup"
	"github.com/dohlee/metheor/internal/readdecode"
	"github.com/dohlee/metheor/internal/threadpool"
)

func resolverFor(obs map[pileup.ReadID]*readdecode.ReadObservation) Resolver {
	return func(id pileup.ReadID) (*readdecode.ReadObservation, bool) {
		o, ok := obs[id]
		return o, ok
	}
}

func TestFDRPComputesDiscordanceRatioOverQualifyingPairs(t *testing.T) {
	idx := cpgindex.NewOpen()
	pos, _ := idx.Lookup(0, 100)

	// Three reads, each fully overlapping and sharing the anchor CpG: two
	// agree (Methylated), one disagrees (Unmethylated) -> of the 3 pairs,
	// exactly 2 are discordant.
	obsByID := map[pileup.ReadID]*readdecode.ReadObservation{
		0: obsSpan(90, 110, readdecode.CpGObs{ID: pos, State: readdecode.Methylated}),
		1: obsSpan(90, 110, readdecode.CpGObs{ID: pos, State: readdecode.Methylated}),
		2: obsSpan(90, 110, readdecode.CpGObs{ID: pos, State: readdecode.Unmethylated}),
	}

	f := NewFDRP(idx, 1, 10, 1, resolverFor(obsByID), nil, 1<<30)
	f.OnBucket(pileup.Bucket{CpGID: pos, Pos: idx.Position(pos), ReadIDs: []pileup.ReadID{0, 1, 2}})
	f.Close()

	rows := f.Rows()
	assert.Equal(t, 1, len(rows))
	assert.Equal(t, 3, rows[0].NReads)
	assert.InDelta(t, 2.0/3.0, rows[0].FDRP, 1e-9)
}

func TestFDRPSkipsBucketsBelowMinDepth(t *testing.T) {
	idx := cpgindex.NewOpen()
	pos, _ := idx.Lookup(0, 100)
	obsByID := map[pileup.ReadID]*readdecode.ReadObservation{
		0: obsSpan(90, 110, readdecode.CpGObs{ID: pos, State: readdecode.Methylated}),
	}

	f := NewFDRP(idx, 5, 10, 1, resolverFor(obsByID), nil, 1<<30)
	f.OnBucket(pileup.Bucket{CpGID: pos, Pos: idx.Position(pos), ReadIDs: []pileup.ReadID{0}})

	assert.Equal(t, 0, len(f.Rows()))
}

func TestFDRPParallelAndSequentialPathsAgree(t *testing.T) {
	idx := cpgindex.NewOpen()
	pos, _ := idx.Lookup(0, 100)

	obsByID := make(map[pileup.ReadID]*readdecode.ReadObservation)
	ids := make([]pileup.ReadID, 0, 20)
	for i := 0; i < 20; i++ {
		state := readdecode.Methylated
		if i%3 == 0 {
			state = readdecode.Unmethylated
		}
		obsByID[pileup.ReadID(i)] = obsSpan(90, 110, readdecode.CpGObs{ID: pos, State: state})
		ids = append(ids, pileup.ReadID(i))
	}

	sequential := NewFDRP(idx, 1, 20, 1, resolverFor(obsByID), nil, 1<<30)
	sequential.OnBucket(pileup.Bucket{CpGID: pos, Pos: idx.Position(pos), ReadIDs: ids})

	parallel := NewFDRP(idx, 1, 20, 1, resolverFor(obsByID), threadpool.New(4), 0)
	parallel.OnBucket(pileup.Bucket{CpGID: pos, Pos: idx.Position(pos), ReadIDs: ids})

	assert.Equal(t, sequential.Rows()[0].FDRP, parallel.Rows()[0].FDRP)
	assert.Equal(t, sequential.Rows()[0].NReads, parallel.Rows()[0].NReads)
}

func TestQFDRPAveragesFractionalHammingDistance(t *testing.T) {
	idx := cpgindex.NewOpen()
	posA, _ := idx.Lookup(0, 100)
	posB, _ := idx.Lookup(0, 102)

	// Read 0 and read 1 share both CpGs, disagreeing on one of two -> 0.5.
	obsByID := map[pileup.ReadID]*readdecode.ReadObservation{
		0: obsSpan(90, 110, readdecode.CpGObs{ID: posA, State: readdecode.Methylated}, readdecode.CpGObs{ID: posB, State: readdecode.Methylated}),
		1: obsSpan(90, 110, readdecode.CpGObs{ID: posA, State: readdecode.Methylated}, readdecode.CpGObs{ID: posB, State: readdecode.Unmethylated}),
	}

	q := NewQFDRP(idx, 1, 10, 1, resolverFor(obsByID), nil, 1<<30)
	q.OnBucket(pileup.Bucket{CpGID: posA, Pos: idx.Position(posA), ReadIDs: []pileup.ReadID{0, 1}})

	rows := q.Rows()
	assert.Equal(t, 1, len(rows))
	assert.InDelta(t, 0.5, rows[0].QFDRP, 1e-9)
}
