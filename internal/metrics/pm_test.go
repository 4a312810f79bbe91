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

	"github.com/dohlee/metheor/internal/pileup"
	"github.com/dohlee/metheor/internal/readdecode"
)

func TestPMComputesEpipolymorphismAtAnchor(t *testing.T) {
	idx := buildIndexAt(10, 20, 30, 40)
	idA, _ := idx.Lookup(0, 10)
	idB, _ := idx.Lookup(0, 20)
	idC, _ := idx.Lookup(0, 30)
	idD, _ := idx.Lookup(0, 40)

	// Two reads share the identical quartet pattern anchored at idA ->
	// a single observed pattern, so PM (Gini-Simpson diversity) is 0.
	obsByID := map[pileup.ReadID]*readdecode.ReadObservation{
		0: readObsAt(0, idA, readdecode.Methylated, idB, readdecode.Unmethylated, idC, readdecode.Methylated, idD, readdecode.Unmethylated),
		1: readObsAt(0, idA, readdecode.Methylated, idB, readdecode.Unmethylated, idC, readdecode.Methylated, idD, readdecode.Unmethylated),
	}
	resolve := resolverFor(obsByID)

	p := NewPM(idx, 1, resolve)
	p.OnBucket(pileup.Bucket{CpGID: idA, Pos: idx.Position(idA), ReadIDs: []pileup.ReadID{0, 1}})

	rows := p.Rows()
	assert.Equal(t, 1, len(rows))
	assert.InDelta(t, 0.0, rows[0].PM, 1e-9)
	assert.Equal(t, uint32(2), rows[0].NReads)
}

func TestPMSkipsBucketsBelowMinDepth(t *testing.T) {
	idx := buildIndexAt(10, 20, 30, 40)
	idA, _ := idx.Lookup(0, 10)

	p := NewPM(idx, 5, resolverFor(nil))
	p.OnBucket(pileup.Bucket{CpGID: idA, Pos: idx.Position(idA), ReadIDs: []pileup.ReadID{0}})

	assert.Equal(t, 0, len(p.Rows()))
}

func TestPMIgnoresQuartetsNotAnchoredAtThisBucket(t *testing.T) {
	idx := buildIndexAt(10, 20, 30, 40, 50)
	idA, _ := idx.Lookup(0, 10)
	idB, _ := idx.Lookup(0, 20)
	idC, _ := idx.Lookup(0, 30)
	idD, _ := idx.Lookup(0, 40)
	idE, _ := idx.Lookup(0, 50)

	// 5 CpGs -> two candidate quartets anchored at idA and idB; the
	// bucket under test is idB's, so only the idB-anchored quartet counts.
	obsByID := map[pileup.ReadID]*readdecode.ReadObservation{
		0: readObsAt(0,
			idA, readdecode.Methylated, idB, readdecode.Unmethylated, idC, readdecode.Methylated,
			idD, readdecode.Unmethylated, idE, readdecode.Methylated,
		),
	}
	resolve := resolverFor(obsByID)

	p := NewPM(idx, 1, resolve)
	p.OnBucket(pileup.Bucket{CpGID: idB, Pos: idx.Position(idB), ReadIDs: []pileup.ReadID{0}})

	rows := p.Rows()
	assert.Equal(t, 1, len(rows))
	assert.Equal(t, uint32(1), rows[0].NReads)
}

func TestMEComputesEntropyAtAnchor(t *testing.T) {
	idx := buildIndexAt(10, 20, 30, 40)
	idA, _ := idx.Lookup(0, 10)
	idB, _ := idx.Lookup(0, 20)
	idC, _ := idx.Lookup(0, 30)
	idD, _ := idx.Lookup(0, 40)

	obsByID := map[pileup.ReadID]*readdecode.ReadObservation{
		0: readObsAt(0, idA, readdecode.Methylated, idB, readdecode.Unmethylated, idC, readdecode.Methylated, idD, readdecode.Unmethylated),
		1: readObsAt(0, idA, readdecode.Methylated, idB, readdecode.Unmethylated, idC, readdecode.Methylated, idD, readdecode.Unmethylated),
	}
	resolve := resolverFor(obsByID)

	m := NewME(idx, 1, resolve)
	m.OnBucket(pileup.Bucket{CpGID: idA, Pos: idx.Position(idA), ReadIDs: []pileup.ReadID{0, 1}})

	rows := m.Rows()
	assert.Equal(t, 1, len(rows))
	assert.InDelta(t, 0.0, rows[0].ME, 1e-9, "a single observed pattern has zero entropy")
	assert.Equal(t, uint32(2), rows[0].NReads)
}
