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
	"math/rand"

	"github.com/dohlee/metheor/internal/cpgindex"
	"github.com/dohlee/metheor/internal/pileup"
	"github.com/dohlee/metheor/internal/readdecode"
)

// ReservoirSeed is the fixed PRNG seed used by FDRP/qFDRP sampling, per
// spec §4.5.6's "deterministic with a fixed seed" requirement. Grounded on
// fdrp.rs's reservoir-sampling loop (Vitter's algorithm R), reseeded here
// instead of relying on a global RNG so that repeated runs in the same
// process don't interfere with each other.
const ReservoirSeed = 1

// ReservoirSample returns up to maxDepth read ids sampled uniformly without
// replacement from ids, using Algorithm R (the same reservoir-sampling
// scheme as fdrp.rs's AssociatedReads::add_read, ported from its streaming
// form to an in-memory slice since the pileup engine already materializes
// the full bucket before the kernel runs).
func ReservoirSample(ids []pileup.ReadID, maxDepth int, rng *rand.Rand) []pileup.ReadID {
	if maxDepth <= 0 || len(ids) <= maxDepth {
		out := make([]pileup.ReadID, len(ids))
		copy(out, ids)
		return out
	}
	reservoir := make([]pileup.ReadID, maxDepth)
	copy(reservoir, ids[:maxDepth])
	for i := maxDepth; i < len(ids); i++ {
		j := rng.Intn(i + 1)
		if j < maxDepth {
			reservoir[j] = ids[i]
		}
	}
	return reservoir
}

// pairStats is the per-pair qualification result shared by FDRP and qFDRP.
type pairStats struct {
	Qualifies  bool
	Discordant bool
	Mismatches int
	Shared     int
}

// evaluatePair implements spec §4.5.6/4.5.7's shared qualification rule:
// a pair qualifies iff it shares at least minOverlap reference basepairs
// AND shares at least one CpG id between both observation lists.
func evaluatePair(a, b *readdecode.ReadObservation, minOverlap int32) pairStats {
	overlapStart := a.RefStart
	if b.RefStart > overlapStart {
		overlapStart = b.RefStart
	}
	overlapEnd := a.RefEnd
	if b.RefEnd < overlapEnd {
		overlapEnd = b.RefEnd
	}
	overlapBases := overlapEnd - overlapStart
	if overlapBases < minOverlap {
		return pairStats{}
	}

	bStates := make(map[cpgindex.CpGID]readdecode.State, len(b.CpGs))
	for _, c := range b.CpGs {
		bStates[c.ID] = c.State
	}

	shared := 0
	mismatches := 0
	for _, c := range a.CpGs {
		bs, ok := bStates[c.ID]
		if !ok {
			continue
		}
		shared++
		if bs != c.State {
			mismatches++
		}
	}
	if shared == 0 {
		return pairStats{}
	}
	return pairStats{
		Qualifies:  true,
		Discordant: mismatches > 0,
		Mismatches: mismatches,
		Shared:     shared,
	}
}
