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

package readdecode

import (
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/stretchr/testify/assert"

	"github.com/dohlee/metheor/internal/cpgindex"
	"github.com/dohlee/metheor/internal/errs"
)

func newRecord(t *testing.T, ref *sam.Reference, pos int, flags sam.Flags, mapq byte, cigar sam.Cigar, callString string) *sam.Record {
	t.Helper()
	rec := &sam.Record{
		Name:  "r1",
		Ref:   ref,
		Pos:   pos,
		MapQ:  mapq,
		Flags: flags,
		Cigar: cigar,
	}
	if callString != "" {
		aux, err := sam.NewAux(sam.NewTag("XM"), callString)
		assert.NoError(t, err)
		rec.AuxFields = append(rec.AuxFields, aux)
	}
	return rec
}

func TestDecodeAcceptsSimpleMatchRecord(t *testing.T) {
	ref, err := sam.NewReference("chr1", "", "", 1000, nil, nil)
	assert.NoError(t, err)

	// "ZzZ" over a 3bp match: Methylated, Unmethylated, Methylated.
	rec := newRecord(t, ref, 100, 0, 40, sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 3)}, "ZzZ")

	idx := cpgindex.NewOpen()
	obs, drop, err := Decode(rec, idx, Opts{MinQual: 10})
	assert.NoError(t, err)
	assert.Nil(t, drop)

	assert.Equal(t, 3, len(obs.CpGs))
	assert.Equal(t, Methylated, obs.CpGs[0].State)
	assert.Equal(t, Unmethylated, obs.CpGs[1].State)
	assert.Equal(t, Methylated, obs.CpGs[2].State)
	assert.Equal(t, int32(100), obs.RefStart)
	assert.Equal(t, int32(103), obs.RefEnd)
	assert.Equal(t, Discordant, obs.Concordance)
}

func TestDecodeAllMethylatedIsNotDiscordant(t *testing.T) {
	ref, _ := sam.NewReference("chr1", "", "", 1000, nil, nil)
	rec := newRecord(t, ref, 0, 0, 40, sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 2)}, "ZZ")

	idx := cpgindex.NewOpen()
	obs, drop, err := Decode(rec, idx, Opts{MinQual: 10})
	assert.NoError(t, err)
	assert.Nil(t, drop)
	assert.Equal(t, AllMethylated, obs.Concordance)
}

func TestDecodeSkipsNonMZCallSymbols(t *testing.T) {
	ref, _ := sam.NewReference("chr1", "", "", 1000, nil, nil)
	// 'h'/'x'/'.' are not CpG calls and must not become CpGObs entries.
	rec := newRecord(t, ref, 0, 0, 40, sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 5)}, "Zh.xz")

	idx := cpgindex.NewOpen()
	obs, drop, err := Decode(rec, idx, Opts{MinQual: 10})
	assert.NoError(t, err)
	assert.Nil(t, drop)
	assert.Equal(t, 2, len(obs.CpGs))
}

func TestDecodeCigarWalkSkipsInsertedBases(t *testing.T) {
	ref, _ := sam.NewReference("chr1", "", "", 1000, nil, nil)
	// 2bp match, 1bp insertion (consumes a call-string char but no ref pos),
	// 2bp match.
	cigar := sam.Cigar{
		sam.NewCigarOp(sam.CigarMatch, 2),
		sam.NewCigarOp(sam.CigarInsertion, 1),
		sam.NewCigarOp(sam.CigarMatch, 2),
	}
	rec := newRecord(t, ref, 10, 0, 40, cigar, "ZZ.zZ")

	idx := cpgindex.NewOpen()
	obs, drop, err := Decode(rec, idx, Opts{MinQual: 10})
	assert.NoError(t, err)
	assert.Nil(t, drop)
	assert.Equal(t, 4, len(obs.CpGs), "the inserted base's call symbol must not become a CpGObs")
	assert.Equal(t, int32(14), obs.RefEnd, "the inserted base must not be counted against the 4bp of reference actually covered")
}

func TestDecodeDropsUnmapped(t *testing.T) {
	ref, _ := sam.NewReference("chr1", "", "", 1000, nil, nil)
	rec := newRecord(t, ref, 0, sam.Unmapped, 40, sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 2)}, "ZZ")

	idx := cpgindex.NewOpen()
	obs, drop, err := Decode(rec, idx, Opts{MinQual: 10})
	assert.NoError(t, err)
	assert.Nil(t, obs)
	assert.NotNil(t, drop)
	assert.Equal(t, errs.DropUnmapped, *drop)
}

func TestDecodeDropsLowMapQ(t *testing.T) {
	ref, _ := sam.NewReference("chr1", "", "", 1000, nil, nil)
	rec := newRecord(t, ref, 0, 0, 5, sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 2)}, "ZZ")

	idx := cpgindex.NewOpen()
	_, drop, err := Decode(rec, idx, Opts{MinQual: 10})
	assert.NoError(t, err)
	assert.NotNil(t, drop)
	assert.Equal(t, errs.DropLowMapQ, *drop)
}

func TestDecodeDropsSecondaryAndSupplementary(t *testing.T) {
	ref, _ := sam.NewReference("chr1", "", "", 1000, nil, nil)

	secondary := newRecord(t, ref, 0, sam.Secondary, 40, sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 2)}, "ZZ")
	idx := cpgindex.NewOpen()
	_, drop, err := Decode(secondary, idx, Opts{MinQual: 10})
	assert.NoError(t, err)
	assert.Equal(t, errs.DropSecondaryOrSupplementary, *drop)

	supplementary := newRecord(t, ref, 0, sam.Supplementary, 40, sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 2)}, "ZZ")
	_, drop, err = Decode(supplementary, idx, Opts{MinQual: 10})
	assert.NoError(t, err)
	assert.Equal(t, errs.DropSecondaryOrSupplementary, *drop)
}

func TestDecodeDropsMissingCallTag(t *testing.T) {
	ref, _ := sam.NewReference("chr1", "", "", 1000, nil, nil)
	rec := newRecord(t, ref, 0, 0, 40, sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 2)}, "")

	idx := cpgindex.NewOpen()
	_, drop, err := Decode(rec, idx, Opts{MinQual: 10})
	assert.NoError(t, err)
	assert.NotNil(t, drop)
	assert.Equal(t, errs.DropMissingCallTag, *drop)
}

func TestDecodeDropsWhenNoCpGsObserved(t *testing.T) {
	ref, _ := sam.NewReference("chr1", "", "", 1000, nil, nil)
	rec := newRecord(t, ref, 0, 0, 40, sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 2)}, "..")

	idx := cpgindex.NewOpen()
	_, drop, err := Decode(rec, idx, Opts{MinQual: 10})
	assert.NoError(t, err)
	assert.NotNil(t, drop)
	assert.Equal(t, errs.DropTooFewCpGs, *drop)
}

func TestDecodeMinQualBoundaryIsInclusive(t *testing.T) {
	ref, _ := sam.NewReference("chr1", "", "", 1000, nil, nil)
	idx := cpgindex.NewOpen()

	rec := newRecord(t, ref, 0, 0, 10, sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 1)}, "Z")
	_, drop, err := Decode(rec, idx, Opts{MinQual: 10})
	assert.NoError(t, err)
	assert.Nil(t, drop, "mapq exactly equal to min_qual must be accepted, not dropped")
}

func TestStateAtBinarySearch(t *testing.T) {
	obs := &ReadObservation{CpGs: []CpGObs{
		{ID: 2, State: Methylated},
		{ID: 5, State: Unmethylated},
		{ID: 9, State: Methylated},
	}}

	state, ok := obs.StateAt(5)
	assert.True(t, ok)
	assert.Equal(t, Unmethylated, state)

	_, ok = obs.StateAt(6)
	assert.False(t, ok)
}
