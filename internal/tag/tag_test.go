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

package tag

import (
	"strings"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/stretchr/testify/assert"

	"github.com/dohlee/metheor/internal/refseq"
)

func loadGenome(t *testing.T, name, seq string) refseq.Genome {
	t.Helper()
	g, err := refseq.Load(strings.NewReader(">" + name + "\n" + seq + "\n"))
	assert.NoError(t, err)
	return g
}

func newAlignedRecord(ref *sam.Reference, pos int, seq string, reverse bool) *sam.Record {
	rec := &sam.Record{
		Name:  "r1",
		Ref:   ref,
		Pos:   pos,
		Cigar: sam.Cigar{sam.NewCigarOp(sam.CigarMatch, len(seq))},
		Seq:   sam.NewSeq([]byte(seq)),
	}
	if reverse {
		rec.Flags |= sam.Reverse
	}
	return rec
}

func TestDetermineClassifiesCpGContext(t *testing.T) {
	ref, err := sam.NewReference("chr1", "", "", 9, nil, nil)
	assert.NoError(t, err)

	// "TTTCGGTTT": index 3-5 = "CGG", a CpG context (prefix "CG").
	genome := loadGenome(t, "chr1", "TTTCGGTTT")
	rec := newAlignedRecord(ref, 3, "CGG", false)

	call, err := Determine(rec, genome, false)
	assert.NoError(t, err)
	assert.Equal(t, "Z..", call)
}

func TestDetermineClassifiesCHGContext(t *testing.T) {
	ref, err := sam.NewReference("chr1", "", "", 9, nil, nil)
	assert.NoError(t, err)
	genome := loadGenome(t, "chr1", "TTTCAGTTT") // index 3-5 = "CAG"

	rec := newAlignedRecord(ref, 3, "CAG", false)
	call, err := Determine(rec, genome, false)
	assert.NoError(t, err)
	assert.Equal(t, "X..", call)
}

func TestDetermineClassifiesCHHContext(t *testing.T) {
	ref, err := sam.NewReference("chr1", "", "", 9, nil, nil)
	assert.NoError(t, err)
	genome := loadGenome(t, "chr1", "TTTCAATTT") // index 3-5 = "CAA"

	rec := newAlignedRecord(ref, 3, "CAA", false)
	call, err := Determine(rec, genome, false)
	assert.NoError(t, err)
	assert.Equal(t, "H..", call)
}

func TestDetermineUnmethylatedCallIsLowercase(t *testing.T) {
	ref, err := sam.NewReference("chr1", "", "", 9, nil, nil)
	assert.NoError(t, err)
	genome := loadGenome(t, "chr1", "TTTCGGTTT")

	// A converted (unmethylated) C reads out as T in the sequenced read.
	rec := newAlignedRecord(ref, 3, "TGG", false)
	call, err := Determine(rec, genome, false)
	assert.NoError(t, err)
	assert.Equal(t, "z..", call)
}

func TestDetermineNonCContextBasesAreDots(t *testing.T) {
	ref, err := sam.NewReference("chr1", "", "", 9, nil, nil)
	assert.NoError(t, err)
	genome := loadGenome(t, "chr1", "TTTAAATTT")

	rec := newAlignedRecord(ref, 3, "AAA", false)
	call, err := Determine(rec, genome, false)
	assert.NoError(t, err)
	assert.Equal(t, "...", call)
}

func TestNeedReverseComplementSingleEndUsesReverseFlag(t *testing.T) {
	rec := &sam.Record{Flags: sam.Reverse}
	assert.True(t, needReverseComplement(rec))

	rec = &sam.Record{Flags: 0}
	assert.False(t, needReverseComplement(rec))
}

func TestNeedReverseComplementPairedEndMateOrientation(t *testing.T) {
	// Forward read1 or reverse read2: original (Watson-strand) orientation.
	assert.False(t, needReverseComplement(&sam.Record{Flags: sam.Read1}))
	assert.False(t, needReverseComplement(&sam.Record{Flags: sam.Reverse | sam.Read2}))

	// Reverse read1 or forward read2: needs reverse-complementing.
	assert.True(t, needReverseComplement(&sam.Record{Flags: sam.Reverse | sam.Read1}))
	assert.True(t, needReverseComplement(&sam.Record{Flags: sam.Read2}))
}

func TestReverseComplement(t *testing.T) {
	assert.Equal(t, "CCGGAATT", reverseComplement("AATTCCGG"))
	assert.Equal(t, "N-AT", reverseComplement("AT-N"))
}

func TestClassifyContextPredicates(t *testing.T) {
	assert.True(t, isCpGContext("CGA"))
	assert.True(t, isCHGContext("CTG"))
	assert.True(t, isCHHContext("CCT"))
	assert.True(t, isUnknownContext("C-G"))
	assert.True(t, isUnknownContext("CNG"))
	assert.False(t, isCHGContext("CGA"))
}

func TestReferenceSpanSumsReferenceConsumingOps(t *testing.T) {
	rec := &sam.Record{Cigar: sam.Cigar{
		sam.NewCigarOp(sam.CigarMatch, 5),
		sam.NewCigarOp(sam.CigarInsertion, 2),
		sam.NewCigarOp(sam.CigarDeletion, 3),
		sam.NewCigarOp(sam.CigarSoftClipped, 4),
	}}
	assert.Equal(t, 8, referenceSpan(rec))
}
