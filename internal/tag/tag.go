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

// Package tag annotates alignments with a Bismark-style XM methylation-call
// string (spec §4.2's call tag), computed from the read sequence and its
// aligned reference span rather than trusted from an upstream caller.
// Grounded on tag.rs's determine_xm_tag_string: walk the CIGAR to build a
// gapped (read, reference) base pair per alignment column, classify every
// reference cytosine by its trinucleotide context, and emit one call symbol
// per read base.
package tag

import (
	"strings"

	"github.com/grailbio/hts/sam"

	"github.com/dohlee/metheor/internal/refseq"
)

var complement = map[byte]byte{
	'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A', 'N': 'N',
	'M': 'K', 'R': 'Y', 'W': 'W', 'S': 'S', 'Y': 'R',
	'K': 'M', 'V': 'B', 'H': 'D', 'D': 'H', 'B': 'V', '-': '-',
}

func reverseComplement(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		out[len(s)-1-i] = complement[s[i]]
	}
	return string(out)
}

func needReverseComplement(rec *sam.Record) bool {
	reverse := rec.Flags&sam.Reverse != 0
	first := rec.Flags&sam.Read1 != 0
	last := rec.Flags&sam.Read2 != 0
	if !first && !last {
		return reverse
	}
	if (!reverse && first) || (reverse && last) {
		return false
	}
	return true
}

func isCpGContext(ctx string) bool {
	return strings.HasPrefix(ctx, "CG")
}

func isCHGContext(ctx string) bool {
	switch ctx {
	case "CAG", "CTG", "CCG":
		return true
	}
	return false
}

func isCHHContext(ctx string) bool {
	switch ctx {
	case "CAA", "CAT", "CAC", "CTA", "CTT", "CTC", "CCA", "CCT", "CCC":
		return true
	}
	return false
}

func isUnknownContext(ctx string) bool {
	return strings.ContainsAny(ctx, "-N")
}

// classify returns the XM symbol for a read base call at a reference
// context of 2-3 bases, or '.' when the call is neither C nor T.
func classify(ctx string, readBase byte) byte {
	switch {
	case isCpGContext(ctx):
		switch readBase {
		case 'C':
			return 'Z'
		case 'T':
			return 'z'
		}
	case isCHGContext(ctx):
		switch readBase {
		case 'C':
			return 'X'
		case 'T':
			return 'x'
		}
	case isCHHContext(ctx):
		switch readBase {
		case 'C':
			return 'H'
		case 'T':
			return 'h'
		}
	case isUnknownContext(ctx):
		switch readBase {
		case 'C':
			return 'U'
		case 'T':
			return 'u'
		}
	}
	return '.'
}

// referenceSpan sums the reference-consuming CIGAR operation lengths,
// matching rust_htslib's reference_end() without relying on an End()
// method grailbio/hts may not expose.
func referenceSpan(rec *sam.Record) int {
	span := 0
	for _, op := range rec.Cigar {
		switch op.Type() {
		case sam.CigarMatch, sam.CigarDeletion, sam.CigarSkipped, sam.CigarEqual, sam.CigarMismatch:
			span += op.Len()
		}
	}
	return span
}

// Determine computes the XM tag string for rec against genome, following
// the reference across rec's CIGAR and reading 2 bases of flanking context
// on each side to resolve contexts at the alignment's edges.
func Determine(rec *sam.Record, genome refseq.Genome, isPairedEnd bool) (string, error) {
	refName := rec.Ref.Name()
	chromLen, err := genome.Len(refName)
	if err != nil {
		return "", err
	}

	start := rec.Pos
	end := start + referenceSpan(rec)

	clippedStart := start - 2
	if clippedStart < 0 {
		clippedStart = 0
	}
	clippedEnd := end + 2
	if clippedEnd > chromLen {
		clippedEnd = chromLen
	}
	refSeq, err := genome.Get(refName, clippedStart, clippedEnd)
	if err != nil {
		return "", err
	}
	refSeq = strings.ToUpper(refSeq)

	padStart := 2 - start
	if padStart < 0 {
		padStart = 0
	}
	padEnd := end - chromLen + 2
	if padEnd < 0 {
		padEnd = 0
	}
	refSeq = strings.Repeat("N", padStart) + refSeq + strings.Repeat("N", padEnd)

	readSeq := strings.ToUpper(string(rec.Seq.Expand()))

	readAligned := make([]byte, 0, len(readSeq)+4)
	refAligned := make([]byte, 0, len(refSeq)+4)
	readAligned = append(readAligned, '-', '-')
	refAligned = append(refAligned, refSeq[0], refSeq[1])

	usedRead, usedRef := 0, 2
	for _, op := range rec.Cigar {
		n := op.Len()
		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			readAligned = append(readAligned, readSeq[usedRead:usedRead+n]...)
			refAligned = append(refAligned, refSeq[usedRef:usedRef+n]...)
			usedRead += n
			usedRef += n
		case sam.CigarInsertion, sam.CigarSoftClipped:
			readAligned = append(readAligned, readSeq[usedRead:usedRead+n]...)
			for i := 0; i < n; i++ {
				refAligned = append(refAligned, '-')
			}
			usedRead += n
		case sam.CigarDeletion, sam.CigarSkipped:
			for i := 0; i < n; i++ {
				readAligned = append(readAligned, '-')
			}
			refAligned = append(refAligned, refSeq[usedRef:usedRef+n]...)
			usedRef += n
		}
	}
	readAligned = append(readAligned, '-', '-')
	refAligned = append(refAligned, refSeq[len(refSeq)-2], refSeq[len(refSeq)-1])

	reverse := isPairedEnd && needReverseComplement(rec) || !isPairedEnd && rec.Flags&sam.Reverse != 0

	var targetRead, targetRef string
	if reverse {
		targetRead = reverseComplement(string(readAligned[:len(readAligned)-2]))
		targetRef = reverseComplement(string(refAligned[:len(refAligned)-2]))
	} else {
		targetRead = string(readAligned[2:])
		targetRef = string(refAligned[2:])
	}

	xm := make([]byte, 0, len(targetRead))
	for i := 0; i < len(targetRead)-2; i++ {
		rb := targetRead[i]
		switch {
		case rb == '-':
			continue
		case rb == 'N':
			xm = append(xm, '.')
		case targetRef[i] == 'C':
			ctx := contextAt(targetRead, targetRef, i)
			xm = append(xm, classify(ctx, rb))
		default:
			xm = append(xm, '.')
		}
	}

	if reverse {
		for i, j := 0, len(xm)-1; i < j; i, j = i+1, j-1 {
			xm[i], xm[j] = xm[j], xm[i]
		}
	}
	return string(xm), nil
}

// contextAt gathers the reference trinucleotide anchored at i, skipping
// over any read-side deletion gaps the way tag.rs's inner while loop scans
// forward past '-' bases before taking its second and third context base.
func contextAt(read, ref string, i int) string {
	ctx := []byte{ref[i]}
	need := 2
	for j := i + 1; j < len(read) && need > 0; j++ {
		if read[j] == '-' {
			continue
		}
		ctx = append(ctx, ref[j])
		need--
	}
	return string(ctx)
}
