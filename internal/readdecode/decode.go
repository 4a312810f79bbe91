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

// Package readdecode converts a sam.Record into a compact ReadObservation by
// walking its CIGAR against its methylation call string, the way
// ExaScience/elprep's sam/cigar-utils.go classifies CIGAR operations by
// whether they consume reference or query bases — adapted here to
// grailbio/hts/sam.CigarOpType constants instead of elprep's raw CIGAR bytes.
package readdecode

import (
	"sort"

	"github.com/grailbio/hts/sam"

	"github.com/dohlee/metheor/internal/cpgindex"
	"github.com/dohlee/metheor/internal/errs"
)

// State is a read's methylation call at one CpG.
type State uint8

const (
	// Unmethylated is the 'z' call-string symbol.
	Unmethylated State = iota
	// Methylated is the 'Z' call-string symbol.
	Methylated
)

// ConcordanceClass summarizes a read's states across its observation list.
type ConcordanceClass uint8

const (
	AllMethylated ConcordanceClass = iota
	AllUnmethylated
	Discordant
)

// CpGObs is one (cpg_id, state) pair within a read, kept sorted ascending
// by ID.
type CpGObs struct {
	ID    cpgindex.CpGID
	State State
}

// ReadObservation is the decoder's output for one accepted record.
type ReadObservation struct {
	Name        string
	RefID       int32
	RefStart    int32
	RefEnd      int32
	CpGs        []CpGObs
	First, Last cpgindex.CpGID
	Concordance ConcordanceClass
	MapQ        byte
}

// methylationCallTag is the aux tag carrying the per-base call string
// ('Z'/'z'/other), matching the markduplicates/helpers.go pattern of
// package-level sam.Tag constants looked up via AuxFields.Get.
var methylationCallTag = sam.Tag{'X', 'M'}

// Opts configures record-level acceptance.
type Opts struct {
	MinQual byte
}

func consumesReference(op sam.CigarOpType) bool {
	switch op {
	case sam.CigarMatch, sam.CigarDeletion, sam.CigarSkipped, sam.CigarEqual, sam.CigarMismatch:
		return true
	default:
		return false
	}
}

func consumesQuery(op sam.CigarOpType) bool {
	switch op {
	case sam.CigarMatch, sam.CigarInsertion, sam.CigarSoftClipped, sam.CigarEqual, sam.CigarMismatch:
		return true
	default:
		return false
	}
}

// Decode applies spec's acceptance and CIGAR-walk procedure to one record.
// An accepted record yields (obs, nil, nil); a dropped one yields
// (nil, reason, nil).
func Decode(rec *sam.Record, idx *cpgindex.Index, opts Opts) (*ReadObservation, *errs.DecodeDropReason, error) {
	if drop := rejectReason(rec, opts); drop != nil {
		return nil, drop, nil
	}

	aux := rec.AuxFields.Get(methylationCallTag)
	if aux == nil {
		reason := errs.DropMissingCallTag
		return nil, &reason, nil
	}
	callString, ok := aux.Value().(string)
	if !ok || len(callString) == 0 {
		reason := errs.DropMissingCallTag
		return nil, &reason, nil
	}

	obs := &ReadObservation{
		Name:  rec.Name,
		RefID: int32(rec.Ref.ID()),
		MapQ:  byte(rec.MapQ),
	}

	refPos := int32(rec.Pos)
	queryPos := 0
	seen := make(map[cpgindex.CpGID]struct{})

	for _, op := range rec.Cigar {
		typ := op.Type()
		length := op.Len()
		refAdv := consumesReference(typ)
		qryAdv := consumesQuery(typ)

		for i := 0; i < length; i++ {
			if refAdv && qryAdv {
				if queryPos < len(callString) {
					appendObservation(obs, idx, seen, refPos, callString[queryPos])
				}
			}
			if refAdv {
				refPos++
			}
			if qryAdv {
				queryPos++
			}
		}
	}

	if len(obs.CpGs) == 0 {
		reason := errs.DropTooFewCpGs
		return nil, &reason, nil
	}
	sort.Slice(obs.CpGs, func(i, j int) bool { return obs.CpGs[i].ID < obs.CpGs[j].ID })

	obs.RefStart = int32(rec.Pos)
	obs.RefEnd = refPos
	obs.First = obs.CpGs[0].ID
	obs.Last = obs.CpGs[len(obs.CpGs)-1].ID
	obs.Concordance = classify(obs.CpGs)

	return obs, nil, nil
}

func appendObservation(obs *ReadObservation, idx *cpgindex.Index, seen map[cpgindex.CpGID]struct{}, refPos int32, call byte) {
	var state State
	switch call {
	case 'Z':
		state = Methylated
	case 'z':
		state = Unmethylated
	default:
		return
	}

	id, ok := idx.Lookup(obs.RefID, refPos)
	if !ok {
		return
	}
	// spec §3: later observations for a given cpg_id are discarded within a
	// read (first-seen wins; resolves the paired-end conflict open question).
	if _, dup := seen[id]; dup {
		return
	}
	seen[id] = struct{}{}
	obs.CpGs = append(obs.CpGs, CpGObs{ID: id, State: state})
}

// StateAt returns the read's call at cpg id, if it observed it. CpGs is
// sorted ascending, so this binary-searches rather than scanning linearly.
func (obs *ReadObservation) StateAt(id cpgindex.CpGID) (State, bool) {
	lo, hi := 0, len(obs.CpGs)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case obs.CpGs[mid].ID == id:
			return obs.CpGs[mid].State, true
		case obs.CpGs[mid].ID < id:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0, false
}

func classify(cpgs []CpGObs) ConcordanceClass {
	hasM, hasU := false, false
	for _, c := range cpgs {
		if c.State == Methylated {
			hasM = true
		} else {
			hasU = true
		}
	}
	switch {
	case hasM && hasU:
		return Discordant
	case hasM:
		return AllMethylated
	default:
		return AllUnmethylated
	}
}

func rejectReason(rec *sam.Record, opts Opts) *errs.DecodeDropReason {
	if rec.Flags&sam.Unmapped != 0 {
		reason := errs.DropUnmapped
		return &reason
	}
	if rec.MapQ < opts.MinQual {
		reason := errs.DropLowMapQ
		return &reason
	}
	if rec.Flags&(sam.Secondary|sam.Supplementary) != 0 {
		reason := errs.DropSecondaryOrSupplementary
		return &reason
	}
	return nil
}
