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

// Package metrics implements the seven heterogeneity kernels (PDR, LPMD,
// MHL, PM, ME, FDRP, qFDRP) sharing quartet extraction, Hamming distance,
// and reservoir sampling helpers, grounded on
// original_source/src/{pdr,lpmd,mhl,pm,me,fdrp,qfdrp}.rs.
package metrics

import (
	"math"

	"github.com/dohlee/metheor/internal/cpgindex"
	"github.com/dohlee/metheor/internal/readdecode"
)

// QuartetPattern is a 4-bit methylation pattern over four consecutive CpGs,
// one bit per CpG (bit set = Methylated), matching original_source's
// readutil::QuartetPattern usize-indexed-by-16 representation.
type QuartetPattern uint8

// QuartetAnchor identifies a quartet by the CpGID of its first (lowest-id)
// member.
type QuartetAnchor cpgindex.CpGID

// extractQuartets returns, for a single read's sorted CpG observations,
// every sliding 4-CpG window anchored at its first contributing CpG: one
// quartet per four *consecutive* entries in obs.CpGs (spec §3: "each read
// contributes max(0, observed_cpgs - 3) quartets").
func extractQuartets(obs *readdecode.ReadObservation) []struct {
	Anchor  QuartetAnchor
	Pattern QuartetPattern
} {
	n := len(obs.CpGs)
	if n < 4 {
		return nil
	}
	out := make([]struct {
		Anchor  QuartetAnchor
		Pattern QuartetPattern
	}, 0, n-3)
	for i := 0; i+4 <= n; i++ {
		var p QuartetPattern
		for bit := 0; bit < 4; bit++ {
			if obs.CpGs[i+bit].State == readdecode.Methylated {
				p |= 1 << bit
			}
		}
		out = append(out, struct {
			Anchor  QuartetAnchor
			Pattern QuartetPattern
		}{Anchor: QuartetAnchor(obs.CpGs[i].ID), Pattern: p})
	}
	return out
}

// quartetFrequencies reduces observed quartet-pattern counts at a single
// anchor into PM and ME, mirroring pm.rs's PMResult::to_bedgraph_field and
// me.rs's MEResult::to_bedgraph_field.
func quartetFrequencies(counts [16]uint32) (pm, me float64, total uint32) {
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0, 0, 0
	}
	pm = 1.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		f := float64(c) / float64(total)
		pm -= f * f
		me -= f * math.Log2(f)
	}
	me /= 4.0
	return pm, me, total
}
