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

package orchestrator

import (
	"context"

	"github.com/dohlee/metheor/internal/cpgindex"
	"github.com/dohlee/metheor/internal/errs"
	"github.com/dohlee/metheor/internal/metrics"
	"github.com/dohlee/metheor/internal/pileup"
	"github.com/dohlee/metheor/internal/tsvwriter"
)

// LPMDOpts is the lpmd subcommand's flag set.
type LPMDOpts struct {
	CommonOpts
	MinDistance int32
	MaxDistance int32
	PairsPath   string // optional; enables the per-pair report when non-empty
}

// RunLPMD assembles the pipeline with an LPMD kernel as its sink. LPMD
// drives entirely off the per-read stream (spec §4.5), so, unlike the
// bucket-driven kernels, it needs no Resolver.
func RunLPMD(ctx context.Context, opts LPMDOpts) error {
	if opts.MinDistance > opts.MaxDistance {
		return errs.NewConfigError("lpmd: --min-distance (%d) exceeds --max-distance (%d)", opts.MinDistance, opts.MaxDistance)
	}

	var kernel *metrics.LPMD
	_, refName, _, err := runPipeline(ctx, opts.CommonOpts, func(idx *cpgindex.Index, _ ReadResolver) pileup.Sink {
		kernel = metrics.NewLPMD(idx, opts.MinDistance, opts.MaxDistance, opts.PairsPath != "")
		return kernel
	})
	if err != nil {
		return err
	}

	out, err := tsvwriter.Create(ctx, opts.Output)
	if err != nil {
		return err
	}
	defer out.Close()

	nDiscordant, nTotal, lpmd, _ := kernel.Result()
	out.WriteLPMDSummary(nDiscordant, nTotal, lpmd)

	if opts.PairsPath == "" {
		return nil
	}
	pairsOut, err := tsvwriter.Create(ctx, opts.PairsPath)
	if err != nil {
		return err
	}
	defer pairsOut.Close()

	for _, row := range kernel.PairRows() {
		pairsOut.WriteLPMDPairRow(refName(row.A.RefID), row.A.Pos, refName(row.B.RefID), row.B.Pos, row.NDiscordant, row.NTotal)
	}
	return nil
}
