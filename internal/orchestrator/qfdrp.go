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
	"github.com/dohlee/metheor/internal/metrics"
	"github.com/dohlee/metheor/internal/pileup"
	"github.com/dohlee/metheor/internal/threadpool"
	"github.com/dohlee/metheor/internal/tsvwriter"
)

// QFDRPOpts is the qfdrp subcommand's flag set.
type QFDRPOpts struct {
	CommonOpts
	MinDepth          int
	MaxDepth          int
	MinOverlap        int32
	Threads           int
	ParallelThreshold int
}

// RunQFDRP assembles the pipeline with a qFDRP kernel as its sink.
func RunQFDRP(ctx context.Context, opts QFDRPOpts) error {
	pool := threadpool.New(opts.Threads)

	var kernel *metrics.QFDRP
	_, refName, _, err := runPipeline(ctx, opts.CommonOpts, func(idx *cpgindex.Index, resolve ReadResolver) pileup.Sink {
		kernel = metrics.NewQFDRP(idx, opts.MinDepth, opts.MaxDepth, opts.MinOverlap, metrics.Resolver(resolve), pool, opts.ParallelThreshold)
		return kernel
	})
	if err != nil {
		return err
	}
	kernel.Close()

	out, err := tsvwriter.Create(ctx, opts.Output)
	if err != nil {
		return err
	}
	defer out.Close()

	for _, row := range kernel.Rows() {
		out.WritePerCpGRow(refName(row.Pos.RefID), row.Pos.Pos, row.QFDRP, row.NReads)
	}
	return nil
}
