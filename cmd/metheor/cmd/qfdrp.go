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

package cmd

import (
	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"

	"github.com/dohlee/metheor/internal/orchestrator"
)

func newCmdQFDRP() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "qfdrp",
		Short: "Compute the quantitative fraction of discordant read pairs per CpG",
	}
	common := registerCommonFlags(cmd)
	minDepth := cmd.Flags.Int("min-depth", 10, "Minimum number of reads covering a CpG for it to be reported")
	maxDepth := cmd.Flags.Int("max-depth", 40, "Cap on reads sampled per CpG before pairwise comparison; reservoir-sampled beyond this")
	minOverlap := cmd.Flags.Int("min-overlap", 35, "Minimum shared reference span, in bases, for a read pair to qualify")
	threads := cmd.Flags.Int("threads", 0, "Worker pool size for pairwise evaluation; 0 = all logical cores")
	parallelThreshold := cmd.Flags.Int("parallel-threshold", 100, "Minimum number of sampled reads per CpG before pair evaluation fans out to the worker pool")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		return orchestrator.RunQFDRP(vcontext.Background(), orchestrator.QFDRPOpts{
			CommonOpts:        common.toOpts(),
			MinDepth:          *minDepth,
			MaxDepth:          *maxDepth,
			MinOverlap:        int32(*minOverlap),
			Threads:           *threads,
			ParallelThreshold: *parallelThreshold,
		})
	})
	return cmd
}
