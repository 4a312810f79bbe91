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

func newCmdMHL() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "mhl",
		Short: "Compute the methylation haplotype load per CpG stretch",
	}
	common := registerCommonFlags(cmd)
	minDepth := cmd.Flags.Int("min-depth", 10, "Minimum number of reads covering a CpG for it to be included in a stretch")
	minCpgs := cmd.Flags.Int("min-cpgs", 10, "Minimum number of CpGs a stretch must span to be reported")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		return orchestrator.RunMHL(vcontext.Background(), orchestrator.MHLOpts{
			CommonOpts: common.toOpts(),
			MinDepth:   *minDepth,
			MinCpgs:    *minCpgs,
		})
	})
	return cmd
}
