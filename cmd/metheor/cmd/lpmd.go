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

func newCmdLPMD() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "lpmd",
		Short: "Compute local pairwise methylation discordance across nearby CpG pairs",
	}
	common := registerCommonFlags(cmd)
	minDistance := cmd.Flags.Int("min-distance", 2, "Minimum genomic distance between a qualifying CpG pair")
	maxDistance := cmd.Flags.Int("max-distance", 16, "Maximum genomic distance between a qualifying CpG pair")
	pairs := cmd.Flags.String("pairs", "", "Optional path for the per-pair discordance report")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		return orchestrator.RunLPMD(vcontext.Background(), orchestrator.LPMDOpts{
			CommonOpts:  common.toOpts(),
			MinDistance: int32(*minDistance),
			MaxDistance: int32(*maxDistance),
			PairsPath:   *pairs,
		})
	})
	return cmd
}
