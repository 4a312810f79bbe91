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

func newCmdTag() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "tag",
		Short: "Annotate a BAM with an XM methylation-call tag computed against a reference genome",
	}
	bamPath := cmd.Flags.String("i", "", "Input coordinate-sorted BAM path (required)")
	output := cmd.Flags.String("o", "", "Output annotated BAM path (required)")
	genome := cmd.Flags.String("g", "", "Reference genome FASTA path (required)")
	pairedEnd := cmd.Flags.Bool("paired-end", false, "Input is paired-end; affects which mate orientation is reverse-complemented")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		return orchestrator.RunTag(vcontext.Background(), orchestrator.TagOpts{
			Input:      *bamPath,
			Output:     *output,
			GenomePath: *genome,
			PairedEnd:  *pairedEnd,
		})
	})
	return cmd
}
