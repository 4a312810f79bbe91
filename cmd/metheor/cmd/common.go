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
	"v.io/x/lib/cmdline"

	"github.com/dohlee/metheor/internal/orchestrator"
)

// commonFlags are the -i/-o/--min-qual/--cpg-set flags every metric
// subcommand shares, mirroring bio-pamtool's convert/view flag groups
// declared inline on each *cmdline.Command.
type commonFlags struct {
	input   *string
	output  *string
	minQual *int
	cpgSet  *string
}

func registerCommonFlags(cmd *cmdline.Command) commonFlags {
	return commonFlags{
		input:   cmd.Flags.String("i", "", "Input coordinate-sorted BAM path (required)"),
		output:  cmd.Flags.String("o", "", "Output TSV path (required)"),
		minQual: cmd.Flags.Int("min-qual", 10, "Minimum mapping quality; reads below this are dropped"),
		cpgSet:  cmd.Flags.String("cpg-set", "", "Optional BED file restricting the CpG index to a fixed set; open index otherwise"),
	}
}

func (f commonFlags) toOpts() orchestrator.CommonOpts {
	return orchestrator.CommonOpts{
		Input:   *f.input,
		Output:  *f.output,
		MinQual: byte(*f.minQual),
		CpGSet:  *f.cpgSet,
	}
}
