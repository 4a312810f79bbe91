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

// Package cmd assembles the metheor CLI's subcommand tree, the same shape
// bio-pamtool/cmd builds: one newCmdXxx per subcommand, wired together by
// Run into a single v.io/x/lib/cmdline.Main call.
package cmd

import (
	"log"

	"v.io/x/lib/cmdline"
)

// Run parses os.Args and dispatches to the matching subcommand.
func Run() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(&cmdline.Command{
		Name:  "metheor",
		Short: "Compute DNA methylation heterogeneity metrics from bisulfite-sequencing alignments",
		Children: []*cmdline.Command{
			newCmdPDR(),
			newCmdLPMD(),
			newCmdMHL(),
			newCmdPM(),
			newCmdME(),
			newCmdFDRP(),
			newCmdQFDRP(),
			newCmdTag(),
		},
	})
}
