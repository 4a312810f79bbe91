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

package metrics

import (
	"github.com/dohlee/metheor/internal/pileup"
	"github.com/dohlee/metheor/internal/readdecode"
)

// Resolver turns a pileup.ReadID back into the decoded observation that
// produced it. The orchestrator binds this to the running pileup.Engine's
// Observation method.
type Resolver func(pileup.ReadID) (*readdecode.ReadObservation, bool)

func isMethylState(s readdecode.State) bool {
	return s == readdecode.Methylated
}
