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

// Package refseq loads an in-memory reference genome from FASTA, the way
// the tag annotator needs random access to flanking bases around every
// aligned base. Adapted from grailbio/bio's encoding/fasta package: this
// package keeps only the whole-file, in-memory Fasta (fasta.go's fasta
// type), dropping the .fai-indexed and eager-indexed variants — the tag
// annotator processes one full reference genome per run, never a
// random-access slice of a much larger file, so there is no shard boundary
// an index would help with.
package refseq

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const bufferInitSize = 1024 * 1024 * 300

// Genome holds every named sequence of a FASTA file in memory, uppercased.
type Genome interface {
	// Get returns the 0-based half-open [start, end) substring of seqName.
	Get(seqName string, start, end int) (string, error)
	// Len returns the length of seqName.
	Len(seqName string) (int, error)
	// SeqNames returns sequence names in file order.
	SeqNames() []string
}

type genome struct {
	seqs     map[string]string
	seqNames []string
}

// Load reads r fully into memory, matching fasta.New's single-scan parse.
func Load(r io.Reader) (Genome, error) {
	g := &genome{seqs: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, bufferInitSize)

	var name string
	var seq strings.Builder
	flush := func() {
		if name != "" {
			g.seqs[name] = strings.ToUpper(seq.String())
			g.seqNames = append(g.seqNames, name)
		}
		seq.Reset()
	}
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			flush()
			name = strings.Split(line[1:], " ")[0]
			continue
		}
		seq.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "refseq: reading FASTA")
	}
	flush()
	return g, nil
}

func (g *genome) Get(seqName string, start, end int) (string, error) {
	s, ok := g.seqs[seqName]
	if !ok {
		return "", errors.Errorf("refseq: sequence not found: %s", seqName)
	}
	if start < 0 || end < start || end > len(s) {
		return "", errors.Errorf("refseq: invalid range %d-%d for %s (length %d)", start, end, seqName, len(s))
	}
	return s[start:end], nil
}

func (g *genome) Len(seqName string) (int, error) {
	s, ok := g.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("refseq: sequence not found: %s", seqName)
	}
	return len(s), nil
}

func (g *genome) SeqNames() []string {
	return g.seqNames
}
