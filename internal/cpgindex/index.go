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

// Package cpgindex assigns stable CpGID values to (reference, position)
// pairs, either lazily as they are first observed ("open" mode) or
// pre-populated from a BED file ("restricted" mode).
package cpgindex

import (
	"bufio"
	"io"
	"os"
	"strconv"

	"github.com/grailbio/base/log"
	"github.com/klauspost/compress/gzip"

	"github.com/dohlee/metheor/internal/errs"
)

// CpGID is a dense, run-stable identifier for one (reference, position) pair.
type CpGID uint32

// Position is a decoded CpG site, used when a kernel needs to render a
// CpGID back into genomic coordinates for output.
type Position struct {
	RefID int32
	Pos   int32
}

type key struct {
	refID int32
	pos   int32
}

// Index maps (refID, 0-based pos) pairs to CpGID. In open mode, ids are
// handed out in encounter order; since the caller always walks a
// coordinate-sorted stream, this is equivalent to ascending genomic order
// per reference (spec's invariant for the open-mode case). In restricted
// mode, ids are handed out in BED file order at construction time and the
// set is closed: Lookup on an absent key reports !ok.
type Index struct {
	restricted bool
	byKey      map[key]CpGID
	positions  []Position
}

// NewOpen returns an Index that mints a fresh id the first time a position
// is looked up.
func NewOpen() *Index {
	return &Index{
		restricted: false,
		byKey:      make(map[key]CpGID),
	}
}

// NewRestricted returns an Index pre-populated from a BED stream, in the
// tokenizer style of grailbio/bio/interval.NewBEDUnion, trimmed to flat
// point membership instead of a merged interval union: metheor only ever
// needs "is this exact position a CpG", not interval overlap. chrNameToRefID
// resolves a BED chromosome column to the BAM's reference id space.
func NewRestricted(r io.Reader, chrNameToRefID map[string]int32) (*Index, error) {
	idx := &Index{
		restricted: true,
		byKey:      make(map[key]CpGID),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		chrom, start, _, ok := parseBEDLine(line)
		if !ok {
			continue
		}
		refID, known := chrNameToRefID[chrom]
		if !known {
			continue
		}
		k := key{refID: refID, pos: start}
		if _, seen := idx.byKey[k]; seen {
			continue
		}
		id := CpGID(len(idx.positions))
		idx.byKey[k] = id
		idx.positions = append(idx.positions, Position{RefID: refID, Pos: start})
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.NewConfigError("cpgindex: reading BED at line %d: %v", lineNo, err)
	}
	log.Printf("cpgindex: loaded %d CpG sites from BED", len(idx.positions))
	return idx, nil
}

// NewRestrictedFromPath opens path, transparently gunzipping if the content
// is gzip-compressed (klauspost/compress/gzip, matching the rest of the
// pack's BED/FASTA readers), and builds a restricted Index from it.
func NewRestrictedFromPath(path string, chrNameToRefID map[string]int32) (*Index, error) {
	f, err := openMaybeGzip(path)
	if err != nil {
		return nil, errs.NewConfigError("cpgindex: opening %s: %v", path, err)
	}
	defer f.Close()
	return NewRestricted(f, chrNameToRefID)
}

// getTokens splits a BED line on whitespace runs, adapted from
// grailbio/bio/interval.getTokens but returning plain strings since BED
// files here are small enough that the allocation doesn't matter.
func getTokens(line []byte) []string {
	var tokens []string
	lineLen := len(line)
	pos := 0
	for pos < lineLen {
		for pos < lineLen && line[pos] <= ' ' {
			pos++
		}
		start := pos
		for pos < lineLen && line[pos] > ' ' {
			pos++
		}
		if pos > start {
			tokens = append(tokens, string(line[start:pos]))
		}
	}
	return tokens
}

func parseBEDLine(line []byte) (chrom string, start, end int32, ok bool) {
	tokens := getTokens(line)
	if len(tokens) < 3 {
		return "", 0, 0, false
	}
	s, err := strconv.ParseInt(tokens[1], 10, 32)
	if err != nil {
		return "", 0, 0, false
	}
	e, err := strconv.ParseInt(tokens[2], 10, 32)
	if err != nil {
		return "", 0, 0, false
	}
	return tokens[0], int32(s), int32(e), true
}

// Lookup returns the CpGID for (refID, pos). In open mode, an unseen
// position is assigned a new id and ok is always true. In restricted mode,
// ok is false when the position is not part of the loaded BED set.
func (idx *Index) Lookup(refID, pos int32) (CpGID, bool) {
	k := key{refID: refID, pos: pos}
	if id, found := idx.byKey[k]; found {
		return id, true
	}
	if idx.restricted {
		return 0, false
	}
	id := CpGID(len(idx.positions))
	idx.byKey[k] = id
	idx.positions = append(idx.positions, Position{RefID: refID, Pos: pos})
	return id, true
}

// Position returns the genomic coordinates for a previously-assigned id.
func (idx *Index) Position(id CpGID) Position {
	return idx.positions[id]
}

// Len returns the number of ids assigned so far.
func (idx *Index) Len() int { return len(idx.positions) }

func openMaybeGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err == nil && len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, gzErr := gzip.NewReader(br)
		if gzErr != nil {
			f.Close()
			return nil, gzErr
		}
		return &gzipCloser{gz: gz, underlying: f}, nil
	}
	return &bufReadCloser{r: br, underlying: f}, nil
}

type gzipCloser struct {
	gz         *gzip.Reader
	underlying io.Closer
}

func (g *gzipCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }
func (g *gzipCloser) Close() error {
	if err := g.gz.Close(); err != nil {
		g.underlying.Close()
		return err
	}
	return g.underlying.Close()
}

type bufReadCloser struct {
	r          *bufio.Reader
	underlying io.Closer
}

func (b *bufReadCloser) Read(p []byte) (int, error) { return b.r.Read(p) }
func (b *bufReadCloser) Close() error                { return b.underlying.Close() }
