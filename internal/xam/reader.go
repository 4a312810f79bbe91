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

// Package xam opens a coordinate-sorted BAM file and exposes its records as
// a single forward-only stream. It is deliberately narrower than
// grailbio/bio/encoding/bamprovider: no sharding, no index-based seeking, no
// iterator pooling — every metheor subcommand makes exactly one linear pass.
package xam

import (
	"context"
	"io"
	"strings"

	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	gfile "github.com/grailbio/base/file"
	"github.com/grailbio/base/log"

	"github.com/dohlee/metheor/internal/errs"
)

// Reader streams sam.Records from a coordinate-sorted BAM file.
type Reader struct {
	path   string
	ctx    context.Context
	f      gfile.File
	bam    *bam.Reader
	header *sam.Header
}

// Open validates the BAM header declares SO:coordinate and returns a Reader
// positioned at the first record.
func Open(ctx context.Context, path string) (*Reader, error) {
	f, err := gfile.Open(ctx, path)
	if err != nil {
		return nil, errs.NewReaderError(errs.FileNotFound, path, err)
	}

	br, err := bam.NewReader(f.Reader(ctx), 0)
	if err != nil {
		gfile.CloseAndReport(ctx, f, &err)
		return nil, errs.NewReaderError(errs.Unreadable, path, err)
	}

	header := br.Header()
	if header == nil {
		gfile.CloseAndReport(ctx, f, &err)
		return nil, errs.NewReaderError(errs.MissingHeader, path, nil)
	}
	if !isCoordinateSorted(header) {
		gfile.CloseAndReport(ctx, f, &err)
		return nil, errs.NewReaderError(errs.NotSorted, path, nil)
	}

	log.Printf("xam: opened %s (%d references)", path, len(header.Refs()))
	return &Reader{path: path, ctx: ctx, f: f, bam: br, header: header}, nil
}

func isCoordinateSorted(h *sam.Header) bool {
	text, err := h.MarshalText()
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(text), "\n") {
		if !strings.HasPrefix(line, "@HD") {
			continue
		}
		for _, field := range strings.Split(line, "\t") {
			if field == "SO:coordinate" {
				return true
			}
		}
	}
	return false
}

// Header returns the parsed BAM header.
func (r *Reader) Header() *sam.Header { return r.header }

// Next returns the next record, or (nil, io.EOF) at end of stream.
func (r *Reader) Next() (*sam.Record, error) {
	rec, err := r.bam.Read()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errs.NewReaderError(errs.Unreadable, r.path, err)
	}
	return rec, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.f.Close(r.ctx)
}
