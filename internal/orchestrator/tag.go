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

package orchestrator

import (
	"context"
	"io"

	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	gfile "github.com/grailbio/base/file"
	"github.com/grailbio/base/log"

	"github.com/dohlee/metheor/internal/errs"
	"github.com/dohlee/metheor/internal/refseq"
	"github.com/dohlee/metheor/internal/tag"
	"github.com/dohlee/metheor/internal/xam"
)

var xmTag = sam.NewTag("XM")

// TagOpts is the tag subcommand's flag set. It does not embed CommonOpts:
// the annotator writes a BAM, not a metric TSV, and needs a reference
// genome instead of a CpG set.
type TagOpts struct {
	Input       string
	Output      string
	GenomePath  string
	PairedEnd   bool
}

// RunTag streams Input, computing and attaching an XM methylation-call tag
// to every mapped record from its aligned read/reference bases, and writes
// the annotated records to Output as a BAM.
func RunTag(ctx context.Context, opts TagOpts) error {
	reader, err := xam.Open(ctx, opts.Input)
	if err != nil {
		return err
	}
	defer reader.Close()

	genomeFile, err := gfile.Open(ctx, opts.GenomePath)
	if err != nil {
		return errs.NewReaderError(errs.FileNotFound, opts.GenomePath, err)
	}
	genome, err := refseq.Load(genomeFile.Reader(ctx))
	gfile.CloseAndReport(ctx, genomeFile, &err)
	if err != nil {
		return err
	}

	out, err := gfile.Create(ctx, opts.Output)
	if err != nil {
		return errs.NewIOError("tag: creating "+opts.Output, err)
	}
	writer, err := bam.NewWriter(out.Writer(ctx), reader.Header(), 1)
	if err != nil {
		gfile.CloseAndReport(ctx, out, &err)
		return errs.NewIOError("tag: opening BAM writer", err)
	}

	nTagged, nSkipped := 0, 0
	for {
		rec, rerr := reader.Next()
		if rerr != nil {
			if rerr != io.EOF {
				err = rerr
			}
			break
		}
		if rec.Flags&sam.Unmapped != 0 || rec.Ref == nil {
			nSkipped++
			if werr := writer.Write(rec); werr != nil {
				err = errs.NewIOError("tag: writing record", werr)
				break
			}
			continue
		}
		call, derr := tag.Determine(rec, genome, opts.PairedEnd)
		if derr != nil {
			nSkipped++
			if werr := writer.Write(rec); werr != nil {
				err = errs.NewIOError("tag: writing record", werr)
				break
			}
			continue
		}
		aux, auxErr := sam.NewAux(xmTag, call)
		if auxErr != nil {
			err = errs.NewIOError("tag: building XM aux field", auxErr)
			break
		}
		rec.AuxFields = append(rec.AuxFields, aux)
		nTagged++
		if werr := writer.Write(rec); werr != nil {
			err = errs.NewIOError("tag: writing record", werr)
			break
		}
	}

	if cerr := writer.Close(); err == nil {
		err = cerr
	}
	gfile.CloseAndReport(ctx, out, &err)
	if err != nil {
		return err
	}
	log.Printf("tag: annotated %d records, skipped %d (unmapped or unresolvable)", nTagged, nSkipped)
	return nil
}
