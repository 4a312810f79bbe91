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

// Package tsvwriter wraps github.com/grailbio/base/tsv.Writer with one
// schema function per metric, the way grailbio/bio/pileup/snp/output.go's
// writeChromPosRef wraps tsv.Writer with the columns common to its output
// formats.
package tsvwriter

import (
	"context"
	"fmt"

	gfile "github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"

	"github.com/dohlee/metheor/internal/errs"
)

// Writer buffers tab-separated rows to a file, flushed on Close.
type Writer struct {
	ctx context.Context
	f   gfile.File
	tsv *tsv.Writer
}

// Create opens path for writing and wraps it with a tsv.Writer, matching
// pileup/snp/output.go's file.Create + tsv.NewWriter pairing.
func Create(ctx context.Context, path string) (*Writer, error) {
	f, err := gfile.Create(ctx, path)
	if err != nil {
		return nil, errs.NewIOError("tsvwriter: creating "+path, err)
	}
	return &Writer{ctx: ctx, f: f, tsv: tsv.NewWriter(f.Writer(ctx))}, nil
}

// Close flushes buffered output and closes the underlying file.
func (w *Writer) Close() (err error) {
	if ferr := w.tsv.Flush(); ferr != nil {
		err = errs.NewIOError("tsvwriter: flush", ferr)
	}
	gfile.CloseAndReport(w.ctx, w.f, &err)
	return err
}

// WritePDRRow writes a PDR/MHL-shaped row: reference, start, end, value,
// n_reads, n_discordant (per spec §6's per-stretch schema).
func (w *Writer) WritePDRRow(ref string, start, end int32, value float64, nTotal, nDiscordant int) {
	w.tsv.WriteString(ref)
	w.tsv.WriteUint32(uint32(start))
	w.tsv.WriteUint32(uint32(end))
	w.tsv.WriteString(formatFloat(value))
	w.tsv.WriteUint32(uint32(nTotal))
	w.tsv.WriteUint32(uint32(nDiscordant))
	w.tsv.EndLine()
}

// WriteMHLRow writes an MHL row: reference, start, end, value (no
// discordance column, per spec §6).
func (w *Writer) WriteMHLRow(ref string, start, end int32, value float64) {
	w.tsv.WriteString(ref)
	w.tsv.WriteUint32(uint32(start))
	w.tsv.WriteUint32(uint32(end))
	w.tsv.WriteString(formatFloat(value))
	w.tsv.EndLine()
}

// WritePerCpGRow writes a PM/ME/FDRP/qFDRP-shaped row: reference,
// position, value, n_reads_used (per spec §6's per-CpG schema).
func (w *Writer) WritePerCpGRow(ref string, pos int32, value float64, nReads int) {
	w.tsv.WriteString(ref)
	w.tsv.WriteUint32(uint32(pos))
	w.tsv.WriteString(formatFloat(value))
	w.tsv.WriteUint32(uint32(nReads))
	w.tsv.EndLine()
}

// WriteLPMDSummary writes the single global LPMD line: n_discordant_pairs,
// n_total_pairs, lpmd.
func (w *Writer) WriteLPMDSummary(nDiscordant, nTotal int64, lpmd float64) {
	w.tsv.WriteString(fmt.Sprintf("%d", nDiscordant))
	w.tsv.WriteString(fmt.Sprintf("%d", nTotal))
	w.tsv.WriteString(formatFloat(lpmd))
	w.tsv.EndLine()
}

// WriteLPMDPairRow writes one row of the optional per-pair report:
// cpg_a, cpg_b, n_discordant, n_total.
func (w *Writer) WriteLPMDPairRow(refA string, posA int32, refB string, posB int32, nDiscordant, nTotal int64) {
	w.tsv.WriteString(refA)
	w.tsv.WriteUint32(uint32(posA))
	w.tsv.WriteString(refB)
	w.tsv.WriteUint32(uint32(posB))
	w.tsv.WriteString(fmt.Sprintf("%d", nDiscordant))
	w.tsv.WriteString(fmt.Sprintf("%d", nTotal))
	w.tsv.EndLine()
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
