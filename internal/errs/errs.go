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

// Package errs defines the error taxonomy shared by every metheor
// subcommand: config-time mistakes, reader-level input failures, per-record
// decode failures, and writer failures.
package errs

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// ReaderErrorKind classifies a fatal Alignment Reader failure.
type ReaderErrorKind int

const (
	// FileNotFound means the input path does not exist or is not reachable.
	FileNotFound ReaderErrorKind = iota
	// Unreadable means the file exists but could not be parsed as a BAM.
	Unreadable
	// NotSorted means the header does not declare SO:coordinate.
	NotSorted
	// MissingIndex means an operation that requires random access was asked
	// for on a file with no companion index. The streaming kernels never
	// trigger this; it exists for completeness per spec.
	MissingIndex
	// MissingHeader means the BAM has no parseable header block.
	MissingHeader
	// MissingTag names a missing methylation-call aux tag. No reader check
	// raises it; the decoder drops such records with DropMissingCallTag.
	MissingTag
)

func (k ReaderErrorKind) String() string {
	switch k {
	case FileNotFound:
		return "file not found"
	case Unreadable:
		return "unreadable"
	case NotSorted:
		return "not coordinate-sorted"
	case MissingIndex:
		return "missing index"
	case MissingHeader:
		return "missing header"
	case MissingTag:
		return "missing methylation-call tag"
	default:
		return "unknown"
	}
}

// ReaderError is a fatal Alignment Reader failure (spec §4.1, §7).
type ReaderError struct {
	Kind ReaderErrorKind
	Path string
	Err  error
}

func (e *ReaderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("xam: %s: %s: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("xam: %s: %s", e.Path, e.Kind)
}

func (e *ReaderError) Unwrap() error { return e.Err }

// NewReaderError wraps err (if any) with path/kind context via
// grailbio/base/errors, the same wrapping idiom markduplicates and
// encoding/bamprovider use, while still returning a *ReaderError so callers
// can switch on Kind.
func NewReaderError(kind ReaderErrorKind, path string, err error) error {
	wrapped := err
	if wrapped != nil {
		wrapped = errors.E(err, fmt.Sprintf("xam: opening %s", path))
	}
	return &ReaderError{Kind: kind, Path: path, Err: wrapped}
}

// ConfigError reports an invalid flag combination or missing required value.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "config: " + e.Msg }

// NewConfigError builds a ConfigError from a format string.
func NewConfigError(format string, args ...interface{}) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// DecodeDropReason explains why the Read Decoder dropped a record. It never
// aborts a run; the orchestrator accumulates counts per reason.
type DecodeDropReason int

const (
	// DropUnmapped means the record's unmapped flag was set.
	DropUnmapped DecodeDropReason = iota
	// DropLowMapQ means mapping quality was below min_qual.
	DropLowMapQ
	// DropSecondaryOrSupplementary means the secondary/supplementary flag
	// was set.
	DropSecondaryOrSupplementary
	// DropMissingCallTag means the record had no methylation-call aux tag.
	DropMissingCallTag
	// DropTooFewCpGs means the decoded read had fewer than the minimum
	// number of usable CpG observations for the metric in question.
	DropTooFewCpGs
)

func (r DecodeDropReason) String() string {
	switch r {
	case DropUnmapped:
		return "unmapped"
	case DropLowMapQ:
		return "low_mapq"
	case DropSecondaryOrSupplementary:
		return "secondary_or_supplementary"
	case DropMissingCallTag:
		return "missing_call_tag"
	case DropTooFewCpGs:
		return "too_few_cpgs"
	default:
		return "unknown"
	}
}

// IOError is a fatal Writer failure.
type IOError struct {
	Err error
}

func (e *IOError) Error() string { return "io: " + e.Err.Error() }
func (e *IOError) Unwrap() error { return e.Err }

// NewIOError wraps a writer-side error with context.
func NewIOError(context string, err error) error {
	return &IOError{Err: errors.E(err, context)}
}
