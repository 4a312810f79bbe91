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

// Package threadpool wraps github.com/grailbio/base/traverse.Each, the
// same fan-out call grailbio/bio/pileup/snp.pileupSNPMain uses to split a
// shard range across jobIdx values, repurposed here as the fixed-size
// worker pool spec §5/§6's --threads and --parallel-threshold options
// configure for FDRP/qFDRP's pair evaluation.
package threadpool

import (
	"runtime"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
)

// Pool is a process-wide parallel executor with a fixed worker count.
type Pool struct {
	workers int
}

// New builds a Pool. workers <= 0 means "all logical cores", matching
// spec §6's `--threads 0` ⇒ auto.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	log.Printf("threadpool: %d workers", workers)
	return &Pool{workers: workers}
}

// Reduce partitions [0, n) into p.workers contiguous shards — the same
// `(jobIdx*nShard)/parallelism` shard-splitting arithmetic
// pileup/snp.pileupSNPMain uses — and runs work(shardStart, shardEnd) on
// each via traverse.Each, returning each shard's two accumulated int
// results indexed by shard order. Summing shard results in shard order
// (not completion order) is what makes the reduction deterministic
// regardless of which goroutine finishes first.
func (p *Pool) Reduce(n int, work func(shardStart, shardEnd int) (int, int)) ([]int, []int) {
	shardCount := p.workers
	if shardCount > n {
		shardCount = n
	}
	if shardCount <= 0 {
		shardCount = 1
	}

	a := make([]int, shardCount)
	b := make([]int, shardCount)
	err := traverse.Each(shardCount, func(jobIdx int) error {
		start := (jobIdx * n) / shardCount
		end := ((jobIdx + 1) * n) / shardCount
		a[jobIdx], b[jobIdx] = work(start, end)
		return nil
	})
	if err != nil {
		// work() above never returns an error; traverse.Each's error path
		// exists for fan-out functions that can fail, which this one can't.
		log.Fatalf("threadpool: unexpected error from traverse.Each: %v", err)
	}
	return a, b
}

// ReduceFloat is Reduce's analogue for a (float64, int) per-shard
// accumulator, used by qFDRP's distance-sum reduction.
func (p *Pool) ReduceFloat(n int, work func(shardStart, shardEnd int) (float64, int)) ([]float64, []int) {
	shardCount := p.workers
	if shardCount > n {
		shardCount = n
	}
	if shardCount <= 0 {
		shardCount = 1
	}

	a := make([]float64, shardCount)
	b := make([]int, shardCount)
	err := traverse.Each(shardCount, func(jobIdx int) error {
		start := (jobIdx * n) / shardCount
		end := ((jobIdx + 1) * n) / shardCount
		a[jobIdx], b[jobIdx] = work(start, end)
		return nil
	})
	if err != nil {
		log.Fatalf("threadpool: unexpected error from traverse.Each: %v", err)
	}
	return a, b
}
