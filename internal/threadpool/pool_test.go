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

package threadpool

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReduceCoversEveryIndexExactlyOnceInShardOrder(t *testing.T) {
	p := New(4)
	n := 10

	var mu sync.Mutex
	var seen []int
	a, b := p.Reduce(n, func(start, end int) (int, int) {
		mu.Lock()
		defer mu.Unlock()
		sum := 0
		for i := start; i < end; i++ {
			sum += i
			seen = append(seen, i)
		}
		return sum, end - start
	})

	total := 0
	for _, v := range a {
		total += v
	}
	assert.Equal(t, (n*(n-1))/2, total)

	count := 0
	for _, v := range b {
		count += v
	}
	assert.Equal(t, n, count)

	// Shards are [0,2), [2,5), [5,7), [7,10); results come back indexed by
	// shard regardless of goroutine completion order.
	assert.Equal(t, []int{1, 9, 11, 24}, a)
	assert.Equal(t, []int{2, 3, 2, 3}, b)

	sort.Ints(seen)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, seen, "every index must be visited exactly once")
}

func TestReduceShardCountNeverExceedsN(t *testing.T) {
	p := New(16)
	a, _ := p.Reduce(3, func(start, end int) (int, int) { return end - start, 0 })
	assert.LessOrEqual(t, len(a), 3)
}

func TestNewWithNonPositiveWorkersDefaultsToNumCPU(t *testing.T) {
	p := New(0)
	assert.Greater(t, p.workers, 0)
}

func TestReduceFloatAccumulates(t *testing.T) {
	p := New(2)
	n := 4
	a, b := p.ReduceFloat(n, func(start, end int) (float64, int) {
		sum := 0.0
		for i := start; i < end; i++ {
			sum += float64(i) * 0.5
		}
		return sum, end - start
	})

	totalSum := 0.0
	for _, v := range a {
		totalSum += v
	}
	assert.InDelta(t, 3.0, totalSum, 1e-9) // (0+1+2+3)*0.5 = 3.0

	totalCount := 0
	for _, v := range b {
		totalCount += v
	}
	assert.Equal(t, n, totalCount)
}
