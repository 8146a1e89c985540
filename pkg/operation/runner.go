// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package operation

import (
	"context"
	"sync/atomic"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// 🏃 OperationRunner executes a unit of work once per index, either in order
// or on a bounded pool. Cancellation is honored between units only.
type OperationRunner struct {
	async       bool
	concurrency int
}

// 🏗️ NewRunner creates a new runner
func NewRunner(async bool, concurrency int) *OperationRunner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &OperationRunner{
		async:       async,
		concurrency: concurrency,
	}
}

// 🏃 Run calls fn for 0..n-1. It returns an error only if ctx was cancelled
// before every index was started.
func (r *OperationRunner) Run(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	if r.async && r.concurrency > 1 {
		return r.runAsync(ctx, n, fn)
	}
	return r.runSync(ctx, n, fn)
}

// 🔄 runSync runs each unit in order
func (r *OperationRunner) runSync(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("operation cancelled after %d of %d: %w", i, n, err)
		}
		fn(ctx, i)
	}
	return nil
}

// ⚡ runAsync runs units on at most r.concurrency goroutines
func (r *OperationRunner) runAsync(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	var g errgroup.Group
	g.SetLimit(r.concurrency)

	var started atomic.Int64
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			started.Add(1)
			fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()

	if s := started.Load(); s < int64(n) {
		return errors.Errorf("operation cancelled after %d of %d: %w", s, n, ctx.Err())
	}
	return nil
}
