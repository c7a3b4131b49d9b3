// Copyright 2025 BLS Query Authors

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bls

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig controls the exponential backoff schedule of the Client.
type RetryConfig struct {
	MaxAttempts    int           // total attempts, including the first
	InitialBackoff time.Duration // delay before the second attempt
	MaxBackoff     time.Duration // backoff cap
	Multiplier     float64       // backoff growth factor
}

// DefaultRetryConfig returns the backoff schedule used when the Client is
// created without an explicit one.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
	}
}

// retrier tracks the backoff state across the attempts of a single request.
type retrier struct {
	config  RetryConfig
	attempt int
	backoff time.Duration
}

func newRetrier(config RetryConfig) *retrier {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	return &retrier{config: config, backoff: config.InitialBackoff}
}

// next records an attempt and reports whether another one is allowed. When it
// is, next sleeps for the current jittered backoff first, honoring context
// cancellation.
func (r *retrier) next(ctx context.Context) bool {
	r.attempt++
	if r.attempt >= r.config.MaxAttempts {
		return false
	}
	if !sleep(ctx, jitter(r.backoff)) {
		return false
	}
	r.backoff = time.Duration(float64(r.backoff) * r.config.Multiplier)
	if r.backoff > r.config.MaxBackoff {
		r.backoff = r.config.MaxBackoff
	}
	return true
}

// jitter randomizes a delay by +/-20% to avoid synchronized retries.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	f := 0.8 + 0.4*rand.Float64()
	return time.Duration(float64(d) * f)
}

// sleep waits for the duration or until the context is canceled, whichever
// comes first. It returns false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
