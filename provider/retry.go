// Copyright 2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package provider

import (
	"context"
	"errors"
	"time"
)

// ErrPermanent wraps errors that must not be retried.
var ErrPermanent = errors.New("permanent upstream failure")

// RetryPolicy retries an operation with exponential backoff. The policy is
// a plain value so the backoff schedule can be tested independent of any
// network code.
type RetryPolicy struct {
	MaxAttempts int
	MinWait     time.Duration
	MaxWait     time.Duration
}

// DefaultRetryPolicy matches the upstream guidance for transient failures:
// three attempts, waits growing from 15s and capped at 60s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		MinWait:     15 * time.Second,
		MaxWait:     60 * time.Second,
	}
}

// Backoff returns the wait before retry number attempt (1-based). The wait
// doubles each attempt starting at MinWait and never exceeds MaxWait.
func (policy RetryPolicy) Backoff(attempt int) time.Duration {
	wait := policy.MinWait
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= policy.MaxWait {
			return policy.MaxWait
		}
	}

	if wait > policy.MaxWait {
		return policy.MaxWait
	}

	return wait
}

// Do invokes op up to MaxAttempts times, sleeping the backoff between
// attempts. Errors wrapping ErrPermanent are returned immediately.
func (policy RetryPolicy) Do(ctx context.Context, op func() error) error {
	var err error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}

		if errors.Is(err, ErrPermanent) {
			return err
		}

		if attempt == policy.MaxAttempts {
			break
		}

		timer := time.NewTimer(policy.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return err
}
