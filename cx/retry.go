// Copyright 2025 The Go DFCX Authors
// SPDX-License-Identifier: Apache-2.0

package cx

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// maxQuotaRetries bounds the exponential backoff on quota errors.
const maxQuotaRetries = 5

// IsAlreadyExists reports whether err is an AlreadyExists API error.
func IsAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

// IsNotFound reports whether err is a NotFound API error.
func IsNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// RetryQuota runs fn, retrying with exponential backoff while it fails with
// ResourceExhausted. Other errors return immediately.
func RetryQuota(ctx context.Context, fn func() error) error {
	delay := time.Second
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if status.Code(err) != codes.ResourceExhausted || attempt >= maxQuotaRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
