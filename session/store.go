// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
	ErrNotFound         = errors.New("not found")
	ErrNoHTTPContext    = errors.New("no http request/response bound to context")
)

// DefaultTTL is how long an attempt's values are kept, unless WithTTL is
// used.
const DefaultTTL = 10 * time.Minute

// Store keeps key/value pairs for the duration of one authentication attempt.
// Implementations must be concurrently safe.
type Store interface {
	// Set stores the value for key within the attempt.
	Set(ctx context.Context, attemptID, key, value string) error

	// Get returns the value for key within the attempt. It returns an error
	// wrapping ErrNotFound when the attempt or key doesn't exist or the
	// attempt has expired.
	Get(ctx context.Context, attemptID, key string) (string, error)

	// Delete removes every value of the attempt. Deleting an attempt that
	// doesn't exist isn't an error.
	Delete(ctx context.Context, attemptID string) error
}
