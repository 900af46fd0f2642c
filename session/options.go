// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import "time"

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

const (
	// DefaultCapacity is the number of attempts a MemoryStore keeps.
	DefaultCapacity = 10_000

	// DefaultKeyPrefix is prepended to the attempt id of every redis key.
	DefaultKeyPrefix = "oauth2_basic:attempt:"

	// DefaultSessionName is the name of the cookie used by a CookieStore.
	DefaultSessionName = "oauth2_basic"
)

type storeOptions struct {
	withTTL         time.Duration
	withCapacity    int
	withKeyPrefix   string
	withSessionName string
	withNowFunc     func() time.Time
}

func storeDefaults() storeOptions {
	return storeOptions{
		withTTL:         DefaultTTL,
		withCapacity:    DefaultCapacity,
		withKeyPrefix:   DefaultKeyPrefix,
		withSessionName: DefaultSessionName,
		withNowFunc:     time.Now,
	}
}

func getStoreOpts(opt ...Option) storeOptions {
	opts := storeDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithTTL provides an optional lifetime for an attempt's values.
func WithTTL(ttl time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*storeOptions); ok {
			o.withTTL = ttl
		}
	}
}

// WithCapacity provides an optional maximum number of attempts kept by a
// MemoryStore. The least recently used attempt is evicted first.
func WithCapacity(n int) Option {
	return func(o interface{}) {
		if o, ok := o.(*storeOptions); ok {
			o.withCapacity = n
		}
	}
}

// WithKeyPrefix provides an optional prefix for the keys of a RedisStore.
func WithKeyPrefix(prefix string) Option {
	return func(o interface{}) {
		if o, ok := o.(*storeOptions); ok {
			o.withKeyPrefix = prefix
		}
	}
}

// WithSessionName provides an optional cookie name for a CookieStore.
func WithSessionName(name string) Option {
	return func(o interface{}) {
		if o, ok := o.(*storeOptions); ok {
			o.withSessionName = name
		}
	}
}

// WithNow provides an optional function for the current time, used by the
// CookieStore to expire attempts.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if o, ok := o.(*storeOptions); ok && now != nil {
			o.withNowFunc = now
		}
	}
}
