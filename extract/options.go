// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package extract

import "github.com/hashicorp/go-hclog"

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

// parseOptions is the set of available options for ParseInfoPaths
type parseOptions struct {
	withStrict bool
	withLogger hclog.Logger
}

func parseDefaults() parseOptions {
	return parseOptions{
		withLogger: hclog.NewNullLogger(),
	}
}

func getParseOpts(opt ...Option) parseOptions {
	opts := parseDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithStrict makes ParseInfoPaths return an error for malformed entries
// instead of skipping them.
func WithStrict() Option {
	return func(o interface{}) {
		if o, ok := o.(*parseOptions); ok {
			o.withStrict = true
		}
	}
}

// WithLogger provides an optional logger. ParseInfoPaths logs the entries it
// skips.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*parseOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}
