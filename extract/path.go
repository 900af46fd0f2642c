// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package extract

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

const (
	segmentSeparator = "."
	entrySeparator   = "|"
	keySeparator     = ":"
)

// Path is an ordered list of segments describing how to descend into a
// response to reach a single value.
type Path []string

// ParsePath splits a dotted path ("user.profile.id") into its segments.
// Trailing empty segments are dropped, so "user.id." is "user.id". Empty
// segments elsewhere are kept. A string with no segments returns a nil Path.
func ParsePath(s string) Path {
	segments := split(s, segmentSeparator)
	if len(segments) == 0 {
		return nil
	}
	return Path(segments)
}

// split is strings.Split without the trailing empty fields.
func split(s, sep string) []string {
	fields := strings.Split(s, sep)
	for len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}

// String returns the dotted form of the path.
func (p Path) String() string {
	return strings.Join(p, segmentSeparator)
}

// InfoPath is a single "key:path" entry of an info path configuration.
type InfoPath struct {
	// Key is the name the resolved value is stored under.
	Key string

	// Path is where the value is found in the response.
	Path Path
}

// InfoPaths is an ordered list of InfoPath entries.
type InfoPaths []InfoPath

// String returns the "key:path|key:path" form of the info paths.
func (ip InfoPaths) String() string {
	entries := make([]string, 0, len(ip))
	for _, e := range ip {
		entries = append(entries, e.Key+keySeparator+e.Path.String())
	}
	return strings.Join(entries, entrySeparator)
}

// ParseInfoPaths parses a "|" delimited list of "key:dotted.path" entries.
// An empty string returns nil InfoPaths and no error.
//
// Entries that don't split into exactly a key and a path on ":" are skipped
// (and logged when WithLogger is used). Trailing empty fields are ignored when
// splitting, so "key:path:" is "key:path" and "key:" has no path. Surrounding
// whitespace is trimmed from each key and path; an entry with an empty key or
// a path with no segments is malformed as well.
//
// Supported options:
//
//	WithStrict: return an error wrapping ErrMalformedInfoEntry for every
//	malformed entry instead of skipping them.
//	WithLogger
func ParseInfoPaths(s string, opt ...Option) (InfoPaths, error) {
	const op = "extract.ParseInfoPaths"
	if s == "" {
		return nil, nil
	}
	opts := getParseOpts(opt...)

	var result *multierror.Error
	paths := InfoPaths{}
	for i, entry := range strings.Split(s, entrySeparator) {
		parts := split(entry, keySeparator)
		if len(parts) == 2 {
			key, path := strings.TrimSpace(parts[0]), ParsePath(strings.TrimSpace(parts[1]))
			if key != "" && len(path) > 0 {
				paths = append(paths, InfoPath{Key: key, Path: path})
				continue
			}
		}
		if opts.withStrict {
			result = multierror.Append(result, fmt.Errorf("%s: entry %d %q: %w", op, i, entry, ErrMalformedInfoEntry))
			continue
		}
		opts.withLogger.Debug("skipping malformed info path entry", "op", op, "index", i, "entry", entry)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return paths, nil
}
