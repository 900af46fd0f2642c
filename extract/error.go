// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package extract

import "errors"

// ErrMalformedInfoEntry is returned by ParseInfoPaths, when WithStrict is
// used, for an entry that isn't of the form key:path.
var ErrMalformedInfoEntry = errors.New("malformed info path entry")
