// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
extract is a package for pulling a user's identity out of an OAuth2 token or
profile response whose shape is only known through configuration.

A Path is an ordered list of segments, usually written as a dotted string
("user.id"). Resolve walks a Path through an arbitrarily nested value, one
segment at a time. At each step the segment is first resolved as a field or
accessor method of the current value (see Getter); if the current value has no
such field, the segment is used as a key (see Lookuper, maps and slices).
Structs, maps and slices may be mixed at any depth.

A value that can't be found is never an error: it resolves to nil and the nil
propagates up.

InfoPaths is the parsed form of a "key:dotted.path|key2:other.path" list and
Info returns a map with one entry per configured key.

	uid, ok := extract.UIDString(resp, "user.id")
	info := extract.InfoString(resp, "mail:user.email|name:user.profile.name")

Callers that resolve the same configuration on every request should parse it
once with ParsePath and ParseInfoPaths and keep the results.
*/
package extract
