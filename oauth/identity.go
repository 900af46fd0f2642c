// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"github.com/hashicorp/cap-oauth2/extract"
)

// Identity is the user identity resolved from a token response.
type Identity struct {
	// UID is the user's unique id.  An empty UID means it could not be
	// resolved.
	UID string `json:"uid"`

	// Info is the user's info, with an entry for every configured info path.
	// Entries that could not be resolved are nil.  Info is nil when no info
	// paths are configured.
	Info map[string]interface{} `json:"info,omitempty"`
}

// HasUID returns true if the uid was resolved.
func (i Identity) HasUID() bool { return i.UID != "" }

// ResolveIdentity resolves an Identity from a response object (typically a
// Token) using the uid path and info paths.
func ResolveIdentity(obj interface{}, uidPath extract.Path, infoPaths extract.InfoPaths) Identity {
	uid, _ := extract.UID(obj, uidPath)
	return Identity{
		UID:  uid,
		Info: extract.Info(obj, infoPaths),
	}
}
