// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
callback is a package that provides http.HandlerFunc(s) for both phases of an
OAuth2 authorization code flow with PKCE: Login, which starts an
authentication attempt and redirects the user to the provider, and AuthCode,
which handles the provider's response, exchanges the authorization code and
resolves the user's identity.
*/
package callback
