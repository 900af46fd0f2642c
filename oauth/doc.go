// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
oauth is a package for writing clients that authenticate users with an OAuth2
provider using the authorization code flow with PKCE (RFC 7636), and that
derive a user's identity from the provider's response using configurable
paths.

Primary types provided by the package:

* Attempt: represents one authentication attempt.  Its ID is used as the
OAuth2 state parameter, and it holds the attempt's PKCE code verifier in a
session.Store between the authorization request and the callback.

* CodeVerifier: a PKCE code verifier and its S256 code challenge.
BeginAuthorization creates one for an Attempt and AttachVerifier replays it
when the authorization code is exchanged.

* Config: provides the configuration for a typical 3-legged OAuth2
authorization code flow (endpoints, client credentials, scopes, and the uid
and info paths used to resolve an Identity).

* Provider: provides integration with an OAuth2 provider.  The provider
creates authorization URLs, exchanges authorization codes for tokens, and
optionally retrieves the user's profile from a userinfo endpoint.

* Token: represents an OAuth2 token response.  Values beyond the standard
fields are available via Tk.Lookup, which is how uid and info paths reach
into arbitrary response shapes.

* Identity: the uid and flat info map resolved from a Token.

* TestProvider: A local OAuth2 provider which supports the authorization
code flow and enforces PKCE.  The TestProvider is used by this package's unit
tests and is exported so it can be used by consumers of the package.

The oauth.callback package provides http.HandlerFuncs for the request and
callback phases of the flow.
*/
package oauth
