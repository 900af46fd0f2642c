// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// cap-oauth2 provides a collection of related packages which enable
// authenticating users with any OAuth2 provider using the authorization code
// flow with PKCE, and resolving the user's identity from the provider's token
// response using configurable paths.
//
//	oauth:          config, provider, PKCE and authentication attempts
//	oauth/callback: http handlers for the login and callback endpoints
//	extract:        dotted path resolution of uid and info
//	session:        memory, redis and cookie stores for attempts
package cap
