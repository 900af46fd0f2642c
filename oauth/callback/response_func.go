// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hashicorp/cap-oauth2/oauth"
)

// SuccessResponseFunc is used by AuthCode to create a http response when the
// callback is successful.
//
// The function state parameter will contain the state that was returned as
// part of a successful authentication response. The oauth.Identity is resolved
// from the oauth.Token, which is the result of a successful token exchange
// with the provider.  The function should use the http.ResponseWriter to send
// back whatever content (headers, html, JSON, etc) it wishes to the client
// that originated the flow.
type SuccessResponseFunc func(state string, id oauth.Identity, t oauth.Token, w http.ResponseWriter, req *http.Request)

// ErrorResponseFunc is used by Login and AuthCode to create a http response
// when they fail.
//
// The function receives the state returned as part of the authentication
// response.  It also gets parameters for the provider's authentication error
// response and/or the callback error raised while processing the request.
// Callback errors of a failed token exchange wrap oauth.ErrLoginFailed.
type ErrorResponseFunc func(state string, respErr *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request)

// AuthenErrorResponse represents Oauth2 error responses.  See:
// https://www.rfc-editor.org/rfc/rfc6749#section-4.1.2.1
type AuthenErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
	Uri         string `json:"error_uri,omitempty"`
}

// DefaultErrorResponse is an ErrorResponseFunc which writes the error as a
// JSON AuthenErrorResponse.  Provider error responses and failed logins are
// 401 Unauthorized; any other error is 500 Internal Server Error.
func DefaultErrorResponse(_ string, respErr *AuthenErrorResponse, e error, w http.ResponseWriter, _ *http.Request) {
	status := http.StatusInternalServerError
	body := &AuthenErrorResponse{Error: "server_error"}
	switch {
	case respErr != nil:
		status = http.StatusUnauthorized
		body = respErr
	case errors.Is(e, oauth.ErrLoginFailed), errors.Is(e, oauth.ErrResponseStateInvalid):
		status = http.StatusUnauthorized
		body = &AuthenErrorResponse{Error: "access_denied", Description: e.Error()}
	case e != nil:
		body.Description = e.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
