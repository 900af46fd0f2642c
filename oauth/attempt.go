// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/cap-oauth2/session"
)

// attemptIDPrefix is the prefix of generated attempt IDs.
const attemptIDPrefix = "st"

// Attempt represents one authentication attempt: the authorization request
// and its matching callback.  Its ID is sent to the provider as the OAuth2
// state parameter and returned by the provider in the callback, which is how
// the callback finds the attempt again.
//
// Values stored in an Attempt are kept in a session.Store, keyed by the
// attempt's ID, so values of one attempt are never visible to another.
type Attempt struct {
	id    string
	store session.Store
}

// NewAttemptID generates a new, random attempt ID.
func NewAttemptID() (string, error) {
	const op = "NewAttemptID"
	id, err := NewID(WithPrefix(attemptIDPrefix))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// NewAttempt creates a new Attempt.  Use NewAttemptID for the id of a new
// attempt, and the state parameter of a callback for an existing one.
func NewAttempt(id string, s session.Store) (*Attempt, error) {
	const op = "NewAttempt"
	if id == "" {
		return nil, fmt.Errorf("%s: missing id: %w", op, ErrInvalidParameter)
	}
	if s == nil {
		return nil, fmt.Errorf("%s: session store is nil: %w", op, ErrNilParameter)
	}
	return &Attempt{
		id:    id,
		store: s,
	}, nil
}

// ID is the attempt's unique identifier, which is used as the OAuth2 state
// parameter.
func (a *Attempt) ID() string { return a.id }

// Store a value in the attempt.
func (a *Attempt) Store(ctx context.Context, key, value string) error {
	const op = "Attempt.Store"
	if err := a.store.Set(ctx, a.id, key, value); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Load a value of the attempt.  It returns an error wrapping ErrNotFound when
// the attempt has no value for the key or the attempt has expired.
func (a *Attempt) Load(ctx context.Context, key string) (string, error) {
	const op = "Attempt.Load"
	v, err := a.store.Get(ctx, a.id, key)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return "", fmt.Errorf("%s: %s: %w", op, key, ErrNotFound)
	case err != nil:
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

// Clear every value of the attempt.
func (a *Attempt) Clear(ctx context.Context) error {
	const op = "Attempt.Clear"
	if err := a.store.Delete(ctx, a.id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
