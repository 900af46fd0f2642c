// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
session is a package for keeping the state of a single OAuth2 authentication
attempt between the authorization request and the provider's callback.

Every value is stored under an attempt id, which the host makes unique per
attempt, and a key. Values are only kept for the lifetime of the attempt: when
the attempt's TTL passes, Get returns ErrNotFound.

Implementations of Store:

* MemoryStore: a bounded in-process LRU cache with a TTL. Suitable for a
single instance.

* RedisStore: a redis hash per attempt with an expiration. Suitable when
callbacks may be handled by a different instance than the one that started
the attempt.

* CookieStore: a signed (and optionally encrypted) cookie, via
github.com/gorilla/sessions. The http request and response must be bound to
the context with WithHTTP.
*/
package session
