// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"

	"github.com/caisson-foundation/caisson/lib/partition"
)

// Scope is the execution context of one lifecycle callback: which
// partition the work belongs to and which identity it runs as.
// Downstream collaborators (authorization checks, payload decoding)
// read it from the context instead of reaching for ambient state.
type Scope struct {
	Partition partition.Key
	Identity  string
}

type scopeContextKey struct{}

// WithScope returns a context carrying the scope.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFrom extracts the scope a task placed on the context. False
// means the context did not come from a task callback.
func ScopeFrom(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey{}).(Scope)
	return scope, ok
}
