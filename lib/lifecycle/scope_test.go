// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"testing"

	"github.com/caisson-foundation/caisson/lib/partition"
)

func TestScopeRoundTrip(t *testing.T) {
	scope := Scope{Partition: partition.NewKey("orders", 2), Identity: "ingest"}
	ctx := WithScope(context.Background(), scope)

	got, ok := ScopeFrom(ctx)
	if !ok {
		t.Fatal("scope missing from context")
	}
	if got != scope {
		t.Errorf("ScopeFrom = %+v, want %+v", got, scope)
	}
}

func TestScopeAbsent(t *testing.T) {
	if scope, ok := ScopeFrom(context.Background()); ok {
		t.Errorf("bare context yielded scope %+v", scope)
	}
}
