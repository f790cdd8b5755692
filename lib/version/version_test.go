// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfoMarksDirtyBuilds(t *testing.T) {
	origDirty := GitDirty
	defer func() { GitDirty = origDirty }()

	GitDirty = "false"
	if strings.Contains(Info(), "-dirty") {
		t.Errorf("clean build marked dirty: %s", Info())
	}

	GitDirty = "true"
	if !strings.Contains(Info(), "-dirty") {
		t.Errorf("dirty build not marked: %s", Info())
	}
}

func TestFullIncludesPlatform(t *testing.T) {
	full := Full()
	for _, want := range []string{Version, "Go:", "Platform:"} {
		if !strings.Contains(full, want) {
			t.Errorf("Full() missing %q: %s", want, full)
		}
	}
}
