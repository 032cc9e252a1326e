// Copyright (c) 2025 ToeiRei
// Fleetpush - SSH fleet file deployment
// This source code is licensed under the MIT license found in the LICENSE file.

package state

import (
	"bytes"
	"testing"
)

func TestPassphraseCacheRoundTrip(t *testing.T) {
	defer PassphraseCache.Clear()

	original := []byte("sekrit")
	PassphraseCache.Set(original)

	// Mutating the caller's slice must not reach the cache.
	original[0] = 'X'

	got := PassphraseCache.Get()
	if !bytes.Equal(got, []byte("sekrit")) {
		t.Errorf("cache returned %q, want %q", got, "sekrit")
	}

	// Mutating the returned copy must not reach the cache either.
	got[0] = 'Y'
	if again := PassphraseCache.Get(); !bytes.Equal(again, []byte("sekrit")) {
		t.Errorf("cache corrupted by returned copy: %q", again)
	}
}

func TestPassphraseCacheClear(t *testing.T) {
	PassphraseCache.Set([]byte("gone"))
	PassphraseCache.Clear()
	if got := PassphraseCache.Get(); got != nil {
		t.Errorf("expected nil after Clear, got %q", got)
	}
}

func TestPassphraseCacheNil(t *testing.T) {
	PassphraseCache.Set(nil)
	if got := PassphraseCache.Get(); got != nil {
		t.Errorf("expected nil for unset cache, got %q", got)
	}
}
