package dirmon

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWhitelist_AddCanonicalizes(t *testing.T) {
	dir := t.TempDir()

	wl := NewWhitelist()
	canon, err := wl.Add(dir)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	resolved, _ := filepath.EvalSymlinks(dir)
	if canon != resolved {
		t.Errorf("Add() = %q, want canonical %q", canon, resolved)
	}
}

func TestWhitelist_AddMissingPathFails(t *testing.T) {
	wl := NewWhitelist()
	_, err := wl.Add(filepath.Join(t.TempDir(), "does-not-exist"))
	if !errors.Is(err, ErrNoSuchPath) {
		t.Errorf("Add() error = %v, want ErrNoSuchPath", err)
	}
}

func TestWhitelist_AddDeduplicates(t *testing.T) {
	dir := t.TempDir()
	wl := NewWhitelist()
	wl.Add(dir)
	wl.Add(dir)
	if got := len(wl.Paths()); got != 1 {
		t.Errorf("Paths() len = %d, want 1", got)
	}
}

func TestWhitelist_AddThenDeleteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	wl := NewWhitelist()

	before := wl.Paths()
	if _, err := wl.Add(dir); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := wl.Delete(dir); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	after := wl.Paths()

	if len(before) != len(after) {
		t.Errorf("whitelist changed after add+delete: before=%v after=%v", before, after)
	}
}

func TestWhitelist_AllowsEmptyWhitelistAllowsEverything(t *testing.T) {
	wl := NewWhitelist()
	if !wl.Allows("/anything/at/all") {
		t.Error("empty whitelist should allow every path")
	}
}

func TestWhitelist_AllowsPrefixMatch(t *testing.T) {
	dir := t.TempDir()
	wl := NewWhitelist(dir)

	inside := filepath.Join(dir, "a.csv")
	os.WriteFile(inside, []byte("x"), 0o644)
	resolved, _ := filepath.EvalSymlinks(inside)

	if !wl.Allows(resolved) {
		t.Errorf("Allows(%q) = false, want true (inside whitelisted dir)", resolved)
	}
	if wl.Allows("/other/x") {
		t.Error("Allows(/other/x) = true, want false (outside whitelist)")
	}
}
