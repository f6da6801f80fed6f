package dirmon

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bobmcallan/jobforge/internal/common"
	"github.com/bobmcallan/jobforge/internal/models"
)

func writeTestFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestScanner_Each_MatchesCaseInsensitively(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "A.CSV")

	scanner := NewScanner(NewWhitelist(), "", common.NewSilentLogger(), 0)
	entry := &models.DirmonEntry{Name: "csv-import", Pattern: filepath.Join(dir, "*.csv")}

	var found []string
	err := scanner.Each(context.Background(), entry, func(path string) { found = append(found, path) })
	if err != nil {
		t.Fatalf("Each: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("found = %v, want exactly 1 match", found)
	}
}

func TestScanner_Each_SkipsArchiveDirectoryToken(t *testing.T) {
	dir := t.TempDir()
	archiveDir := filepath.Join(dir, "archive")
	os.MkdirAll(archiveDir, 0o755)
	writeTestFile(t, archiveDir, "already-archived.csv")
	writeTestFile(t, dir, "fresh.csv")

	scanner := NewScanner(NewWhitelist(), "archive", common.NewSilentLogger(), 0)
	entry := &models.DirmonEntry{Name: "csv-import", Pattern: filepath.Join(dir, "**", "*.csv")}

	var found []string
	scanner.Each(context.Background(), entry, func(path string) { found = append(found, path) })

	for _, f := range found {
		if filepath.Base(filepath.Dir(f)) == "archive" {
			t.Errorf("archive-directory file %s should have been skipped", f)
		}
	}
}

func TestScanner_Each_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "sub.csv"), 0o755)
	writeTestFile(t, dir, "real.csv")

	scanner := NewScanner(NewWhitelist(), "", common.NewSilentLogger(), 0)
	entry := &models.DirmonEntry{Name: "csv-import", Pattern: filepath.Join(dir, "*.csv")}

	var found []string
	scanner.Each(context.Background(), entry, func(path string) { found = append(found, path) })

	if len(found) != 1 {
		t.Errorf("found = %v, want exactly the one real file", found)
	}
}

func TestScanner_Each_WhitelistRejection(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "x.csv")

	other := t.TempDir()
	wl := NewWhitelist(other)

	scanner := NewScanner(wl, "", common.NewSilentLogger(), 0)
	entry := &models.DirmonEntry{Name: "csv-import", Pattern: filepath.Join(dir, "*.csv")}

	var found []string
	scanner.Each(context.Background(), entry, func(path string) { found = append(found, path) })

	if len(found) != 0 {
		t.Errorf("found = %v, want none (outside whitelist)", found)
	}
}

func TestScanner_Each_WhitelistAllowsMatchingPrefix(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "x.csv")
	wl := NewWhitelist(dir)

	scanner := NewScanner(wl, "", common.NewSilentLogger(), 0)
	entry := &models.DirmonEntry{Name: "csv-import", Pattern: filepath.Join(dir, "*.csv")}

	var found []string
	scanner.Each(context.Background(), entry, func(path string) { found = append(found, path) })

	if len(found) != 1 {
		t.Errorf("found = %v, want exactly 1 match (inside whitelist)", found)
	}
}
