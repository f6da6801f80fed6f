package dirmon

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/bobmcallan/jobforge/internal/models"
)

// ArchiveFile moves pathname into entry's archive directory, naming the
// target "{jobID}_{basename}", and returns the target path. The move is
// cross-partition safe: a direct rename is attempted first, falling back
// to copy+unlink when the archive directory lives on a different device.
func ArchiveFile(entry *models.DirmonEntry, jobID, pathname string) (string, error) {
	target := archiveTargetPath(entry.ArchiveDirectory, pathname, jobID)

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNoSuchPath, filepath.Dir(target), err)
	}

	if err := moveFile(pathname, target); err != nil {
		return "", fmt.Errorf("failed to archive file %s: %w", pathname, err)
	}

	return target, nil
}

// archiveTargetPath resolves entry.ArchiveDirectory against pathname's
// parent when relative, or uses it as-is when absolute.
func archiveTargetPath(archiveDirectory, pathname, jobID string) string {
	dir := archiveDirectory
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(filepath.Dir(pathname), dir)
	}
	return filepath.Join(dir, jobID+"_"+filepath.Base(pathname))
}

// moveFile renames src to dst, falling back to a copy-then-remove when
// the rename fails because src and dst live on different devices.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
