package wheel

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// MinArtifactSize is the size a wheel must exceed, in bytes (150 KB).
const MinArtifactSize = 150_000

// ZipSignature is the local file header magic every wheel starts with.
var ZipSignature = []byte("PK\x03\x04")

// CheckValidFile reports whether path looks like a real wheel: it exists,
// is larger than MinArtifactSize, and starts with ZipSignature.
func CheckValidFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() <= MinArtifactSize {
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	header := make([]byte, len(ZipSignature))
	if _, err := io.ReadFull(f, header); err != nil {
		return false
	}
	return bytes.Equal(header, ZipSignature)
}

// CanWriteToDir reports whether dir is an existing directory a file can be
// written to and removed from. Permission bits are not trusted; a probe
// file is actually created and deleted.
func CanWriteToDir(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}

	probe := filepath.Join(dir, fmt.Sprintf(".zedsetup-probe-%s.tmp", uuid.NewString()))
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return false
	}
	_, writeErr := f.WriteString("test")
	closeErr := f.Close()
	removeErr := os.Remove(probe)

	return writeErr == nil && closeErr == nil && removeErr == nil
}

// ResolveDestination returns preferred, or the working directory when
// preferred is empty, if it is writable; otherwise the home directory.
func ResolveDestination(preferred string) (string, error) {
	dir := preferred
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		dir = wd
	}

	if CanWriteToDir(dir) {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return home, nil
}
