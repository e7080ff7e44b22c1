// Package fixup copies the ZED SDK native libraries next to the installed
// pyzed package on Windows, where the extension module cannot find them on
// the DLL search path.
package fixup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// NativeLibraries are the SDK DLLs the pyzed extension links against.
var NativeLibraries = []string{"sl_ai64.dll", "sl_zed64.dll"}

// ErrSourceMissing indicates a library was not found in the SDK bin directory.
var ErrSourceMissing = errors.New("native library not found")

// CopyError reports a library that could not be copied.
type CopyError struct {
	Name string
	Src  string
	Err  error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("copy %s from %s: %v", e.Name, e.Src, e.Err)
}

func (e *CopyError) Unwrap() error {
	return e.Err
}

// CopyNativeLibraries copies each named file from srcDir into destDir.
// A failure for one library is written to out and collected, and the
// remaining libraries are still copied. The returned slice is empty when
// every copy succeeded.
func CopyNativeLibraries(srcDir, destDir string, names []string, out io.Writer) []error {
	if out == nil {
		out = io.Discard
	}

	var errs []error
	for _, name := range names {
		src := filepath.Join(srcDir, name)
		dst := filepath.Join(destDir, name)

		if err := copyFile(src, dst); err != nil {
			if errors.Is(err, ErrSourceMissing) {
				fmt.Fprintf(out, "ERROR: %s not found in %s\n", name, srcDir)
			} else {
				fmt.Fprintf(out, "ERROR: failed to copy %s: %v\n", name, err)
			}
			errs = append(errs, &CopyError{Name: name, Src: src, Err: err})
			continue
		}
		fmt.Fprintf(out, "Copied %s to %s\n", name, destDir)
	}
	return errs
}

// copyFile writes src to dst through a temporary file so a partially
// written DLL never replaces a working one.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrSourceMissing, err)
	}
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", src)
	}

	tmp := dst + ".tmp"
	outFile, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(outFile, in); err != nil {
		outFile.Close()
		os.Remove(tmp)
		return err
	}
	if err := outFile.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
