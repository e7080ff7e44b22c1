package wheel

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// writeSized writes a file of size bytes starting with prefix.
func writeSized(t *testing.T, dir, name string, prefix []byte, size int) string {
	t.Helper()
	data := make([]byte, size)
	copy(data, prefix)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestCheckValidFile(t *testing.T) {
	dir := t.TempDir()
	html := []byte("<!DOCTYPE html><html>")

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"nonexistent", filepath.Join(dir, "missing.whl"), false},
		{"directory", dir, false},
		{"small zip", writeSized(t, dir, "small.whl", ZipSignature, 10_000), false},
		{"exactly threshold", writeSized(t, dir, "edge.whl", ZipSignature, MinArtifactSize), false},
		{"large html page", writeSized(t, dir, "page.whl", html, 400_000), false},
		{"large zero bytes", writeSized(t, dir, "zero.whl", nil, 400_000), false},
		{"just over threshold", writeSized(t, dir, "over.whl", ZipSignature, MinArtifactSize+1), true},
		{"large zip", writeSized(t, dir, "pyzed.whl", ZipSignature, 2_000_000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckValidFile(tt.path); got != tt.want {
				t.Errorf("CheckValidFile(%s) = %v, want %v", filepath.Base(tt.path), got, tt.want)
			}
		})
	}
}

func TestCanWriteToDir(t *testing.T) {
	dir := t.TempDir()
	file := writeSized(t, dir, "plain.txt", nil, 1)

	if !CanWriteToDir(dir) {
		t.Error("CanWriteToDir(tempdir) = false, want true")
	}
	if CanWriteToDir(filepath.Join(dir, "missing")) {
		t.Error("CanWriteToDir(missing) = true, want false")
	}
	if CanWriteToDir(file) {
		t.Error("CanWriteToDir(file) = true, want false")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("probe file left behind: %v", entries)
	}
}

func TestCanWriteToDir_ReadOnly(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced the same way on Windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}

	dir := filepath.Join(t.TempDir(), "ro")
	if err := os.Mkdir(dir, 0555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	if CanWriteToDir(dir) {
		t.Error("CanWriteToDir(read-only) = true, want false")
	}
}

func TestResolveDestination(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	writable := t.TempDir()
	got, err := ResolveDestination(writable)
	if err != nil {
		t.Fatalf("ResolveDestination() error = %v", err)
	}
	if got != writable {
		t.Errorf("ResolveDestination(writable) = %s, want %s", got, writable)
	}

	got, err = ResolveDestination(filepath.Join(writable, "does-not-exist"))
	if err != nil {
		t.Fatalf("ResolveDestination() error = %v", err)
	}
	if got != home {
		t.Errorf("ResolveDestination(missing) = %s, want home %s", got, home)
	}

	t.Chdir(writable)
	got, err = ResolveDestination("")
	if err != nil {
		t.Fatalf("ResolveDestination() error = %v", err)
	}
	want, _ := filepath.EvalSymlinks(writable)
	if resolved, _ := filepath.EvalSymlinks(got); resolved != want {
		t.Errorf("ResolveDestination(\"\") = %s, want working dir %s", got, writable)
	}
}
