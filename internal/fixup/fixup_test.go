package fixup

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCopyNativeLibraries(t *testing.T) {
	tests := []struct {
		name      string
		present   []string
		wantErrs  int
		wantLines []string
	}{
		{
			name:      "all present",
			present:   []string{"sl_ai64.dll", "sl_zed64.dll"},
			wantErrs:  0,
			wantLines: []string{"Copied sl_ai64.dll", "Copied sl_zed64.dll"},
		},
		{
			name:      "ai library missing",
			present:   []string{"sl_zed64.dll"},
			wantErrs:  1,
			wantLines: []string{"ERROR: sl_ai64.dll not found", "Copied sl_zed64.dll"},
		},
		{
			name:      "none present",
			present:   nil,
			wantErrs:  2,
			wantLines: []string{"ERROR: sl_ai64.dll not found", "ERROR: sl_zed64.dll not found"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srcDir := t.TempDir()
			destDir := t.TempDir()
			for _, name := range tt.present {
				if err := os.WriteFile(filepath.Join(srcDir, name), []byte("MZ"+name), 0644); err != nil {
					t.Fatal(err)
				}
			}

			var out bytes.Buffer
			errs := CopyNativeLibraries(srcDir, destDir, NativeLibraries, &out)

			if len(errs) != tt.wantErrs {
				t.Fatalf("got %d errors, want %d: %v", len(errs), tt.wantErrs, errs)
			}
			for _, err := range errs {
				if !errors.Is(err, ErrSourceMissing) {
					t.Errorf("error = %v, want ErrSourceMissing", err)
				}
				var copyErr *CopyError
				if !errors.As(err, &copyErr) {
					t.Errorf("error = %T, want *CopyError", err)
				}
			}
			for _, line := range tt.wantLines {
				if !strings.Contains(out.String(), line) {
					t.Errorf("output missing %q:\n%s", line, out.String())
				}
			}

			for _, name := range tt.present {
				data, err := os.ReadFile(filepath.Join(destDir, name))
				if err != nil {
					t.Errorf("%s not copied: %v", name, err)
					continue
				}
				if string(data) != "MZ"+name {
					t.Errorf("%s content = %q", name, data)
				}
			}
		})
	}
}

func TestCopyNativeLibraries_OverwritesExisting(t *testing.T) {
	srcDir := t.TempDir()
	destDir := t.TempDir()
	name := "sl_zed64.dll"

	if err := os.WriteFile(filepath.Join(srcDir, name), []byte("new"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(destDir, name), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	if errs := CopyNativeLibraries(srcDir, destDir, []string{name}, nil); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	data, _ := os.ReadFile(filepath.Join(destDir, name))
	if string(data) != "new" {
		t.Errorf("content = %q, want new", data)
	}
	if _, err := os.Stat(filepath.Join(destDir, name+".tmp")); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestCopyNativeLibraries_MissingDestination(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "sl_ai64.dll"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	errs := CopyNativeLibraries(srcDir, filepath.Join(t.TempDir(), "gone"), []string{"sl_ai64.dll"}, &out)
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	if errors.Is(errs[0], ErrSourceMissing) {
		t.Error("missing destination should not be reported as a missing source")
	}
	if !strings.Contains(out.String(), "failed to copy sl_ai64.dll") {
		t.Errorf("output = %q", out.String())
	}
}
