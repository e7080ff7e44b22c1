package python

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Bits64 is the only interpreter word size zedsetup supports, in the form
// reported by platform.architecture().
const Bits64 = "64bit"

// ErrNot64Bit is returned for interpreters that are not 64-bit.
var ErrNot64Bit = errors.New("Python 64bit must be used")

// probeScript prints word size, version, and machine, one per line.
const probeScript = `import platform
print(platform.architecture()[0])
print(platform.python_version())
print(platform.machine())`

// Interpreter describes the probed Python interpreter.
type Interpreter struct {
	Bits    string // "64bit", "32bit"
	Version string // full version, e.g. "3.12.1"
	Major   string
	Minor   string
	Machine string // platform.machine(), e.g. "x86_64", "AMD64"
}

// Probe asks the interpreter for its word size, version, and machine.
func Probe(ctx context.Context, runner Runner) (*Interpreter, error) {
	out, err := runner.Output(ctx, Command{Args: []string{"-c", probeScript}})
	if err != nil {
		return nil, fmt.Errorf("probe interpreter: %w", err)
	}
	return parseProbe(string(out))
}

// parseProbe parses the output of probeScript.
func parseProbe(out string) (*Interpreter, error) {
	lines := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
	if len(lines) < 3 {
		return nil, fmt.Errorf("unexpected probe output: %q", out)
	}

	interp := &Interpreter{
		Bits:    strings.TrimSpace(lines[0]),
		Version: strings.TrimSpace(lines[1]),
		Machine: strings.TrimSpace(lines[2]),
	}

	parts := strings.Split(interp.Version, ".")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("unexpected python version: %q", interp.Version)
	}
	for _, p := range parts[:2] {
		if _, err := strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("unexpected python version: %q", interp.Version)
		}
	}
	interp.Major, interp.Minor = parts[0], parts[1]

	return interp, nil
}

// CheckArchitecture rejects any word size other than the literal "64bit".
func CheckArchitecture(bits string) error {
	if bits != Bits64 {
		return fmt.Errorf("%w, found %s", ErrNot64Bit, bits)
	}
	return nil
}

// ShortVersion returns "<major>.<minor>".
func (i *Interpreter) ShortVersion() string {
	return i.Major + "." + i.Minor
}

// Number returns major and minor concatenated as an integer, e.g. 312 for
// Python 3.12 and 39 for Python 3.9.
func (i *Interpreter) Number() int {
	n, _ := strconv.Atoi(i.Major + i.Minor)
	return n
}

// MinorNumber returns the minor version as an integer.
func (i *Interpreter) MinorNumber() int {
	n, _ := strconv.Atoi(i.Minor)
	return n
}
