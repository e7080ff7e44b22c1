package wheel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ZebulonRouseFrantzich/zedsetup/internal/platform"
)

// PackageName is the distribution name of the ZED Python API.
const PackageName = "pyzed"

// Target is the detected configuration a wheel is resolved for.
type Target struct {
	OS          string // platform.OSWindows or platform.OSLinux
	Machine     string // platform.machine() of the interpreter
	SDKMajor    string
	SDKMinor    string
	PythonMajor string
	PythonMinor string
}

// Artifact is a resolved wheel.
type Artifact struct {
	FileName string
	URL      string
	// OSDir is the per-platform URL segment, e.g. "linux_x86_64".
	OSDir string
}

// Locate builds the pyzed wheel name and URL for t under baseURL. baseURL
// must end with a slash.
//
// Pattern: {base}{sdk}/whl/{osdir}/pyzed-{sdk}-cp{py}-cp{py}[m]-{win|linux}_{machine}.whl
func Locate(baseURL string, t Target) (*Artifact, error) {
	machine := strings.ToLower(t.Machine)
	if machine == "" {
		return nil, fmt.Errorf("machine name is required")
	}

	var osDir, platformTag string
	switch t.OS {
	case platform.OSWindows:
		osDir = "win_" + machine
		platformTag = "win"
	case platform.OSLinux:
		if strings.Contains(t.Machine, "aarch64") {
			osDir = "linux_aarch64"
		} else {
			osDir = "linux_x86_64"
		}
		platformTag = "linux"
	default:
		return nil, fmt.Errorf("%w: %s", platform.ErrUnsupportedOS, t.OS)
	}

	pyTag, err := pythonTag(t.PythonMajor, t.PythonMinor)
	if err != nil {
		return nil, err
	}

	sdkVersion := t.SDKMajor + "." + t.SDKMinor
	fileName := fmt.Sprintf("%s-%s%s-%s_%s.whl", PackageName, sdkVersion, pyTag, platformTag, machine)

	return &Artifact{
		FileName: fileName,
		URL:      fmt.Sprintf("%s%s/whl/%s/%s", baseURL, sdkVersion, osDir, fileName),
		OSDir:    osDir,
	}, nil
}

// pythonTag returns "-cp{M}{m}-cp{M}{m}", with the "m" ABI suffix that
// CPython used before 3.8.
func pythonTag(major, minor string) (string, error) {
	minorNum, err := strconv.Atoi(minor)
	if err != nil || major == "" {
		return "", fmt.Errorf("invalid python version %q.%q", major, minor)
	}

	cp := "cp" + major + minor
	tag := "-" + cp + "-" + cp
	if minorNum < 8 {
		tag += "m"
	}
	return tag, nil
}

// Windows OpenGL dependencies needed by the ZED Python samples.
var WindowsDependencies = []string{"PyOpenGL", "PyOpenGL_accelerate"}

// LocateWindowsDependency builds the prebuilt wheel for a Windows
// dependency. pyNumber is major and minor concatenated (39, 310, 312).
func LocateWindowsDependency(baseURL, name string, pyNumber int) *Artifact {
	var version string
	switch {
	case pyNumber < 310:
		version = "3.1.5"
	case pyNumber < 312:
		version = "3.1.6"
	default:
		version = "3.1.9"
	}

	cp := fmt.Sprintf("cp%d", pyNumber)
	fileName := fmt.Sprintf("%s-%s-%s-%s", name, version, cp, cp)
	if pyNumber <= 37 {
		fileName += "m"
	}
	fileName += "-win_amd64.whl"

	return &Artifact{
		FileName: fileName,
		URL:      baseURL + fileName,
		OSDir:    "win_amd64",
	}
}
