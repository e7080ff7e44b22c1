package config

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/zedsetup/internal/platform"
	lua "github.com/yuin/gopher-lua"
)

// luaTable is the global table a configuration file must define.
const luaTable = "zedsetup"

// stringKeys and boolKeys are the settings a configuration file may set.
var (
	stringKeys = map[string]bool{
		KeyPath:    true,
		KeyPython:  true,
		KeyBaseURL: true,
		KeyDepsURL: true,
		KeySDKRoot: true,
	}
	boolKeys = map[string]bool{
		KeyForce:   true,
		KeyVerbose: true,
	}
)

// Parser evaluates Lua configuration files with the platform table injected.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a parser. A nil detector skips the platform table.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseError represents a configuration error with a friendly message.
type ParseError struct {
	Message string // user-facing message
	Detail  string // raw Lua error or offending key
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// ParseFile reads and evaluates a configuration file.
func (p *Parser) ParseFile(ctx context.Context, path string) (map[string]any, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return p.ParseString(ctx, string(code))
}

// ParseString evaluates Lua code and returns the settings from the global
// zedsetup table. Nil values, as produced by platform.when, are skipped.
func (p *Parser) ParseString(ctx context.Context, code string) (map[string]any, error) {
	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if p.detector != nil {
		info, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, info); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(code); err != nil {
		return nil, &ParseError{Message: "Lua error", Detail: err.Error()}
	}

	return extractSettings(L)
}

// extractSettings converts the zedsetup table into a settings map.
func extractSettings(L *lua.LState) (map[string]any, error) {
	value := L.GetGlobal(luaTable)
	table, ok := value.(*lua.LTable)
	if !ok {
		return nil, &ParseError{
			Message: "missing or invalid 'zedsetup' table",
			Detail:  fmt.Sprintf("expected table, got %s", value.Type()),
		}
	}

	settings := make(map[string]any)
	var problems []string

	table.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			problems = append(problems, fmt.Sprintf("non-string key %s", k.String()))
			return
		}
		name := string(key)
		if v.Type() == lua.LTNil {
			return
		}

		switch {
		case stringKeys[name]:
			s, ok := v.(lua.LString)
			if !ok {
				problems = append(problems, fmt.Sprintf("%s must be a string", name))
				return
			}
			settings[name] = string(s)
		case boolKeys[name]:
			b, ok := v.(lua.LBool)
			if !ok {
				problems = append(problems, fmt.Sprintf("%s must be a boolean", name))
				return
			}
			settings[name] = bool(b)
		case name == KeyTimeout:
			d, err := luaDuration(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", name, err))
				return
			}
			settings[name] = d
		default:
			problems = append(problems, fmt.Sprintf("unknown key %q", name))
		}
	})

	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, &ParseError{
			Message: "invalid configuration",
			Detail:  strings.Join(problems, "; "),
		}
	}

	return settings, nil
}

// luaDuration accepts a number of seconds or a Go duration string.
func luaDuration(v lua.LValue) (time.Duration, error) {
	switch val := v.(type) {
	case lua.LNumber:
		if val <= 0 {
			return 0, fmt.Errorf("must be positive")
		}
		return time.Duration(float64(val) * float64(time.Second)), nil
	case lua.LString:
		d, err := time.ParseDuration(string(val))
		if err != nil {
			return 0, err
		}
		if d <= 0 {
			return 0, fmt.Errorf("must be positive")
		}
		return d, nil
	default:
		return 0, fmt.Errorf("must be seconds or a duration string")
	}
}
