package config

import (
	lua "github.com/yuin/gopher-lua"
)

// blockedGlobals are removed from every configuration VM. Without them a
// configuration file cannot run commands, touch the filesystem, or load
// other code; string, table, and math stay available.
var blockedGlobals = []string{
	"os",
	"io",
	"require",
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"debug",
}

// newSandboxedVM creates a Lua VM with blockedGlobals removed.
func newSandboxedVM() *lua.LState {
	L := lua.NewState()
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}
