package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// GlobalVM is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when the named VM does not exist.
const GlobalVM = "__global__"

// ActorInfo is a snapshot of one battle participant passed to Lua.
type ActorInfo struct {
	UID      string
	Name     string
	Faction  string
	HP       int
	MaxHP    int
	Mana     int
	MaxMana  int
	Rank     int
	Dead     bool
	Statuses []string
}

// View is the battle state visible to a hook while it runs.
type View interface {
	Actor(uid string) (ActorInfo, bool)
	Allies(uid string) []ActorInfo
	Enemies(uid string) []ActorInfo
}

// vm is one sandboxed LState. An LState is single-threaded, so every call holds mu.
type vm struct {
	mu    sync.Mutex
	L     *lua.LState
	limit int
	// view is the View of the call in progress; only read while mu is held.
	view View
}

// Manager owns named sandboxed VMs and exposes hook dispatch.
//
// Manager is safe for concurrent use. Calls into the same VM are serialized;
// different VMs run concurrently.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	roller *dice.Roller
	logger *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no VMs.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	if roller == nil {
		panic("scripting.NewManager: roller must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		vms:    make(map[string]*vm),
		roller: roller,
		logger: logger,
	}
}

// Load creates a sandboxed VM named key, registers the battle module, then
// executes every *.lua file in scriptDir in lexicographic order. A VM already
// registered under key is replaced and closed.
//
// Precondition: key must be non-empty; scriptDir must be a readable directory.
// Postcondition: The VM is registered; returns error on Lua load failure.
func (m *Manager) Load(key, scriptDir string, instLimit int) error {
	if key == "" {
		return fmt.Errorf("scripting: VM key must not be empty")
	}
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	v := &vm{L: NewSandboxedState(), limit: instLimit}
	m.registerModules(v)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		v.L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		release := limitInstructions(v.L, instLimit)
		err := v.L.DoFile(path)
		release()
		if err != nil {
			v.L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	m.mu.Lock()
	old := m.vms[key]
	m.vms[key] = v
	m.mu.Unlock()
	if old != nil {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
	m.logger.Info("scripts loaded", zap.String("vm", key), zap.Int("files", len(luaFiles)))
	return nil
}

// LoadGlobal loads the shared VM used when a named VM is missing.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.Load(GlobalVM, scriptDir, instLimit)
}

// Has reports whether a VM named key is loaded.
func (m *Manager) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.vms[key]
	return ok
}

// CallHook calls the named Lua global function in key's VM with view exposed
// through the battle module. If key has no VM, the global VM is tried.
// Returns (LNil, nil) if the hook is not defined or no VM exists. Lua runtime
// errors, including exhausting the instruction limit, are logged at Warn
// level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(key, hook string, view View, args ...lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	v, ok := m.vms[key]
	if !ok {
		v = m.vms[GlobalVM]
	}
	m.mu.RUnlock()

	if v == nil {
		m.logger.Info("scripting: no VM",
			zap.String("vm", key),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	fn := v.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	v.view = view
	release := limitInstructions(v.L, v.limit)
	err := v.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...)
	release()
	v.view = nil
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("vm", key),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// Close closes every VM. The Manager must not be used afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, v := range m.vms {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
		delete(m.vms, key)
	}
}
