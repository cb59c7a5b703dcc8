package adapter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/micro-manager/micro-manager-sub007/internal/dynlib"
	"github.com/micro-manager/micro-manager-sub007/internal/errorcodes"
	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
	"github.com/rs/zerolog/log"
)

// FilePrefix starts the file name of every adapter module.
const FilePrefix = "mmgr_dal_"

// Loader owns the modules of one process, at most one per name.
type Loader struct {
	//nolint:containedctx // Context is stored in the struct intentionally to outlive single load calls.
	ctx     context.Context
	paths   []string
	mu      sync.Mutex
	modules map[string]*Module
}

// NewLoader returns a Loader searching the given directories in order.
// ctx bounds the lifetime of runtime state such as wasm engines.
func NewLoader(ctx context.Context, paths []string) *Loader {
	return &Loader{
		ctx:     ctx,
		paths:   paths,
		modules: make(map[string]*Module),
	}
}

// SearchPaths builds the module search list: the directory of the running
// executable, then configured, then legacy. Duplicates are dropped.
func SearchPaths(configured, legacy []string) []string {
	var paths []string
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Dir(exe))
	}
	paths = append(paths, configured...)
	paths = append(paths, legacy...)

	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}

	return out
}

// Paths returns the search list.
func (l *Loader) Paths() []string {
	return append([]string(nil), l.paths...)
}

// LoadModule returns the module with the given name, loading it on first
// use. A module failing ABI negotiation is unloaded and not cached, so a
// later call tries again.
func (l *Loader) LoadModule(name string) (*Module, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if m, ok := l.modules[name]; ok {
		return m, nil
	}

	path, err := l.locate(name)
	if err != nil {
		return nil, err
	}

	handle, err := dynlib.Open(l.ctx, path)
	if err != nil {
		return nil, err
	}

	m := newModule(name, handle)
	if err := m.negotiate(); err != nil {
		l.reject(m, err)
		return nil, err
	}
	if err := m.initializeData(); err != nil {
		l.reject(m, err)
		return nil, err
	}

	l.modules[name] = m
	log.Info().
		Str("event", "module_loaded").
		Str("module", name).
		Str("path", path).
		Msg("adapter module loaded")

	return m, nil
}

func (l *Loader) reject(m *Module, cause error) {
	log.Warn().
		Err(cause).
		Str("event", "module_rejected").
		Str("module", m.name).
		Str("path", m.Path()).
		Msg("adapter module rejected")

	if err := m.unload(l.ctx); err != nil {
		log.Error().Err(err).Str("module", m.name).Msg("failed to unload rejected module")
	}
}

// locate maps a module name to a path: builtin modules first, then the
// search list with every supported suffix.
func (l *Loader) locate(name string) (string, error) {
	if _, ok := mmdevice.LookupModule(name); ok {
		return dynlib.BuiltinScheme + name, nil
	}

	for _, dir := range l.paths {
		for _, suffix := range fileSuffixes() {
			candidate := filepath.Join(dir, FilePrefix+name+suffix)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}

	return "", errorcodes.Wrap(errorcodes.ErrLoad, os.ErrNotExist,
		"module %s not found in %s", name, strings.Join(l.paths, string(filepath.ListSeparator)))
}

func fileSuffixes() []string {
	if dynlib.PluginsSupported {
		return []string{".wasm", ".so"}
	}

	return []string{".wasm"}
}

// Unload drops a module and releases its image. Devices created from it
// must already be deleted. Reloading afterwards may not start from a clean
// state.
func (l *Loader) Unload(ctx context.Context, name string) error {
	l.mu.Lock()
	m, ok := l.modules[name]
	delete(l.modules, name)
	l.mu.Unlock()

	if !ok {
		return errorcodes.New(errorcodes.ErrLoad, "module %s is not loaded", name)
	}

	log.Debug().Str("event", "module_unloaded").Str("module", name).Msg("adapter module unloaded")

	return m.unload(ctx)
}

// Modules lists the names of loaded modules, sorted.
func (l *Loader) Modules() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.modules))
	for name := range l.modules {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// ListAvailableModules lists every module name that LoadModule could find:
// builtins and module files on the search list. Nothing is loaded.
func (l *Loader) ListAvailableModules() ([]string, error) {
	seen := make(map[string]bool)
	for _, name := range mmdevice.BuiltinModules() {
		seen[name] = true
	}

	suffixes := fileSuffixes()
	for _, dir := range l.paths {
		entries, err := os.ReadDir(dir)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, errorcodes.Wrap(errorcodes.ErrLoad, err, "scan %s", dir)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasPrefix(e.Name(), FilePrefix) {
				continue
			}
			for _, suffix := range suffixes {
				if name, ok := strings.CutSuffix(e.Name(), suffix); ok {
					seen[strings.TrimPrefix(name, FilePrefix)] = true
					break
				}
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return names, nil
}

// Close unloads every module.
func (l *Loader) Close(ctx context.Context) error {
	l.mu.Lock()
	modules := l.modules
	l.modules = make(map[string]*Module)
	l.mu.Unlock()

	var errs []error
	for _, m := range modules {
		errs = append(errs, m.unload(ctx))
	}

	return errors.Join(errs...)
}
