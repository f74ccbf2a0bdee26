package style

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"
	requirePkg "github.com/dop251/goja_nodejs/require"
	"github.com/spf13/afero"
	"github.com/warpdl/warpstream/pkg/logger"
)

// Runtime is a goja runtime with print wired to a logger and require
// resolving modules from the style's directory.
type Runtime struct {
	*requirePkg.RequireModule
	*goja.Runtime
	l logger.Logger
	// imported lists every module name passed to require.
	imported []string
}

// NewRuntime returns a runtime whose require loads modules from dir on fs.
// A nil fs disables require.
func NewRuntime(fs afero.Fs, dir string, l logger.Logger) (*Runtime, error) {
	registry := requirePkg.NewRegistry(requirePkg.WithLoader(loader(fs, dir)))
	runtime := goja.New()
	reqM := registry.Enable(runtime)
	rt := &Runtime{Runtime: runtime, RequireModule: reqM, l: logger.OrNop(l)}
	if err := runtime.Set("print", rt.print); err != nil {
		return nil, err
	}
	if err := runtime.Set("require", rt.require); err != nil {
		return nil, err
	}
	if _, err := runtime.RunString(prelude); err != nil {
		return nil, fmt.Errorf("style: prelude: %w", err)
	}
	return rt, nil
}

// loader serves module paths, which are rooted at "/", from dir.
func loader(fs afero.Fs, dir string) requirePkg.SourceLoader {
	return func(name string) ([]byte, error) {
		if fs == nil {
			return nil, requirePkg.ModuleFileDoesNotExistError
		}
		rel := strings.TrimPrefix(path.Clean("/"+name), "/")
		data, err := afero.ReadFile(fs, filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, requirePkg.ModuleFileDoesNotExistError
		}
		return data, nil
	}
}

// require resolves every module name against the style directory, so
// "palette.js", "./palette.js" and "/palette.js" are the same module.
func (r *Runtime) require(call goja.FunctionCall) goja.Value {
	modName := call.Argument(0).String()
	v, err := r.RequireModule.Require(path.Clean("/" + modName))
	if err != nil {
		panic(r.NewGoError(fmt.Errorf("require %q: %w", modName, err)))
	}
	r.imported = append(r.imported, modName)
	return v
}

// Imported returns the module names required so far.
func (r *Runtime) Imported() []string {
	return append([]string(nil), r.imported...)
}

func (r *Runtime) print(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, v := range call.Arguments {
		parts[i] = fmt.Sprint(v.Export())
	}
	r.l.Info("style: %s", strings.Join(parts, " "))
	return goja.Undefined()
}

// compileExpression wraps expr in a function of p.
func (r *Runtime) compileExpression(name, expr string) (goja.Callable, error) {
	v, err := r.RunString("(function(p) { return (" + expr + "); })")
	if err != nil {
		return nil, fmt.Errorf("style: %s expression: %w", name, err)
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFunction, name)
	}
	return fn, nil
}

// global returns the function bound to name, or nil when it is undefined.
func (r *Runtime) global(name string) (goja.Callable, error) {
	v := r.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFunction, name)
	}
	return fn, nil
}

// Load compiles a style script. The script defines show(p) and color(p) as
// globals, either of which may be omitted, and may require modules that sit
// next to it.
func Load(fs afero.Fs, name string, l logger.Logger) (*Style, error) {
	src, err := afero.ReadFile(fs, name)
	if err != nil {
		return nil, fmt.Errorf("style: %w", err)
	}
	rt, err := NewRuntime(fs, filepath.Dir(name), l)
	if err != nil {
		return nil, err
	}
	if _, err := rt.RunScript(filepath.Base(name), string(src)); err != nil {
		return nil, fmt.Errorf("style: %s: %w", name, err)
	}
	s := &Style{rt: rt, point: rt.NewObject()}
	if s.show, err = rt.global("show"); err != nil {
		return nil, err
	}
	if s.color, err = rt.global("color"); err != nil {
		return nil, err
	}
	return s, nil
}
