// Package sandbox provides WASM-based isolation for Quill plugins.
package sandbox

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/quillworks/quill/internal/domain/plugin"
)

// Export and import names forming the host/plugin ABI.
const (
	// hostModuleName is the module plugins import host functions from.
	hostModuleName = "host"

	// hostLogName is the single host function linked into every
	// instance: log(ptr, len) reads bytes out of the plugin's own
	// memory and appends them to the instance's log buffer.
	hostLogName = "log"

	// memoryExportName is the mandatory exported linear memory.
	memoryExportName = "memory"

	// dispatchExportName is the mandatory command entry point,
	// taking a command ordinal (i32) and returning a status (i32).
	dispatchExportName = "dispatch"

	// initExportName is the optional zero-argument initialization
	// export, called once right after instantiation.
	initExportName = "init"
)

// Engine turns validated, capability-approved packages into live
// isolated instances. It owns the reusable runtime configuration and a
// shared compilation cache; each instance still gets its own wazero
// runtime so no two instances share memory, host state, or name space.
type Engine struct {
	cache wazero.CompilationCache
	cfg   wazero.RuntimeConfig
}

// NewEngine creates an engine with the shared compilation cache.
func NewEngine() *Engine {
	cache := wazero.NewCompilationCache()
	cfg := wazero.NewRuntimeConfig().
		WithCloseOnContextDone(true).
		WithCompilationCache(cache)
	return &Engine{cache: cache, cfg: cfg}
}

// Close releases the shared compilation cache. Instances created by
// the engine are closed independently.
func (e *Engine) Close(ctx context.Context) error {
	return e.cache.Close(ctx)
}

// Instantiate creates one isolated instance for the package: it
// compiles the module, links the host function table, instantiates the
// module against it, verifies the exported surface, and runs the
// optional init export.
func (e *Engine) Instantiate(ctx context.Context, pkg *plugin.Package) (inst *Instance, err error) {
	id := pkg.Manifest().ID

	moduleBytes, err := os.ReadFile(pkg.ModulePath())
	if err != nil {
		return nil, &ModuleLoadError{Plugin: id, Err: err}
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, e.cfg)
	defer func() {
		if err != nil {
			_ = runtime.Close(ctx)
		}
	}()

	inst = &Instance{
		id:         id,
		instanceID: uuid.New(),
		manifest:   pkg.Manifest(),
		runtime:    runtime,
	}

	// Exactly one host capability is linked today: logging. Any future
	// capability needs its own narrowly-scoped import gated by its
	// matching Capability.
	_, err = runtime.NewHostModuleBuilder(hostModuleName).
		NewFunctionBuilder().
		WithFunc(inst.hostLog).
		Export(hostLogName).
		Instantiate(ctx)
	if err != nil {
		return nil, &HostLinkError{Err: err}
	}

	compiled, err := runtime.CompileModule(ctx, moduleBytes)
	if err != nil {
		return nil, &ModuleLoadError{Plugin: id, Err: err}
	}

	// Start functions are disabled: nothing runs until the host says so.
	modConfig := wazero.NewModuleConfig().
		WithName(id).
		WithStartFunctions()

	module, err := runtime.InstantiateModule(ctx, compiled, modConfig)
	if err != nil {
		return nil, &InstantiationError{Plugin: id, Err: err}
	}
	inst.module = module

	// The logging bridge depends on the exported memory; its absence
	// is fatal for this plugin.
	if module.ExportedMemory(memoryExportName) == nil {
		return nil, &MissingExportError{Plugin: id, Export: memoryExportName}
	}

	if initFn := module.ExportedFunction(initExportName); initFn != nil {
		if reason, ok := checkSignature(initFn, nil, nil); !ok {
			return nil, &InvalidExportSignatureError{Plugin: id, Export: initExportName, Reason: reason}
		}
		if _, err := initFn.Call(ctx); err != nil {
			return nil, &CommandRejectedError{Plugin: id, Command: "<init>", Err: err}
		}
	}

	dispatch := module.ExportedFunction(dispatchExportName)
	if dispatch == nil {
		return nil, &MissingExportError{Plugin: id, Export: dispatchExportName}
	}
	wantParams := []api.ValueType{api.ValueTypeI32}
	wantResults := []api.ValueType{api.ValueTypeI32}
	if reason, ok := checkSignature(dispatch, wantParams, wantResults); !ok {
		return nil, &InvalidExportSignatureError{Plugin: id, Export: dispatchExportName, Reason: reason}
	}
	inst.dispatch = dispatch

	return inst, nil
}

// checkSignature verifies an exported function's arity and value types
// against the expected shape.
func checkSignature(fn api.Function, params, results []api.ValueType) (string, bool) {
	def := fn.Definition()
	if !typesEqual(def.ParamTypes(), params) {
		return describeMismatch("parameters", def.ParamTypes(), params), false
	}
	if !typesEqual(def.ResultTypes(), results) {
		return describeMismatch("results", def.ResultTypes(), results), false
	}
	return "", true
}

func typesEqual(got, want []api.ValueType) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func describeMismatch(kind string, got, want []api.ValueType) string {
	return "want " + signatureString(want) + " " + kind + ", got " + signatureString(got)
}

func signatureString(types []api.ValueType) string {
	if len(types) == 0 {
		return "()"
	}
	s := "("
	for i, t := range types {
		if i > 0 {
			s += ", "
		}
		s += api.ValueTypeName(t)
	}
	return s + ")"
}
