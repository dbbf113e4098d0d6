package sandbox

import (
	"errors"
	"fmt"
)

// HostLinkError indicates the host function table could not be linked
// into a runtime. This is a host configuration bug, not a plugin fault,
// and blocks loading.
type HostLinkError struct {
	Err error
}

func (e *HostLinkError) Error() string {
	return fmt.Sprintf("linking host functions: %v", e.Err)
}

func (e *HostLinkError) Unwrap() error {
	return e.Err
}

// ModuleLoadError indicates a plugin's module bytes could not be read
// or compiled.
type ModuleLoadError struct {
	Plugin string
	Err    error
}

func (e *ModuleLoadError) Error() string {
	return fmt.Sprintf("plugin %q: loading module: %v", e.Plugin, e.Err)
}

func (e *ModuleLoadError) Unwrap() error {
	return e.Err
}

// InstantiationError indicates a compiled module failed to instantiate
// against the host link table.
type InstantiationError struct {
	Plugin string
	Err    error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("plugin %q: instantiating module: %v", e.Plugin, e.Err)
}

func (e *InstantiationError) Unwrap() error {
	return e.Err
}

// MissingExportError indicates a module does not export something the
// host depends on.
type MissingExportError struct {
	Plugin string
	Export string
}

func (e *MissingExportError) Error() string {
	return fmt.Sprintf("plugin %q: missing export %q", e.Plugin, e.Export)
}

// InvalidExportSignatureError indicates an export exists but has the
// wrong arity or types. Checked once at load time, never trusted at
// call time.
type InvalidExportSignatureError struct {
	Plugin string
	Export string
	Reason string
}

func (e *InvalidExportSignatureError) Error() string {
	return fmt.Sprintf("plugin %q: export %q has invalid signature: %s", e.Plugin, e.Export, e.Reason)
}

// CommandRejectedError indicates a command invocation (or the one-time
// init call, as command "<init>") trapped or failed inside the sandbox.
type CommandRejectedError struct {
	Plugin  string
	Command string
	Err     error
}

func (e *CommandRejectedError) Error() string {
	return fmt.Sprintf("plugin %q: command %q rejected: %v", e.Plugin, e.Command, e.Err)
}

func (e *CommandRejectedError) Unwrap() error {
	return e.Err
}

// UnknownCommandError indicates a command id absent from the plugin's
// manifest.
type UnknownCommandError struct {
	Plugin  string
	Command string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("plugin %q: unknown command %q", e.Plugin, e.Command)
}

// IsMissingExport returns true if the error is a missing export.
func IsMissingExport(err error) bool {
	var missing *MissingExportError
	return errors.As(err, &missing)
}

// IsCommandRejected returns true if the error is a command rejection.
func IsCommandRejected(err error) bool {
	var rejected *CommandRejectedError
	return errors.As(err, &rejected)
}

// IsUnknownCommand returns true if the error names a command absent
// from the manifest.
func IsUnknownCommand(err error) bool {
	var unknown *UnknownCommandError
	return errors.As(err, &unknown)
}
