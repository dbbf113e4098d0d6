package sandbox

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/quillworks/quill/internal/domain/plugin"
)

// Outcome is the result of one command invocation: the plugin's status
// code (0 means success by convention; other values are plugin-defined)
// and the log lines captured during that call, in emission order.
type Outcome struct {
	Status int32
	Logs   []string
}

// Instance is one instantiated, isolated plugin module. It owns a
// private wazero runtime (and so a private linear memory) and a log
// buffer that is cleared before every call.
//
// An instance is not safe for concurrent invocation; the host
// serializes calls to a given plugin id.
type Instance struct {
	id         string
	instanceID uuid.UUID
	manifest   *plugin.Manifest
	runtime    wazero.Runtime
	module     api.Module
	dispatch   api.Function
	logs       []string
}

// ID returns the plugin id from the manifest.
func (in *Instance) ID() string {
	return in.id
}

// InstanceID returns the unique id of this instantiation, for
// diagnostics. It changes every time the registry reloads.
func (in *Instance) InstanceID() uuid.UUID {
	return in.instanceID
}

// Manifest returns the plugin's manifest.
func (in *Instance) Manifest() *plugin.Manifest {
	return in.manifest
}

// ExecuteCommand resolves commandID to its ordinal in the manifest's
// command list, clears the log buffer, and invokes the module's
// dispatch export with that ordinal.
//
// A trap during the call returns a *CommandRejectedError and does not
// poison the instance: later calls on the same instance may still be
// attempted.
func (in *Instance) ExecuteCommand(ctx context.Context, commandID string) (Outcome, error) {
	ordinal, ok := in.manifest.CommandOrdinal(commandID)
	if !ok {
		return Outcome{}, &UnknownCommandError{Plugin: in.id, Command: commandID}
	}

	in.logs = in.logs[:0]

	results, err := in.dispatch.Call(ctx, api.EncodeI32(int32(ordinal)))
	if err != nil {
		return Outcome{}, &CommandRejectedError{Plugin: in.id, Command: commandID, Err: err}
	}

	return Outcome{
		Status: api.DecodeI32(results[0]),
		Logs:   append([]string(nil), in.logs...),
	}, nil
}

// Logs returns a snapshot of the current log buffer. Right after
// instantiation this holds whatever the optional init export logged;
// ExecuteCommand clears it before every call.
func (in *Instance) Logs() []string {
	return append([]string(nil), in.logs...)
}

// Close tears down the instance's runtime and everything instantiated
// in it.
func (in *Instance) Close(ctx context.Context) error {
	return in.runtime.Close(ctx)
}

// hostLog is the host.log import: the module passes a pointer and
// length into its own memory; the host reads those bytes back out and
// appends the decoded text to this instance's log buffer. The host
// never writes into plugin memory here.
//
// Panicking propagates to the plugin's Call site as an error, which is
// how an out-of-range pointer or invalid UTF-8 rejects the command.
func (in *Instance) hostLog(_ context.Context, m api.Module, ptr, length uint32) {
	mem := m.Memory()
	if mem == nil {
		panic(fmt.Errorf("host.log: plugin %q has no memory", in.id))
	}
	data, ok := mem.Read(ptr, length)
	if !ok {
		panic(fmt.Errorf("host.log: plugin %q: pointer %d length %d outside plugin memory",
			in.id, ptr, length))
	}
	if !utf8.Valid(data) {
		panic(fmt.Errorf("host.log: plugin %q: message at pointer %d is not valid UTF-8", in.id, ptr))
	}
	in.logs = append(in.logs, string(data))
}
