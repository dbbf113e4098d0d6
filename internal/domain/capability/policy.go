package capability

import (
	"errors"
	"fmt"
	"sort"
)

// Policy is an immutable allow-list of capabilities. It is constructed
// once per host configuration and shared by reference; there is no way
// to mutate it afterward.
type Policy struct {
	allowed map[Capability]struct{}
}

// AllowOnly creates a policy permitting exactly the given capabilities.
func AllowOnly(caps ...Capability) *Policy {
	allowed := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		if c.IsZero() {
			continue
		}
		allowed[c] = struct{}{}
	}
	return &Policy{allowed: allowed}
}

// LockedDown returns the built-in safe default: a plugin may read
// buffers, register commands, show UI panels, and subscribe to events.
// Filesystem and network access are excluded.
func LockedDown() *Policy {
	return AllowOnly(
		CapBuffersRead,
		CapCommandsRegister,
		CapUIPanels,
		CapEventsSubscribe,
	)
}

// Allows returns true if the capability is permitted by this policy.
func (p *Policy) Allows(c Capability) bool {
	_, ok := p.allowed[c]
	return ok
}

// CheckAll verifies the given capabilities against the policy in the
// order given, returning a *DeniedError for the first disallowed one.
// Discovery feeds a manifest's declared capabilities through this in
// declaration order, so a plugin whose static declaration exceeds the
// policy is rejected before any of its code runs.
func (p *Policy) CheckAll(caps ...Capability) error {
	for _, c := range caps {
		if !p.Allows(c) {
			return &DeniedError{Capability: c}
		}
	}
	return nil
}

// List returns the allowed capabilities sorted by their string form.
func (p *Policy) List() []Capability {
	caps := make([]Capability, 0, len(p.allowed))
	for c := range p.allowed {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i].Less(caps[j]) })
	return caps
}

// DeniedError indicates a requested capability is outside the policy.
type DeniedError struct {
	Capability Capability
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("capability %q denied by policy", e.Capability)
}

func (e *DeniedError) Unwrap() error {
	return ErrCapabilityDenied
}

// IsDenied returns true if the error is a policy denial.
func IsDenied(err error) bool {
	var denied *DeniedError
	return errors.As(err, &denied)
}
