// Package capability provides the closed permission model for Quill plugins.
package capability

import (
	"errors"
	"fmt"
	"strings"
)

// Capability errors.
var (
	ErrInvalidCapability = errors.New("invalid capability")
	ErrCapabilityDenied  = errors.New("capability denied")
)

// Category represents a capability category.
type Category string

// Category constants.
const (
	CategoryBuffers  Category = "buffers"
	CategoryCommands Category = "commands"
	CategoryUI       Category = "ui"
	CategoryEvents   Category = "events"
	CategoryFiles    Category = "files"
	CategoryNetwork  Category = "network"
)

// Action represents a capability action within a category.
type Action string

// Action constants.
const (
	ActionRead      Action = "read"
	ActionWrite     Action = "write"
	ActionRegister  Action = "register"
	ActionPanels    Action = "panels"
	ActionSubscribe Action = "subscribe"
	ActionFetch     Action = "fetch"
)

// Capability represents a single permission a plugin may request.
// Format: "category:action" (e.g., "buffers:read", "network:fetch").
// The set of valid capabilities is closed: adding a new one is a
// deliberate change to this package, never a runtime registration.
type Capability struct {
	category Category
	action   Action
	raw      string
}

func newCapability(category Category, action Action) Capability {
	return Capability{
		category: category,
		action:   action,
		raw:      string(category) + ":" + string(action),
	}
}

// The closed capability set.
var (
	CapBuffersRead      = newCapability(CategoryBuffers, ActionRead)
	CapBuffersWrite     = newCapability(CategoryBuffers, ActionWrite)
	CapCommandsRegister = newCapability(CategoryCommands, ActionRegister)
	CapUIPanels         = newCapability(CategoryUI, ActionPanels)
	CapEventsSubscribe  = newCapability(CategoryEvents, ActionSubscribe)
	CapFilesRead        = newCapability(CategoryFiles, ActionRead)
	CapFilesWrite       = newCapability(CategoryFiles, ActionWrite)
	CapNetworkFetch     = newCapability(CategoryNetwork, ActionFetch)
)

// All returns every known capability in a fixed, deterministic order.
// Diagnostics that enumerate capabilities use this order.
func All() []Capability {
	return []Capability{
		CapBuffersRead,
		CapBuffersWrite,
		CapCommandsRegister,
		CapUIPanels,
		CapEventsSubscribe,
		CapFilesRead,
		CapFilesWrite,
		CapNetworkFetch,
	}
}

// Parse parses a capability string, rejecting anything outside the
// closed set.
func Parse(s string) (Capability, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Capability{}, fmt.Errorf("%w: empty capability", ErrInvalidCapability)
	}
	for _, c := range All() {
		if c.raw == s {
			return c, nil
		}
	}
	return Capability{}, fmt.Errorf("%w: unknown capability %q", ErrInvalidCapability, s)
}

// MustParse parses a capability or panics. For tests and fixed tables.
func MustParse(s string) Capability {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Category returns the capability category.
func (c Capability) Category() Category {
	return c.category
}

// Action returns the capability action.
func (c Capability) Action() Action {
	return c.action
}

// String returns the "category:action" representation.
func (c Capability) String() string {
	return c.raw
}

// IsZero returns true if the capability is empty.
func (c Capability) IsZero() bool {
	return c.raw == ""
}

// Less orders capabilities by their string form, so sorted output is
// stable across runs.
func (c Capability) Less(other Capability) bool {
	return c.raw < other.raw
}
