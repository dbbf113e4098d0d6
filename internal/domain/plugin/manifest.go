// Package plugin implements discovery and validation of Quill's
// sandboxed plugin packages.
package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/quillworks/quill/internal/domain/capability"
)

// ManifestFileName is the manifest file expected in every plugin
// directory.
const ManifestFileName = "plugin.yaml"

// Manifest errors.
var (
	ErrManifestNotFound = errors.New("plugin manifest not found")
	ErrManifestInvalid  = errors.New("plugin manifest invalid")
)

// idPattern restricts plugin ids to lowercase ASCII letters, digits,
// and `. _ -`.
var idPattern = regexp.MustCompile(`^[a-z0-9._-]+$`)

// Manifest describes a plugin's identity, entry point, requested
// capabilities, and exported commands. It is parsed once at discovery
// time and immutable afterward.
type Manifest struct {
	// ID is the stable unique plugin identifier.
	ID string `yaml:"id"`

	// Name is the human-readable name.
	Name string `yaml:"name"`

	// Version is the plugin version (semver).
	Version string `yaml:"version"`

	// Description of what the plugin does.
	Description string `yaml:"description,omitempty"`

	// Entry is the path to the WASM module, relative to the plugin's
	// own directory.
	Entry string `yaml:"entry"`

	// MinimumHostVersion is the oldest host version the plugin
	// supports (semver), if any.
	MinimumHostVersion string `yaml:"minimum_host_version,omitempty"`

	// Checksum is the optional SHA-256 hex digest of the module file.
	Checksum string `yaml:"checksum,omitempty"`

	// Capabilities the plugin requests, in declaration order.
	Capabilities []string `yaml:"capabilities,omitempty"`

	// Commands the plugin exports. A command's position in this list is
	// the ordinal sent across the sandbox boundary to select it.
	Commands []Command `yaml:"commands,omitempty"`
}

// Command declares a command a plugin provides.
type Command struct {
	// ID identifies the command (e.g., "sort-lines").
	ID string `yaml:"id"`

	// Name is the display name.
	Name string `yaml:"name"`

	// Description is optional long-form help.
	Description string `yaml:"description,omitempty"`
}

// Validate checks a single command's required fields.
func (c *Command) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: missing command id", ErrManifestInvalid)
	}
	if c.Name == "" {
		return fmt.Errorf("%w: command %q missing name", ErrManifestInvalid, c.ID)
	}
	return nil
}

// ParseManifest parses manifest bytes without validating them.
func ParseManifest(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifestInvalid, err)
	}
	return &manifest, nil
}

// LoadManifest reads and parses the manifest in a plugin directory.
func LoadManifest(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, ManifestFileName)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, manifestPath)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// Validate checks the manifest invariants in a fixed order and returns
// the first violated rule.
func (m *Manifest) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing id", ErrManifestInvalid)
	}
	if !idPattern.MatchString(m.ID) {
		return fmt.Errorf("%w: id %q may only contain lowercase letters, digits, '.', '_', '-'",
			ErrManifestInvalid, m.ID)
	}
	if m.Name == "" {
		return fmt.Errorf("%w: missing name", ErrManifestInvalid)
	}
	if m.Version == "" {
		return fmt.Errorf("%w: missing version", ErrManifestInvalid)
	}
	if !semver.IsValid(canonicalVersion(m.Version)) {
		return fmt.Errorf("%w: version %q is not valid semver", ErrManifestInvalid, m.Version)
	}
	if err := m.validateEntry(); err != nil {
		return err
	}
	if m.MinimumHostVersion != "" && !semver.IsValid(canonicalVersion(m.MinimumHostVersion)) {
		return fmt.Errorf("%w: minimum_host_version %q is not valid semver",
			ErrManifestInvalid, m.MinimumHostVersion)
	}
	if _, err := m.RequestedCapabilities(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(m.Commands))
	for i := range m.Commands {
		cmd := &m.Commands[i]
		if err := cmd.Validate(); err != nil {
			return fmt.Errorf("command %d: %w", i, err)
		}
		if _, dup := seen[cmd.ID]; dup {
			return fmt.Errorf("%w: duplicate command id %q", ErrManifestInvalid, cmd.ID)
		}
		seen[cmd.ID] = struct{}{}
	}
	return nil
}

// validateEntry rejects absolute entry paths and parent-directory
// segments so the module can never resolve outside the plugin's own
// directory.
func (m *Manifest) validateEntry() error {
	if m.Entry == "" {
		return fmt.Errorf("%w: missing entry", ErrManifestInvalid)
	}
	if filepath.IsAbs(m.Entry) || strings.HasPrefix(m.Entry, "/") {
		return fmt.Errorf("%w: entry %q must be relative", ErrManifestInvalid, m.Entry)
	}
	for _, segment := range strings.Split(filepath.ToSlash(m.Entry), "/") {
		if segment == ".." {
			return fmt.Errorf("%w: entry %q contains a parent-directory segment",
				ErrManifestInvalid, m.Entry)
		}
	}
	return nil
}

// RequestedCapabilities parses the declared capability names in
// declaration order, failing on the first unknown name.
func (m *Manifest) RequestedCapabilities() ([]capability.Capability, error) {
	if len(m.Capabilities) == 0 {
		return nil, nil
	}
	caps := make([]capability.Capability, 0, len(m.Capabilities))
	for _, raw := range m.Capabilities {
		c, err := capability.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrManifestInvalid, err)
		}
		caps = append(caps, c)
	}
	return caps, nil
}

// CommandOrdinal resolves a command id to its zero-based position in
// the command list, the value sent across the sandbox boundary.
func (m *Manifest) CommandOrdinal(commandID string) (int, bool) {
	for i := range m.Commands {
		if m.Commands[i].ID == commandID {
			return i, true
		}
	}
	return 0, false
}

// SupportsHost reports whether the manifest's minimum_host_version, if
// set, is satisfied by the given host version.
func (m *Manifest) SupportsHost(hostVersion string) bool {
	if m.MinimumHostVersion == "" || hostVersion == "" {
		return true
	}
	return semver.Compare(canonicalVersion(hostVersion), canonicalVersion(m.MinimumHostVersion)) >= 0
}

// canonicalVersion adds the "v" prefix semver.IsValid expects.
func canonicalVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}
