package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/quillworks/quill/internal/domain/capability"
)

// ErrHostTooOld indicates a plugin requires a newer host version than
// the one running.
var ErrHostTooOld = errors.New("plugin requires a newer host version")

// Failure records one plugin directory that could not be loaded.
type Failure struct {
	// Path is the plugin directory the failure belongs to.
	Path string

	// Err is the underlying parse, validation, policy, or module error.
	Err error
}

func (f Failure) String() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

// Inventory is the result of a discovery scan: loadable packages plus
// non-fatal per-plugin failures. A failure in one plugin directory
// never prevents processing of its siblings.
type Inventory struct {
	Packages []*Package
	Failures []Failure
}

// HasFailures returns true if any plugin directory failed to load.
func (inv *Inventory) HasFailures() bool {
	return len(inv.Failures) > 0
}

// Discover scans root for plugin directories, validating each manifest
// against the given policy. A missing root yields an empty Inventory,
// since a first run with no plugins installed is a normal state. Only a
// failure to list the root itself is fatal.
//
// hostVersion, when non-empty, is compared against each manifest's
// minimum_host_version; plugins requiring a newer host are recorded as
// failures.
func Discover(root string, policy *capability.Policy, hostVersion string) (*Inventory, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return &Inventory{}, nil
		}
		return nil, fmt.Errorf("failed to read plugin root %s: %w", root, err)
	}

	inv := &Inventory{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		pkg, err := loadPackage(dir, policy, hostVersion)
		if err != nil {
			inv.Failures = append(inv.Failures, Failure{Path: dir, Err: err})
			continue
		}
		inv.Packages = append(inv.Packages, pkg)
	}
	return inv, nil
}

// loadPackage runs the per-directory pipeline: read and validate the
// manifest, check requested capabilities against the policy, gate on
// the host version, then construct the package.
func loadPackage(dir string, policy *capability.Policy, hostVersion string) (*Package, error) {
	manifest, err := LoadManifest(dir)
	if err != nil {
		return nil, err
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	caps, err := manifest.RequestedCapabilities()
	if err != nil {
		return nil, err
	}
	if err := policy.CheckAll(caps...); err != nil {
		return nil, err
	}
	if !manifest.SupportsHost(hostVersion) {
		return nil, fmt.Errorf("%w: plugin %q requires host %s or newer, running %s",
			ErrHostTooOld, manifest.ID, manifest.MinimumHostVersion, hostVersion)
	}
	return NewPackage(dir, manifest)
}
