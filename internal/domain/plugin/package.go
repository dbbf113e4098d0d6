package plugin

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrModuleNotFound indicates the module file named by the manifest's
// entry does not exist.
var ErrModuleNotFound = errors.New("plugin module not found")

// ChecksumError indicates the module file does not match the checksum
// declared in the manifest.
type ChecksumError struct {
	Expected string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// IsChecksumError returns true if the error is a checksum verification
// failure.
func IsChecksumError(err error) bool {
	var checksumErr *ChecksumError
	return errors.As(err, &checksumErr)
}

// Package is a validated, loadable plugin: its manifest plus the
// resolved root directory and module file path.
type Package struct {
	manifest   *Manifest
	dir        string
	modulePath string
}

// NewPackage resolves a validated manifest against its plugin
// directory. It fails if the module file named by the manifest's entry
// does not exist, or if a declared checksum does not match the module
// bytes.
func NewPackage(dir string, manifest *Manifest) (*Package, error) {
	modulePath := filepath.Join(dir, filepath.FromSlash(manifest.Entry))
	info, err := os.Stat(modulePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, modulePath)
		}
		return nil, fmt.Errorf("failed to stat module: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrModuleNotFound, modulePath)
	}

	if manifest.Checksum != "" {
		data, err := os.ReadFile(modulePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read module: %w", err)
		}
		actual := sha256Hex(data)
		if actual != manifest.Checksum {
			return nil, &ChecksumError{Expected: manifest.Checksum, Actual: actual}
		}
	}

	return &Package{
		manifest:   manifest,
		dir:        dir,
		modulePath: modulePath,
	}, nil
}

// Manifest returns the validated manifest.
func (p *Package) Manifest() *Manifest {
	return p.manifest
}

// Dir returns the plugin's root directory.
func (p *Package) Dir() string {
	return p.dir
}

// ModulePath returns the resolved path of the WASM module file.
func (p *Package) ModulePath() string {
	return p.modulePath
}

// CalculateChecksum computes the SHA-256 checksum of a file. Installer
// tooling uses this to populate the manifest's checksum field.
func CalculateChecksum(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return sha256Hex(data), nil
}

func sha256Hex(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
