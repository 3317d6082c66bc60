// Package paths provides centralized path handling for modcollect.
// It implements XDG Base Directory specification compliance and derives
// per-staging-directory file locations used by the rest of the codebase.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/modcollect/modcollect/pkg/errors"
)

// Environment variable names
const (
	// EnvConfigDir overrides the XDG config directory for modcollect
	EnvConfigDir = "MODCOLLECT_CONFIG_DIR"

	// EnvCacheDir overrides the XDG cache directory for modcollect
	EnvCacheDir = "MODCOLLECT_CACHE_DIR"
)

// Well-known file and directory names.
// IMPORTANT: these define the on-disk contract shared with previous runs
// and are NOT user-configurable. Renaming them orphans existing state.
const (
	// AppDirName is the directory name for modcollect-specific files
	AppDirName = "modcollect"

	// StateFileName is the per-staging-directory state file
	StateFileName = ".modcollect-state.json"

	// LoadOrderFileName is the generated mod load order listing
	LoadOrderFileName = "load-order.txt"

	// PluginsFileName is the generated plugin listing
	PluginsFileName = "plugins.txt"

	// StagingConfigFile is the per-staging-directory config file
	StagingConfigFile = ".modcollect.toml"

	// DataDirName is the game's data tree directory
	DataDirName = "Data"
)

// Paths resolves filesystem locations for one staging directory.
type Paths struct {
	stagingDir string
}

// New creates a Paths instance rooted at the given staging directory.
// The directory does not need to exist yet; it is validated to be an
// absolute, non-empty path after expansion.
func New(stagingDir string) (*Paths, error) {
	if stagingDir == "" {
		return nil, errors.New(errors.ErrInvalidInput, "staging directory must not be empty")
	}

	expanded, err := expandHome(stagingDir)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidInput, "cannot resolve staging directory")
	}

	return &Paths{stagingDir: abs}, nil
}

// StagingDir returns the absolute staging directory.
func (p *Paths) StagingDir() string {
	return p.stagingDir
}

// StateFile returns the path of the persisted state file.
func (p *Paths) StateFile() string {
	return filepath.Join(p.stagingDir, StateFileName)
}

// LoadOrderFile returns the path of the generated load order listing.
func (p *Paths) LoadOrderFile() string {
	return filepath.Join(p.stagingDir, LoadOrderFileName)
}

// PluginsFile returns the path of the generated plugin listing.
func (p *Paths) PluginsFile() string {
	return filepath.Join(p.stagingDir, PluginsFileName)
}

// StagingConfig returns the path of the per-staging-directory config file.
func (p *Paths) StagingConfig() string {
	return filepath.Join(p.stagingDir, StagingConfigFile)
}

// ConfigDir returns the modcollect config directory, honoring the
// MODCOLLECT_CONFIG_DIR override.
func ConfigDir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	return filepath.Join(xdg.ConfigHome, AppDirName)
}

// CacheDir returns the modcollect cache directory, honoring the
// MODCOLLECT_CACHE_DIR override.
func CacheDir() string {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		return dir
	}
	return filepath.Join(xdg.CacheHome, AppDirName)
}

// StateDir returns the modcollect XDG state directory (logs).
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppDirName)
}

// expandHome expands a leading ~/ to the user home directory.
func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, errors.ErrInternal, "cannot determine home directory")
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
