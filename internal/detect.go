package internal

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// AppDirName is the per-user application directory
	AppDirName   = "social-session"
	dumpsDirName = "scrape-dumps"
)

// legacyAppDirNames are earlier application directory names whose dump
// archives are still read, newest first.
var legacyAppDirNames = []string{"creative-instagram", "instagram-3d-visualizer"}

// ArchivePaths holds the detected dump archive locations
type ArchivePaths struct {
	BasePath string   // per-user config directory
	Active   string   // archive new dumps are written to
	Legacy   []string // older archives, read only
}

// DetectArchivePaths resolves the default archive locations under the
// user's config directory (~/.config on Linux, ~/Library/Application Support on macOS).
func DetectArchivePaths() (ArchivePaths, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return ArchivePaths{}, fmt.Errorf("failed to get config directory: %w", err)
	}
	return archivePathsFrom(base), nil
}

func archivePathsFrom(base string) ArchivePaths {
	paths := ArchivePaths{
		BasePath: base,
		Active:   filepath.Join(base, AppDirName, dumpsDirName),
	}
	for _, name := range legacyAppDirNames {
		paths.Legacy = append(paths.Legacy, filepath.Join(base, name, dumpsDirName))
	}
	return paths
}

// GetArchivePaths returns the archive paths, honouring a custom active
// directory and extra legacy directories when given.
func GetArchivePaths(customActive string, extraLegacy []string) (ArchivePaths, error) {
	paths, err := DetectArchivePaths()
	if err != nil && customActive == "" {
		return ArchivePaths{}, err
	}
	if customActive != "" {
		abs, err := filepath.Abs(customActive)
		if err != nil {
			return ArchivePaths{}, fmt.Errorf("failed to resolve archive directory: %w", err)
		}
		paths.Active = abs
	}
	if len(extraLegacy) > 0 {
		paths.Legacy = append(append([]string{}, extraLegacy...), paths.Legacy...)
	}
	return paths, nil
}

// ActiveExists checks if the active archive directory exists
func (p ArchivePaths) ActiveExists() bool {
	return dirExists(p.Active)
}

// ExistingLegacy returns the legacy archives present on disk
func (p ArchivePaths) ExistingLegacy() []string {
	var out []string
	for _, dir := range p.Legacy {
		if dirExists(dir) {
			out = append(out, dir)
		}
	}
	return out
}

// JournalPath returns the crawl journal database path beside the archive
func (p ArchivePaths) JournalPath() string {
	return filepath.Join(filepath.Dir(p.Active), "journal.db")
}

// NewStore builds a DumpStore over these paths
func (p ArchivePaths) NewStore() *DumpStore {
	return NewDumpStore(p.Active, p.Legacy...)
}

func dirExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
