// Package dotdir manages the .verity/ and ~/.verity directories.
//
// The directory holds config.toml, the default SQLite fact store and the
// ingest checkpoint used to resume interrupted batch ingests.
package dotdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Names of the directory and of the files verity keeps in it.
const (
	DirName        = ".verity"
	ConfigFile     = "config.toml"
	StoreFile      = "verity.sqlite"
	CheckpointFile = "ingest_checkpoint.json"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path of the .verity/ directory to use,
// creating it when missing. Order of precedence:
//  1. Provided override
//  2. Local ./.verity/ dir
//  3. Home ~/.verity/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	dir, err := m.resolve(overrideDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating verity directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// File returns the path of name inside the target directory.
func (m *Manager) File(overrideDir, name string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// InitLocal creates ./.verity/ in the working directory. created is false
// when it already existed.
func (m *Manager) InitLocal() (dir string, created bool, err error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("getting current directory: %w", err)
	}
	dir = filepath.Join(cwd, DirName)

	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return dir, false, nil
	case err == nil:
		return "", false, fmt.Errorf("%s exists and is not a directory", dir)
	case !errors.Is(err, os.ErrNotExist):
		return "", false, fmt.Errorf("checking %s: %w", dir, err)
	}

	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("creating verity directory %s: %w", dir, err)
	}
	return dir, true, nil
}

func (m *Manager) resolve(overrideDir string) (string, error) {
	if overrideDir != "" {
		return overrideDir, nil
	}

	cwd, err := os.Getwd()
	if err == nil {
		local := filepath.Join(cwd, DirName)
		if info, err := os.Stat(local); err == nil && info.IsDir() {
			return local, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}
