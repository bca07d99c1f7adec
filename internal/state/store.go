// Package state persists the project-local JSON documents under .sdd/.
// Every write is of the complete in-memory object: marshal, temp file,
// rename. A document that exists but fails to parse is treated the same as
// an absent document so a corrupted file never blocks the user.
package state

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
)

// Dir is the project-local state directory
const Dir = ".sdd"

// Document file names under Dir
const (
	GatesFile    = "gates.json"
	PlanFile     = "plan.json"
	ProfileFile  = "profile.json"
	RunStateFile = "run-state.json"
	SyncFile     = "github-sync.json"
)

const lockFile = ".lock"

// Path returns the absolute path of a state document
func Path(baseDir, file string) string {
	return filepath.Join(baseDir, Dir, file)
}

// Exists reports whether the state directory has been created
func Exists(baseDir string) bool {
	info, err := os.Stat(filepath.Join(baseDir, Dir))
	return err == nil && info.IsDir()
}

// Load reads a document into v. It returns false when the document is
// absent, and also false (with a warning) when it exists but cannot be
// parsed — corruption is recovered from, never fatal.
func Load(baseDir, file string, v any) (bool, error) {
	path := Path(baseDir, file)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("state: unparseable document, treating as absent", "file", file, "err", err)
		return false, nil
	}

	return true, nil
}

// Save writes a document to disk using atomic write (temp file + rename)
func Save(baseDir, file string, v any) error {
	path := Path(baseDir, file)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, file+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}

// Remove deletes a document; an absent document is not an error
func Remove(baseDir, file string) error {
	err := os.Remove(Path(baseDir, file))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// WithLock serializes a read-modify-write of the state directory using flock.
// Cross-process races between whole invocations remain last-write-wins; the
// lock only covers the critical section within one invocation.
func WithLock(baseDir string, fn func() error) error {
	lockPath := Path(baseDir, lockFile)

	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return err
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	return fn()
}
