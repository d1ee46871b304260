// Package fsstore implements C3, the File Store: an abstraction over one
// cycle's working directory. Every generated artifact is written under a
// path derived from work_dir, never above it, and state snapshots are
// persisted atomically (write-tmp-then-rename) so a crash mid-write never
// leaves a corrupt outputs/output.json behind.
package fsstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/richard-devbot/chaoshunter/pkg/model"
)

// Store roots every operation at workDir.
type Store struct {
	workDir string
}

// New returns a Store rooted at workDir, creating it if necessary.
func New(workDir string) (*Store, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("fsstore: creating work_dir %s: %w", workDir, err)
	}
	return &Store{workDir: workDir}, nil
}

// WorkDir returns the root directory this store is scoped to.
func (s *Store) WorkDir() string { return s.workDir }

// resolve joins relPath onto work_dir and rejects any path that would
// escape it, per spec.md 4.3's "never above it" policy.
func (s *Store) resolve(relPath string) (string, error) {
	full := filepath.Join(s.workDir, relPath)
	rootWithSep := s.workDir + string(filepath.Separator)
	if full != s.workDir && !strings.HasPrefix(full, rootWithSep) {
		return "", fmt.Errorf("fsstore: path %q escapes work_dir", relPath)
	}
	return full, nil
}

// Write persists a File's content under work_dir, creating parent
// directories as needed.
func (s *Store) Write(f model.File) error {
	full, err := s.resolve(f.Path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("fsstore: creating parent dirs for %s: %w", f.Path, err)
	}
	data := f.Bytes
	if data == nil {
		data = []byte(f.Content)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("fsstore: writing %s: %w", f.Path, err)
	}
	return nil
}

// Read loads relPath into a model.File.
func (s *Store) Read(relPath string) (model.File, error) {
	full, err := s.resolve(relPath)
	if err != nil {
		return model.File{}, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return model.File{}, fmt.Errorf("fsstore: reading %s: %w", relPath, err)
	}
	return model.NewFile(s.workDir, relPath, string(data)), nil
}

// Copy duplicates every regular file under srcRel into dstRel, preserving
// the relative subtree. Used by the Improver (C11) to fork mod_dir/mod_N/
// from its predecessor.
func (s *Store) Copy(srcRel, dstRel string) error {
	srcFull, err := s.resolve(srcRel)
	if err != nil {
		return err
	}
	dstFull, err := s.resolve(dstRel)
	if err != nil {
		return err
	}

	return filepath.Walk(srcFull, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcFull, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dstFull, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("fsstore: reading %s during copy: %w", path, err)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}

// Delete removes relPath (file or subtree) if present.
func (s *Store) Delete(relPath string) error {
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(full); err != nil {
		return fmt.Errorf("fsstore: deleting %s: %w", relPath, err)
	}
	return nil
}

// Exists reports whether relPath is present under work_dir.
func (s *Store) Exists(relPath string) bool {
	full, err := s.resolve(relPath)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

// snapshotPath is the well-known key state snapshots are written to, per
// spec.md 4.3 and 6.
const snapshotPath = "outputs/output.json"

// CycleOutput is the top-level document persisted to outputs/output.json
// after every phase boundary, per spec.md 6.
type CycleOutput struct {
	OutputDir  string             `json:"output_dir"`
	WorkDir    string             `json:"work_dir"`
	Logs       map[string]string  `json:"logs"`
	RunTime    map[string]float64 `json:"run_time"`
	CycleState json.RawMessage    `json:"ce_cycle"`
}

// WriteSnapshot atomically persists out to outputs/output.json: it writes
// to a sibling temp file and renames over the target, so a crash mid-write
// never leaves a torn snapshot for the next run to load.
func (s *Store) WriteSnapshot(out CycleOutput) error {
	full, err := s.resolve(snapshotPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("fsstore: creating outputs dir: %w", err)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("fsstore: marshaling snapshot: %w", err)
	}

	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("fsstore: writing snapshot tmp file: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("fsstore: renaming snapshot into place: %w", err)
	}
	return nil
}

// ReadSnapshot loads the most recently written CycleOutput, if any.
func (s *Store) ReadSnapshot() (CycleOutput, error) {
	full, err := s.resolve(snapshotPath)
	if err != nil {
		return CycleOutput{}, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return CycleOutput{}, fmt.Errorf("fsstore: reading snapshot: %w", err)
	}
	var out CycleOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return CycleOutput{}, fmt.Errorf("fsstore: parsing snapshot: %w", err)
	}
	return out, nil
}
