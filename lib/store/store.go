// Package store keeps one record file per descriptor type in a directory.
//
// A record file is named "tmpldb.<type>.rd" and holds the fingerprint of the
// code that produced it followed by the records themselves (see
// lib/encoding). Files are replaced atomically via rename so a reader never
// observes a half-written file from this process; a crash mid-write leaves
// at worst a stray temp file.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pthm/tmpldb/lib/encoding"
)

const (
	filePrefix = "tmpldb."
	fileExt    = ".rd"
)

// ErrNotExist is returned by Load when no record file exists for a key.
var ErrNotExist = errors.New("store: record file does not exist")

var nameReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
)

// FileName returns the deterministic record file name for a key, usually a
// fully qualified type name.
func FileName(key string) string {
	return filePrefix + nameReplacer.Replace(key) + fileExt
}

// Store reads and writes record files under a directory.
type Store struct {
	dir string
}

// New creates a store rooted at dir. The directory is created on first save.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store's directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the full path of the record file for key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, FileName(key))
}

// Load decodes the record file for key into v when its fingerprint matches.
// v must be a pointer to a slice.
func (s *Store) Load(key string, fingerprint int32, v any) error {
	f, err := os.Open(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotExist
		}
		return err
	}
	defer f.Close()

	return encoding.NewDecoder(f).DecodeExpect(fingerprint, v)
}

// Save writes records for key, replacing any existing file.
func (s *Store) Save(key string, fingerprint int32, records any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("store: create %s: %w", s.dir, err)
	}

	tmp, err := os.CreateTemp(s.dir, FileName(key)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := encoding.NewEncoder(tmp).Encode(fingerprint, records); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, s.Path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: replace %s: %w", key, err)
	}
	return nil
}

// Remove deletes the record file for key. Missing files are not an error.
func (s *Store) Remove(key string) error {
	err := os.Remove(s.Path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// FileInfo describes a record file on disk.
type FileInfo struct {
	Name        string `json:"name" yaml:"name"`
	Path        string `json:"path" yaml:"path"`
	Size        int64  `json:"size" yaml:"size"`
	Fingerprint int32  `json:"fingerprint" yaml:"fingerprint"`
	Records     int    `json:"records" yaml:"records"`
	Err         string `json:"error,omitempty" yaml:"error,omitempty"`
}

// List returns every record file in the directory, sorted by name.
// Unreadable files are reported with Err set rather than failing the list.
func (s *Store) List() ([]FileInfo, error) {
	paths, err := s.files()
	if err != nil {
		return nil, err
	}

	infos := make([]FileInfo, 0, len(paths))
	for _, path := range paths {
		infos = append(infos, Stat(path))
	}
	return infos, nil
}

// Clean removes every record file and stray temp file in the directory and
// returns the number of files removed.
func (s *Store) Clean() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) {
			continue
		}
		if !strings.HasSuffix(name, fileExt) && !strings.HasSuffix(name, ".tmp") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Stat reads the header and record count of a single record file.
func Stat(path string) FileInfo {
	info := FileInfo{Name: filepath.Base(path), Path: path}

	st, err := os.Stat(path)
	if err != nil {
		info.Err = err.Error()
		return info
	}
	info.Size = st.Size()

	records, fp, err := ReadFile(path)
	info.Fingerprint = fp
	if err != nil {
		info.Err = err.Error()
		return info
	}
	info.Records = len(records)
	return info
}

// ReadFile decodes a record file without knowing its record type.
func ReadFile(path string) ([]map[string]any, int32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := encoding.NewDecoder(f)
	fp, err := dec.Header()
	if err != nil {
		return nil, 0, err
	}
	records, err := dec.DecodeGeneric()
	if err != nil {
		return nil, fp, err
	}
	return records, fp, nil
}

func (s *Store) files() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}
