package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/filesystem"
	"github.com/arthur-debert/dopkg/pkg/logging"
	"github.com/arthur-debert/dopkg/pkg/types"
	"github.com/pelletier/go-toml/v2"
)

const recordExt = ".toml"

// Reader answers installed-package queries
type Reader interface {
	// Lookup returns the record for name and whether one exists.
	Lookup(name string) (types.InstallationRecord, bool, error)

	// List returns every record ordered by name.
	List() ([]types.InstallationRecord, error)
}

// Store is a Reader that can also be written
type Store interface {
	Reader

	// Put writes rec, atomically replacing any record with the same name.
	Put(rec types.InstallationRecord) error

	// Remove deletes the record for name. Removing a missing record is not
	// an error.
	Remove(name string) error

	// Snapshot returns a point-in-time copy of every record.
	Snapshot() (Snapshot, error)
}

type fileStore struct {
	fs  filesystem.FS
	dir string
}

// New returns a Store keeping records in dir on fs
func New(fs filesystem.FS, dir string) Store {
	return &fileStore{fs: fs, dir: dir}
}

func (s *fileStore) path(name string) string {
	return filepath.Join(s.dir, name+recordExt)
}

func (s *fileStore) Lookup(name string) (types.InstallationRecord, bool, error) {
	data, err := s.fs.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return types.InstallationRecord{}, false, nil
		}
		return types.InstallationRecord{}, false, errors.Wrapf(err, errors.ErrIO, "failed to read record for %s", name).
			WithDetail(errors.DetailPath, s.path(name))
	}

	rec, err := decode(data)
	if err != nil {
		return types.InstallationRecord{}, false, errors.Wrapf(err, errors.ErrIO, "corrupt record for %s", name).
			WithDetail(errors.DetailPath, s.path(name))
	}
	return rec, true, nil
}

// List skips unreadable manifests with a warning so one damaged file does
// not hide the rest of the store.
func (s *fileStore) List() ([]types.InstallationRecord, error) {
	logger := logging.GetLogger("store")

	entries, err := s.fs.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrIO, "failed to list records in %s", s.dir).
			WithDetail(errors.DetailPath, s.dir)
	}

	var records []types.InstallationRecord
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordExt) {
			continue
		}
		rec, ok, err := s.Lookup(strings.TrimSuffix(name, recordExt))
		if err != nil {
			logger.Warn().Err(err).Str("record", name).Msg("skipping unreadable record")
			continue
		}
		if ok {
			records = append(records, rec)
		}
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

func (s *fileStore) Put(rec types.InstallationRecord) error {
	if rec.Name == "" {
		return errors.New(errors.ErrInvalidInput, "record has no name")
	}
	data, err := toml.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "failed to encode record for %s", rec.Name)
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to create %s", s.dir).
			WithDetail(errors.DetailPath, s.dir)
	}
	if err := s.fs.WriteFileAtomic(s.path(rec.Name), data, 0o644); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to write record for %s", rec.Name).
			WithDetail(errors.DetailPath, s.path(rec.Name))
	}
	return nil
}

func (s *fileStore) Remove(name string) error {
	if err := s.fs.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrIO, "failed to remove record for %s", name).
			WithDetail(errors.DetailPath, s.path(name))
	}
	return nil
}

func (s *fileStore) Snapshot() (Snapshot, error) {
	records, err := s.List()
	if err != nil {
		return nil, err
	}
	snap := make(Snapshot, len(records))
	for _, r := range records {
		snap[r.Name] = r
	}
	return snap, nil
}

func decode(data []byte) (types.InstallationRecord, error) {
	var rec types.InstallationRecord
	if err := toml.Unmarshal(data, &rec); err != nil {
		return rec, err
	}
	if rec.Name == "" || rec.Version == "" {
		return rec, errors.New(errors.ErrIO, "record is missing name or version")
	}
	return rec, nil
}

// Snapshot is an immutable view of the store taken at one instant
type Snapshot map[string]types.InstallationRecord

// Lookup implements Reader
func (s Snapshot) Lookup(name string) (types.InstallationRecord, bool, error) {
	rec, ok := s[name]
	return rec, ok, nil
}

// List implements Reader
func (s Snapshot) List() ([]types.InstallationRecord, error) {
	out := make([]types.InstallationRecord, 0, len(s))
	for _, r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
