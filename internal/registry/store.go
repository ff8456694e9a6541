package registry

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/qanoon-labs/qanoon-cli/internal/model"
)

// ErrCorruptStore signals that the persisted registry could not be parsed.
// Fatal: no auto-repair is attempted.
var ErrCorruptStore = errors.New("registry: corrupt store")

// Store is the persistence contract for the registry. Any implementation
// satisfying the Registry invariants is substitutable; the manager always
// goes through Load/Save and never assumes a file on disk.
type Store interface {
	// Initialize idempotently ensures storage exists with the empty
	// registry shape. Never overwrites an existing store.
	Initialize() error

	// Load returns the full registry, auto-initializing absent storage.
	// Returns ErrCorruptStore (wrapped) if the content is unparseable.
	Load() (*model.Registry, error)

	// Save recomputes the derived aggregate fields and persists.
	Save(reg *model.Registry) error
}

// FileStore persists the registry as one pretty-printed JSON document at a
// fixed path. Single-writer-at-a-time per process; cross-process writers
// are not coordinated.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the location of the backing file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Initialize() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return eris.Wrap(err, "registry: stat store")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return eris.Wrap(err, "registry: create metadata dir")
	}
	return s.write(model.NewRegistry())
}

func (s *FileStore) Load() (*model.Registry, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		if initErr := s.Initialize(); initErr != nil {
			return nil, initErr
		}
		data, err = os.ReadFile(s.path)
	}
	if err != nil {
		return nil, eris.Wrap(err, "registry: read store")
	}

	var reg model.Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, eris.Wrapf(ErrCorruptStore, "%s: %v", s.path, err)
	}
	if reg.Documents == nil {
		reg.Documents = []model.DocumentRecord{}
	}
	if reg.Sources == nil {
		reg.Sources = map[string]int{}
	}
	return &reg, nil
}

func (s *FileStore) Save(reg *model.Registry) error {
	reg.Recount()
	return s.write(reg)
}

func (s *FileStore) write(reg *model.Registry) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return eris.Wrap(err, "registry: marshal store")
	}
	data = append(data, '\n')
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return eris.Wrap(err, "registry: write store")
	}
	return nil
}

// MemStore is an in-memory Store for tests and ephemeral runs.
type MemStore struct {
	mu  sync.Mutex
	reg *model.Registry
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reg == nil {
		s.reg = model.NewRegistry()
	}
	return nil
}

func (s *MemStore) Load() (*model.Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reg == nil {
		s.reg = model.NewRegistry()
	}
	return clone(s.reg)
}

func (s *MemStore) Save(reg *model.Registry) error {
	reg.Recount()
	copied, err := clone(reg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.reg = copied
	s.mu.Unlock()
	return nil
}

func clone(reg *model.Registry) (*model.Registry, error) {
	data, err := json.Marshal(reg)
	if err != nil {
		return nil, eris.Wrap(err, "registry: clone")
	}
	var out model.Registry
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "registry: clone")
	}
	return &out, nil
}
