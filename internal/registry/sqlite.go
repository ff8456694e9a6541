package registry

import (
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/qanoon-labs/qanoon-cli/internal/model"
)

// SQLiteStore persists the registry as a single JSON document inside a
// SQLite database. It satisfies the same Store contract as FileStore and
// adds the durability of WAL journaling for deployments where the metadata
// file sits on flaky network storage.
type SQLiteStore struct {
	db *sql.DB
}

const registrySchema = `
CREATE TABLE IF NOT EXISTS registry (
	id      INTEGER PRIMARY KEY CHECK (id = 1),
	payload TEXT NOT NULL
);
`

// NewSQLiteStore opens (or creates) a SQLite-backed registry store at dsn.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "registry: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "registry: exec %s", pragma)
		}
	}
	if _, err := db.Exec(registrySchema); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "registry: migrate sqlite")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Initialize() error {
	var exists int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM registry WHERE id = 1`).Scan(&exists)
	if err != nil {
		return eris.Wrap(err, "registry: sqlite check")
	}
	if exists > 0 {
		return nil
	}
	return s.put(model.NewRegistry())
}

func (s *SQLiteStore) Load() (*model.Registry, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM registry WHERE id = 1`).Scan(&payload)
	if err == sql.ErrNoRows {
		if initErr := s.Initialize(); initErr != nil {
			return nil, initErr
		}
		err = s.db.QueryRow(`SELECT payload FROM registry WHERE id = 1`).Scan(&payload)
	}
	if err != nil {
		return nil, eris.Wrap(err, "registry: sqlite load")
	}

	var reg model.Registry
	if err := json.Unmarshal([]byte(payload), &reg); err != nil {
		return nil, eris.Wrapf(ErrCorruptStore, "sqlite registry row: %v", err)
	}
	if reg.Documents == nil {
		reg.Documents = []model.DocumentRecord{}
	}
	if reg.Sources == nil {
		reg.Sources = map[string]int{}
	}
	return &reg, nil
}

func (s *SQLiteStore) Save(reg *model.Registry) error {
	reg.Recount()
	return s.put(reg)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) put(reg *model.Registry) error {
	data, err := json.Marshal(reg)
	if err != nil {
		return eris.Wrap(err, "registry: marshal store")
	}
	_, err = s.db.Exec(
		`INSERT INTO registry (id, payload) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET payload = excluded.payload`,
		string(data),
	)
	return eris.Wrap(err, "registry: sqlite save")
}
