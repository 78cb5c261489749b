// Package sqlite is a Store (C4) backed by a local SQLite file via
// modernc.org/sqlite, for single-node deployments that want an on-disk
// version history without standing up PostgreSQL. It mirrors
// versionstore/postgres's shape but drives database/sql directly, since
// modernc.org/sqlite is a database/sql driver rather than a pool library.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/four-robots/brokerctl/config"
	"github.com/four-robots/brokerctl/diff"
	"github.com/four-robots/brokerctl/internal/ctlerr"
	"github.com/four-robots/brokerctl/versionstore"
)

// Store is a versionstore.Store backed by a *sql.DB opened against a
// modernc.org/sqlite file. The schema is managed externally via goose (see
// migrations/sqlite).
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database file at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// modernc.org/sqlite serializes writers at the driver level; a single
	// connection avoids SQLITE_BUSY under concurrent Append calls.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// New wraps an already-open *sql.DB (e.g. one goose has already migrated).
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Append(v versionstore.Version) (int64, error) {
	snapshotJSON, err := json.Marshal(v.Snapshot)
	if err != nil {
		return 0, fmt.Errorf("marshal snapshot: %w", err)
	}
	var diffJSON []byte
	if v.Diff != nil {
		diffJSON, err = json.Marshal(v.Diff)
		if err != nil {
			return 0, fmt.Errorf("marshal diff: %w", err)
		}
	}
	appliedAt := v.AppliedAt
	if appliedAt.IsZero() {
		appliedAt = time.Now().UTC()
	}

	var parentID any
	if v.ParentID != 0 {
		parentID = v.ParentID
	}

	res, err := s.db.Exec(`
		INSERT INTO broker_config_versions
			(snapshot, parent_id, applied_at, description, diff, actor)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(snapshotJSON), parentID, appliedAt.Format(time.RFC3339Nano), v.Description, nullableString(diffJSON), v.Actor)
	if err != nil {
		return 0, fmt.Errorf("insert version: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted id: %w", err)
	}
	return id, nil
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func (s *Store) Get(id int64) (versionstore.Version, error) {
	row := s.db.QueryRow(`
		SELECT version_id, snapshot, parent_id, applied_at, description, diff, actor
		FROM broker_config_versions WHERE version_id = ?
	`, id)
	return scanRow(row)
}

func (s *Store) Latest() (versionstore.Version, bool) {
	row := s.db.QueryRow(`
		SELECT version_id, snapshot, parent_id, applied_at, description, diff, actor
		FROM broker_config_versions ORDER BY version_id DESC LIMIT 1
	`)
	v, err := scanRow(row)
	if err != nil {
		return versionstore.Version{}, false
	}
	return v, true
}

func (s *Store) List(limit, offset int) ([]versionstore.Version, error) {
	query := `
		SELECT version_id, snapshot, parent_id, applied_at, description, diff, actor
		FROM broker_config_versions ORDER BY version_id DESC LIMIT ? OFFSET ?
	`
	effectiveLimit := limit
	if effectiveLimit <= 0 {
		effectiveLimit = -1 // SQLite: LIMIT -1 means "no limit"
	}

	rows, err := s.db.Query(query, effectiveLimit, offset)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	var out []versionstore.Version
	for rows.Next() {
		v, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (versionstore.Version, error) {
	var (
		v            versionstore.Version
		snapshotJSON string
		diffJSON     sql.NullString
		parentID     sql.NullInt64
		appliedAtStr string
	)
	err := row.Scan(&v.VersionID, &snapshotJSON, &parentID, &appliedAtStr, &v.Description, &diffJSON, &v.Actor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return versionstore.Version{}, ctlerr.New(ctlerr.NotFound, "version not found")
		}
		return versionstore.Version{}, fmt.Errorf("scan version row: %w", err)
	}

	var snapshot config.BrokerConfiguration
	if err := json.Unmarshal([]byte(snapshotJSON), &snapshot); err != nil {
		return versionstore.Version{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	v.Snapshot = &snapshot
	if parentID.Valid {
		v.ParentID = parentID.Int64
	}
	if appliedAt, err := time.Parse(time.RFC3339Nano, appliedAtStr); err == nil {
		v.AppliedAt = appliedAt
	}
	if diffJSON.Valid && diffJSON.String != "" {
		var d diff.Diff
		if err := json.Unmarshal([]byte(diffJSON.String), &d); err != nil {
			return versionstore.Version{}, fmt.Errorf("unmarshal diff: %w", err)
		}
		v.Diff = &d
	}
	return v, nil
}

var _ versionstore.Store = (*Store)(nil)
