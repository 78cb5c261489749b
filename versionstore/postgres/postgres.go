// Package postgres is a Store (C4) backed by PostgreSQL via pgx/pgxpool,
// grounded on the alert-history service's PostgreSQLConfigStorage.Save
// (internal/config/update_storage.go): a single transaction whose INSERT
// takes the next id from the BIGSERIAL version_id column and reads it back
// with RETURNING, so no separate locking step is needed.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/four-robots/brokerctl/config"
	"github.com/four-robots/brokerctl/diff"
	"github.com/four-robots/brokerctl/internal/ctlerr"
	"github.com/four-robots/brokerctl/versionstore"
)

// Store is a versionstore.Store backed by a pgxpool.Pool. The schema is
// managed externally via goose (see migrations/postgres).
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an already-connected pool. Callers own the pool's lifecycle.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Append(v versionstore.Version) (int64, error) {
	ctx := context.Background()

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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var newID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO broker_config_versions
			(snapshot, parent_id, applied_at, description, diff, actor)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING version_id
	`, snapshotJSON, v.ParentID, v.AppliedAt, v.Description, diffJSON, v.Actor).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("insert version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return newID, nil
}

func (s *Store) Get(id int64) (versionstore.Version, error) {
	ctx := context.Background()
	row := s.pool.QueryRow(ctx, `
		SELECT version_id, snapshot, parent_id, applied_at, description, diff, actor
		FROM broker_config_versions
		WHERE version_id = $1
	`, id)
	return scanVersion(row)
}

func (s *Store) Latest() (versionstore.Version, bool) {
	ctx := context.Background()
	row := s.pool.QueryRow(ctx, `
		SELECT version_id, snapshot, parent_id, applied_at, description, diff, actor
		FROM broker_config_versions
		ORDER BY version_id DESC
		LIMIT 1
	`)
	v, err := scanVersion(row)
	if err != nil {
		return versionstore.Version{}, false
	}
	return v, true
}

func (s *Store) List(limit, offset int) ([]versionstore.Version, error) {
	ctx := context.Background()
	query := `
		SELECT version_id, snapshot, parent_id, applied_at, description, diff, actor
		FROM broker_config_versions
		ORDER BY version_id DESC
		OFFSET $1
	`
	args := []any{offset}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
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

func scanVersion(row pgx.Row) (versionstore.Version, error) {
	return scanRow(row)
}

func scanRow(row rowScanner) (versionstore.Version, error) {
	var (
		v            versionstore.Version
		snapshotJSON []byte
		diffJSON     []byte
		parentID     *int64
		appliedAt    time.Time
	)
	err := row.Scan(&v.VersionID, &snapshotJSON, &parentID, &appliedAt, &v.Description, &diffJSON, &v.Actor)
	if err != nil {
		if err == pgx.ErrNoRows {
			return versionstore.Version{}, ctlerr.New(ctlerr.NotFound, "version not found")
		}
		return versionstore.Version{}, fmt.Errorf("scan version row: %w", err)
	}

	var snapshot config.BrokerConfiguration
	if err := json.Unmarshal(snapshotJSON, &snapshot); err != nil {
		return versionstore.Version{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	v.Snapshot = &snapshot
	v.AppliedAt = appliedAt
	if parentID != nil {
		v.ParentID = *parentID
	}
	if len(diffJSON) > 0 {
		var d diff.Diff
		if err := json.Unmarshal(diffJSON, &d); err != nil {
			return versionstore.Version{}, fmt.Errorf("unmarshal diff: %w", err)
		}
		v.Diff = &d
	}
	return v, nil
}

var _ versionstore.Store = (*Store)(nil)
