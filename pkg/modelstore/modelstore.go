// Package modelstore persists model artifacts, active-version pointers, and
// logged training examples in SQLite. It implements the training package's
// ExampleStore and ArtifactStore boundaries.
package modelstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/domain"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/training"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS model_artifacts (
	kind        TEXT NOT NULL,
	version     INTEGER NOT NULL,
	weights     TEXT NOT NULL,
	schema      TEXT NOT NULL,
	metrics     TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	created_by  TEXT NOT NULL,
	PRIMARY KEY (kind, version)
);

CREATE TABLE IF NOT EXISTS active_models (
	kind    TEXT PRIMARY KEY,
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS training_examples (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	kind       TEXT NOT NULL,
	features   TEXT NOT NULL,
	label      REAL NOT NULL,
	meta       TEXT,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_examples_kind ON training_examples(kind, id);
`

// Store is a SQLite-backed model store.
type Store struct {
	db *sql.DB
}

// Compile-time boundary checks.
var (
	_ training.ArtifactStore = (*Store)(nil)
	_ training.ExampleStore  = (*Store)(nil)
)

// Open opens (creating if needed) the store at the given path.
// Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("modelstore: open %s: %w", path, err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent training and inference reads.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("modelstore: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// SaveArtifact persists a new artifact, assigning version = max+1 for its
// kind inside a transaction so concurrent trainers cannot collide.
func (s *Store) SaveArtifact(ctx context.Context, a training.Artifact) (int, error) {
	weights, err := json.Marshal(a.Weights)
	if err != nil {
		return 0, fmt.Errorf("modelstore: encode weights: %w", err)
	}
	schema, err := json.Marshal(a.Schema)
	if err != nil {
		return 0, fmt.Errorf("modelstore: encode schema: %w", err)
	}
	metrics, err := json.Marshal(a.Metrics)
	if err != nil {
		return 0, fmt.Errorf("modelstore: encode metrics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("modelstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	var version int
	row := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM model_artifacts WHERE kind = ?`, string(a.Kind))
	if err := row.Scan(&version); err != nil {
		return 0, fmt.Errorf("modelstore: next version for %s: %w", a.Kind, err)
	}

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO model_artifacts (kind, version, weights, schema, metrics, created_at, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(a.Kind), version, string(weights), string(schema), string(metrics),
		createdAt.Format(time.RFC3339Nano), a.CreatedBy)
	if err != nil {
		return 0, fmt.Errorf("modelstore: insert artifact %s v%d: %w", a.Kind, version, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("modelstore: commit artifact: %w", err)
	}
	return version, nil
}

// ListArtifacts returns all stored artifacts ordered by kind, then version.
func (s *Store) ListArtifacts(ctx context.Context) ([]training.Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, version, weights, schema, metrics, created_at, created_by
		 FROM model_artifacts ORDER BY kind, version`)
	if err != nil {
		return nil, fmt.Errorf("modelstore: list artifacts: %w", err)
	}
	defer rows.Close()

	var out []training.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LoadArtifact returns one artifact by kind and version.
func (s *Store) LoadArtifact(ctx context.Context, kind training.Kind, version int) (training.Artifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT kind, version, weights, schema, metrics, created_at, created_by
		 FROM model_artifacts WHERE kind = ? AND version = ?`, string(kind), version)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return training.Artifact{}, fmt.Errorf("modelstore: %s v%d: %w", kind, version, domain.ErrArtifactNotFound)
	}
	return a, err
}

// ActiveVersions returns the active version per kind. Kinds with no active
// model are absent from the map.
func (s *Store) ActiveVersions(ctx context.Context) (map[training.Kind]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, version FROM active_models`)
	if err != nil {
		return nil, fmt.Errorf("modelstore: active versions: %w", err)
	}
	defer rows.Close()

	out := make(map[training.Kind]int)
	for rows.Next() {
		var kind string
		var version int
		if err := rows.Scan(&kind, &version); err != nil {
			return nil, fmt.Errorf("modelstore: scan active version: %w", err)
		}
		out[training.Kind(kind)] = version
	}
	return out, rows.Err()
}

// SetActiveVersion points a kind at the given artifact version. The artifact
// must exist.
func (s *Store) SetActiveVersion(ctx context.Context, kind training.Kind, version int) error {
	var exists int
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM model_artifacts WHERE kind = ? AND version = ?`, string(kind), version)
	if err := row.Scan(&exists); err != nil {
		return fmt.Errorf("modelstore: check artifact %s v%d: %w", kind, version, err)
	}
	if exists == 0 {
		return fmt.Errorf("modelstore: activate %s v%d: %w", kind, version, domain.ErrArtifactNotFound)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO active_models (kind, version) VALUES (?, ?)
		 ON CONFLICT(kind) DO UPDATE SET version = excluded.version`,
		string(kind), version)
	if err != nil {
		return fmt.Errorf("modelstore: set active %s v%d: %w", kind, version, err)
	}
	return nil
}

// AddExample logs one labeled training example.
func (s *Store) AddExample(ctx context.Context, ex training.Example) error {
	features, err := json.Marshal(ex.Features)
	if err != nil {
		return fmt.Errorf("modelstore: encode features: %w", err)
	}
	var meta []byte
	if len(ex.Meta) > 0 {
		if meta, err = json.Marshal(ex.Meta); err != nil {
			return fmt.Errorf("modelstore: encode meta: %w", err)
		}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO training_examples (kind, features, label, meta, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		string(ex.Kind), string(features), ex.Label, nullableString(meta),
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("modelstore: insert example: %w", err)
	}
	return nil
}

// ListExamples returns up to limit newest examples for a kind, oldest first
// within the window so training order stays stable.
func (s *Store) ListExamples(ctx context.Context, kind training.Kind, limit int) ([]training.Example, error) {
	if limit <= 0 {
		limit = 5000
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, features, label, meta FROM (
			SELECT id, kind, features, label, meta FROM training_examples
			WHERE kind = ? ORDER BY id DESC LIMIT ?
		 ) ORDER BY id ASC`, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("modelstore: list examples for %s: %w", kind, err)
	}
	defer rows.Close()

	var out []training.Example
	for rows.Next() {
		var k string
		var featuresJSON string
		var label float64
		var meta sql.NullString
		if err := rows.Scan(&k, &featuresJSON, &label, &meta); err != nil {
			return nil, fmt.Errorf("modelstore: scan example: %w", err)
		}
		ex := training.Example{Kind: training.Kind(k), Label: label}
		if err := json.Unmarshal([]byte(featuresJSON), &ex.Features); err != nil {
			return nil, fmt.Errorf("modelstore: decode features: %w", err)
		}
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &ex.Meta); err != nil {
				return nil, fmt.Errorf("modelstore: decode meta: %w", err)
			}
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

// scannable covers *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanArtifact(row scannable) (training.Artifact, error) {
	var a training.Artifact
	var kind, weightsJSON, schemaJSON, metricsJSON, createdAt string
	if err := row.Scan(&kind, &a.Version, &weightsJSON, &schemaJSON, &metricsJSON, &createdAt, &a.CreatedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("modelstore: scan artifact: %w", err)
	}
	a.Kind = training.Kind(kind)
	if err := json.Unmarshal([]byte(weightsJSON), &a.Weights); err != nil {
		return a, fmt.Errorf("modelstore: decode weights: %w", err)
	}
	if err := json.Unmarshal([]byte(schemaJSON), &a.Schema); err != nil {
		return a, fmt.Errorf("modelstore: decode schema: %w", err)
	}
	if err := json.Unmarshal([]byte(metricsJSON), &a.Metrics); err != nil {
		return a, fmt.Errorf("modelstore: decode metrics: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return a, fmt.Errorf("modelstore: parse created_at: %w", err)
	}
	a.CreatedAt = t
	return a, nil
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
