package db

import (
	"database/sql"
	"fmt"
)

// ModelBlob is one persisted model artifact row. The blob payload is a
// gob+gzip-serialized pipeline owned by the ml package; this layer only
// stores and retrieves it.
type ModelBlob struct {
	ArtifactID string
	Target     string
	ModelKind  string
	Blob       []byte
}

// PutModelBlob replaces the latest model artifact in one transaction:
// readers see either the previous artifact or the new one, never neither.
func (db *DB) PutModelBlob(m *ModelBlob) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin artifact save: %w", err)
	}
	defer tx.Rollback()

	// Single-latest semantics: training overwrites, no version history.
	if _, err := tx.Exec(`DELETE FROM model_artifacts`); err != nil {
		return fmt.Errorf("clear previous artifact: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO model_artifacts (artifact_id, target, model_kind, blob) VALUES (?, ?, ?, ?)`,
		m.ArtifactID, m.Target, m.ModelKind, m.Blob,
	); err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return tx.Commit()
}

// LatestModelBlob returns the most recently stored artifact, or nil when no
// model has been trained yet.
func (db *DB) LatestModelBlob() (*ModelBlob, error) {
	row := db.QueryRow(
		`SELECT artifact_id, target, model_kind, blob FROM model_artifacts
		 ORDER BY created DESC LIMIT 1`)
	var m ModelBlob
	if err := row.Scan(&m.ArtifactID, &m.Target, &m.ModelKind, &m.Blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load artifact: %w", err)
	}
	return &m, nil
}
