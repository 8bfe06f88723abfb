package casestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/trustchain-labs/trustchain/pkg/decision"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists decision records in a SQLite database. The full record
// is stored as a JSON column alongside the queryable key fields, so schema
// migrations never lose decision detail.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps db and ensures the schema exists.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open opens (or creates) the SQLite database at path and returns a store
// bound to it.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return NewSQLiteStore(db)
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) migrate() error {
	query := `
    CREATE TABLE IF NOT EXISTS decisions (
        id TEXT PRIMARY KEY,
        case_id TEXT NOT NULL,
        decision_type TEXT NOT NULL,
        status TEXT NOT NULL,
        audit_digest TEXT,
        created_at DATETIME,
        record JSON NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_decisions_case ON decisions(case_id);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *SQLiteStore) Put(ctx context.Context, rec *decision.Record) error {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}

	query := `INSERT INTO decisions (id, case_id, decision_type, status, audit_digest, created_at, record)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            status = excluded.status,
            audit_digest = excluded.audit_digest,
            record = excluded.record`

	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.CaseID, rec.DecisionType, string(rec.Status), rec.AuditDigest,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano), string(recordJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to store record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*decision.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT record FROM decisions WHERE id = ?`, id)

	var recordJSON string
	if err := row.Scan(&recordJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeRecord(recordJSON)
}

func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]*decision.Record, error) {
	var (
		conds []string
		args  []any
	)
	if f.CaseID != "" {
		conds = append(conds, "case_id = ?")
		args = append(args, f.CaseID)
	}
	if f.DecisionType != "" {
		conds = append(conds, "decision_type = ?")
		args = append(args, f.DecisionType)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}

	query := `SELECT record FROM decisions`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []*decision.Record
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, err
		}
		rec, err := decodeRecord(recordJSON)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func decodeRecord(recordJSON string) (*decision.Record, error) {
	var rec decision.Record
	if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &rec, nil
}
