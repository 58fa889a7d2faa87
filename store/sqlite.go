package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jalad-shrimali/cdr-insight/cdr"
)

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	status     TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS records (
	batch_id  TEXT    NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	seq       INTEGER NOT NULL,
	caller    TEXT    NOT NULL,
	called    TEXT    NOT NULL,
	imei      TEXT    NOT NULL,
	call_type TEXT    NOT NULL,
	duration  INTEGER NOT NULL,
	ts        TEXT    NOT NULL,
	location  TEXT    NOT NULL,
	latitude  REAL,
	longitude REAL,
	PRIMARY KEY (batch_id, seq)
);
CREATE TABLE IF NOT EXISTS results (
	batch_id   TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	type       TEXT NOT NULL,
	data       BLOB NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (batch_id, type)
);`

// SQLite is a Store backed by a single SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the database at dsn, e.g. "cdr.db" or
// ":memory:".
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn+sep(dsn)+"_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// one connection: sqlite serialises writers anyway and :memory: is per-connection
	db.SetMaxOpenConns(1)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", dsn, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLite{db: db}, nil
}

func sep(dsn string) string {
	if strings.Contains(dsn, "?") {
		return "&"
	}
	return "?"
}

func (s *SQLite) CreateBatch(ctx context.Context, name string) (Batch, error) {
	b := newBatch(name, time.Now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batches (id, name, status, created_at) VALUES (?, ?, ?, ?)`,
		b.ID, b.Name, string(b.Status), b.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Batch{}, fmt.Errorf("create batch: %w", err)
	}
	return b, nil
}

func (s *SQLite) AppendRecords(ctx context.Context, id string, recs []cdr.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status string
	if err := tx.QueryRowContext(ctx, `SELECT status FROM batches WHERE id = ?`, id).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("batch %s: %w", id, ErrNotFound)
		}
		return err
	}
	if Status(status) != StatusPending {
		return fmt.Errorf("batch %s: %w", id, ErrNotPending)
	}

	var next int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq) + 1, 0) FROM records WHERE batch_id = ?`, id).Scan(&next); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (batch_id, seq, caller, called, imei, call_type, duration, ts, location, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range recs {
		if _, err := stmt.ExecContext(ctx, id, next+i, r.CallerNumber, r.CalledNumber, r.IMEI,
			string(r.CallType), r.Duration, r.Timestamp.UTC().Format(time.RFC3339Nano), r.Location,
			nullFloat(r.Latitude), nullFloat(r.Longitude)); err != nil {
			return fmt.Errorf("insert record %d: %w", next+i, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) GetRecords(ctx context.Context, id string) ([]cdr.Record, error) {
	if _, err := s.Batch(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT caller, called, imei, call_type, duration, ts, location, latitude, longitude
		  FROM records
		 WHERE batch_id = ?
		 ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []cdr.Record
	for rows.Next() {
		var (
			r        cdr.Record
			typ, ts  string
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(&r.CallerNumber, &r.CalledNumber, &r.IMEI, &typ, &r.Duration, &ts, &r.Location, &lat, &lng); err != nil {
			return nil, err
		}
		r.CallType = cdr.CallType(typ)
		if r.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("record timestamp %q: %w", ts, err)
		}
		if lat.Valid && lng.Valid {
			r.Latitude, r.Longitude = &lat.Float64, &lng.Float64
		}
		r.UploadID = id
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) PutResult(ctx context.Context, id, typ string, data []byte) error {
	if _, err := s.Batch(ctx, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO results (batch_id, type, data, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (batch_id, type) DO UPDATE SET data = excluded.data, created_at = excluded.created_at`,
		id, typ, data, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLite) GetResult(ctx context.Context, id, typ string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM results WHERE batch_id = ? AND type = ?`, id, typ).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("result %s/%s: %w", id, typ, ErrNotFound)
	}
	return data, err
}

// SetStatus records the batch outcome. A failed batch drops whatever
// records it had.
func (s *SQLite) SetStatus(ctx context.Context, id string, status Status, reason string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE batches SET status = ?, error = ? WHERE id = ?`, string(status), reason, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("batch %s: %w", id, ErrNotFound)
	}
	if status == StatusFailed {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE batch_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE batch_id = ?`, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLite) Batch(ctx context.Context, id string) (Batch, error) {
	var (
		b       Batch
		status  string
		created string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT b.id, b.name, b.status, b.error, b.created_at,
		       (SELECT COUNT(*) FROM records r WHERE r.batch_id = b.id)
		  FROM batches b
		 WHERE b.id = ?`, id).Scan(&b.ID, &b.Name, &status, &b.Error, &created, &b.Records)
	if errors.Is(err, sql.ErrNoRows) {
		return Batch{}, fmt.Errorf("batch %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Batch{}, err
	}
	b.Status = Status(status)
	b.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return b, nil
}

func (s *SQLite) DeleteBatch(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("batch %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
