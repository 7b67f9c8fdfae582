package index

import (
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"os"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

// SidecarSuffix is appended to a library path to form its persistent
// index path.
const SidecarSuffix = ".splindex"

// SidecarPath returns the persistent index path for the given library
// file.
func SidecarPath(libraryPath string) string {
	return libraryPath + SidecarSuffix
}

// SidecarExists reports whether a persistent index sidecar exists next to
// the given library file.
func SidecarExists(libraryPath string) bool {
	st, err := os.Stat(SidecarPath(libraryPath))

	return err == nil && !st.IsDir()
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (
	number   INTEGER PRIMARY KEY,
	position INTEGER NOT NULL,
	offset   INTEGER NOT NULL,
	name     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS entries_name ON entries(name);
CREATE INDEX IF NOT EXISTS entries_position ON entries(position);
CREATE TABLE IF NOT EXISTS cluster_entries (
	number   INTEGER PRIMARY KEY,
	position INTEGER NOT NULL,
	offset   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const fingerprintKey = "source_fingerprint"

// SQLite is a persistent Index stored in a sidecar database next to the
// library file. The sidecar records a fingerprint of the source file so
// readers can detect when it has gone stale.
type SQLite struct {
	db   *sql.DB
	path string

	pending        []Record
	pendingCluster []Record
}

var _ Index = (*SQLite)(nil)

// OpenSQLite opens or creates the sidecar index at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()

		return nil, fmt.Errorf("init index schema: %w", err)
	}

	return &SQLite{db: db, path: path}, nil
}

// Path returns the sidecar file path.
func (s *SQLite) Path() string { return s.path }

// Reset drops all records and metadata, preparing the sidecar for a
// rebuild.
func (s *SQLite) Reset() error {
	_, err := s.db.Exec(`DELETE FROM entries; DELETE FROM cluster_entries; DELETE FROM metadata;`)
	if err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	s.pending = s.pending[:0]
	s.pendingCluster = s.pendingCluster[:0]

	return nil
}

// Fingerprint returns the stored source fingerprint. ok is false when the
// sidecar has never been stamped.
func (s *SQLite) Fingerprint() (fp uint64, ok bool, err error) {
	var raw string
	err = s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, fingerprintKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read index fingerprint: %w", err)
	}
	fp, err = strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("read index fingerprint: %w", err)
	}

	return fp, true, nil
}

// SetFingerprint stamps the sidecar with the source file's fingerprint.
func (s *SQLite) SetFingerprint(fp uint64) error {
	_, err := s.db.Exec(
		`INSERT INTO metadata(key, value) VALUES(?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		fingerprintKey, strconv.FormatUint(fp, 10),
	)
	if err != nil {
		return fmt.Errorf("write index fingerprint: %w", err)
	}

	return nil
}

// Add implements Index.
func (s *SQLite) Add(rec Record) error {
	s.pending = append(s.pending, rec)

	return nil
}

// AddCluster implements Index.
func (s *SQLite) AddCluster(rec Record) error {
	s.pendingCluster = append(s.pendingCluster, rec)

	return nil
}

// Commit implements Index. Buffered records are written in a single
// transaction.
func (s *SQLite) Commit() error {
	if len(s.pending) == 0 && len(s.pendingCluster) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit index: %w", err)
	}
	defer tx.Rollback()

	if len(s.pending) > 0 {
		stmt, err := tx.Prepare(
			`INSERT OR REPLACE INTO entries(number, position, offset, name) VALUES(?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("commit index: %w", err)
		}
		for _, rec := range s.pending {
			if _, err := stmt.Exec(rec.Number, rec.Position, int64(rec.Offset), rec.Name); err != nil {
				stmt.Close()

				return fmt.Errorf("commit index: %w", err)
			}
		}
		stmt.Close()
	}

	if len(s.pendingCluster) > 0 {
		stmt, err := tx.Prepare(
			`INSERT OR REPLACE INTO cluster_entries(number, position, offset) VALUES(?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("commit index: %w", err)
		}
		for _, rec := range s.pendingCluster {
			if _, err := stmt.Exec(rec.Number, rec.Position, int64(rec.Offset)); err != nil {
				stmt.Close()

				return fmt.Errorf("commit index: %w", err)
			}
		}
		stmt.Close()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index: %w", err)
	}
	s.pending = s.pending[:0]
	s.pendingCluster = s.pendingCluster[:0]

	return nil
}

func (s *SQLite) scanSpectrum(row *sql.Row, field string, v any) (Record, error) {
	var rec Record
	var offset int64
	err := row.Scan(&rec.Number, &rec.Position, &offset, &rec.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, lookupErr("spectrum", field, v)
	}
	if err != nil {
		return Record{}, fmt.Errorf("query index: %w", err)
	}
	rec.Offset = uint64(offset)

	return rec, nil
}

func (s *SQLite) scanCluster(row *sql.Row, field string, v any) (Record, error) {
	var rec Record
	var offset int64
	err := row.Scan(&rec.Number, &rec.Position, &offset)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, lookupErr("cluster", field, v)
	}
	if err != nil {
		return Record{}, fmt.Errorf("query index: %w", err)
	}
	rec.Offset = uint64(offset)

	return rec, nil
}

// ByNumber implements Index.
func (s *SQLite) ByNumber(number int64) (Record, error) {
	row := s.db.QueryRow(
		`SELECT number, position, offset, name FROM entries WHERE number = ?`, number)

	return s.scanSpectrum(row, "number", number)
}

// ByName implements Index.
func (s *SQLite) ByName(name string) (Record, error) {
	row := s.db.QueryRow(
		`SELECT number, position, offset, name FROM entries
		 WHERE name = ? ORDER BY position LIMIT 1`, name)

	return s.scanSpectrum(row, "name", name)
}

// ByPosition implements Index.
func (s *SQLite) ByPosition(pos int64) (Record, error) {
	row := s.db.QueryRow(
		`SELECT number, position, offset, name FROM entries WHERE position = ?`, pos)

	return s.scanSpectrum(row, "position", pos)
}

// ClusterByNumber implements Index.
func (s *SQLite) ClusterByNumber(number int64) (Record, error) {
	row := s.db.QueryRow(
		`SELECT number, position, offset FROM cluster_entries WHERE number = ?`, number)

	return s.scanCluster(row, "number", number)
}

// ClusterByPosition implements Index.
func (s *SQLite) ClusterByPosition(pos int64) (Record, error) {
	row := s.db.QueryRow(
		`SELECT number, position, offset FROM cluster_entries WHERE position = ?`, pos)

	return s.scanCluster(row, "position", pos)
}

// Count implements Index.
func (s *SQLite) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("query index: %w", err)
	}

	return n, nil
}

// CountClusters implements Index.
func (s *SQLite) CountClusters() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM cluster_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("query index: %w", err)
	}

	return n, nil
}

// All implements Index.
func (s *SQLite) All() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		rows, err := s.db.Query(
			`SELECT number, position, offset, name FROM entries ORDER BY position`)
		if err != nil {
			yield(Record{}, fmt.Errorf("query index: %w", err))

			return
		}
		defer rows.Close()

		for rows.Next() {
			var rec Record
			var offset int64
			if err := rows.Scan(&rec.Number, &rec.Position, &offset, &rec.Name); err != nil {
				yield(Record{}, fmt.Errorf("query index: %w", err))

				return
			}
			rec.Offset = uint64(offset)
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Record{}, fmt.Errorf("query index: %w", err))
		}
	}
}

// Clusters implements Index.
func (s *SQLite) Clusters() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		rows, err := s.db.Query(
			`SELECT number, position, offset FROM cluster_entries ORDER BY position`)
		if err != nil {
			yield(Record{}, fmt.Errorf("query index: %w", err))

			return
		}
		defer rows.Close()

		for rows.Next() {
			var rec Record
			var offset int64
			if err := rows.Scan(&rec.Number, &rec.Position, &offset); err != nil {
				yield(Record{}, fmt.Errorf("query index: %w", err))

				return
			}
			rec.Offset = uint64(offset)
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Record{}, fmt.Errorf("query index: %w", err))
		}
	}
}

// Close implements Index.
func (s *SQLite) Close() error {
	return s.db.Close()
}
