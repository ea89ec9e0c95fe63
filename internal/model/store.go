package model

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// Store is the local item cache. Every item that arrives from a fetch,
// an ICS import or a push update is upserted here; the UI and the sort
// resolver read items back by id.
//
// Store is safe for concurrent use. The underlying sql.DB handles
// connection pooling and serialization. Individual operations are
// atomic; read-modify-write sequences require external coordination.
type Store struct {
	db *sql.DB
}

// OpenStore creates a SQLite store at the given path. The database is
// created if it doesn't exist and the schema is applied automatically.
// Use ":memory:" for an ephemeral store in tests.
func OpenStore(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// WAL improves concurrent read performance for file-backed DBs.
	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		item_type TEXT NOT NULL,
		name TEXT NOT NULL,
		slugline TEXT,
		location TEXT,
		start_at DATETIME,
		end_at DATETIME,
		tz TEXT,
		coverages TEXT,
		subjects TEXT,
		version INTEGER NOT NULL DEFAULT 0,
		versioncreated DATETIME NOT NULL,
		fetched_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_items_start ON items(start_at);
	CREATE INDEX IF NOT EXISTS idx_items_versioncreated ON items(versioncreated DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveItems upserts items in a single transaction, keeping the highest
// version on conflict so a stale page can never roll an item back.
// Returns the number of rows written.
func (s *Store) SaveItems(items []Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	// Rollback after commit is a no-op.
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO items (id, item_type, name, slugline, location, start_at, end_at, tz, coverages, subjects, version, versioncreated, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			item_type = excluded.item_type,
			name = excluded.name,
			slugline = excluded.slugline,
			location = excluded.location,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			tz = excluded.tz,
			coverages = excluded.coverages,
			subjects = excluded.subjects,
			version = MAX(version, excluded.version),
			versioncreated = MAX(versioncreated, excluded.versioncreated),
			fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	saved := 0
	for _, it := range items {
		coverages, err := json.Marshal(it.Coverages)
		if err != nil {
			return saved, fmt.Errorf("marshal coverages for %s: %w", it.ID, err)
		}
		subjects, err := json.Marshal(it.Subjects)
		if err != nil {
			return saved, fmt.Errorf("marshal subjects for %s: %w", it.ID, err)
		}

		var start, end any
		if it.HasValidDates() {
			start = it.Dates.Start
			end = it.Dates.End
		}

		if _, err := stmt.Exec(
			it.ID,
			string(it.Type),
			it.Name,
			it.Slugline,
			it.Location,
			start,
			end,
			it.Dates.Tz,
			string(coverages),
			string(subjects),
			it.Version,
			it.VersionCreated,
			now,
		); err != nil {
			return saved, fmt.Errorf("save item %s: %w", it.ID, err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return saved, fmt.Errorf("commit transaction: %w", err)
	}
	return saved, nil
}

// GetItem retrieves a single item by id. Returns nil, nil when the
// item is not cached.
func (s *Store) GetItem(id string) (*Item, error) {
	row := s.db.QueryRow(selectColumns+" FROM items WHERE id = ?", id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// ItemsByID loads the given ids into a lookup map. Ids that are not
// cached are simply absent from the result.
func (s *Store) ItemsByID(ids []string) (map[string]Item, error) {
	byID := make(map[string]Item, len(ids))
	for _, id := range ids {
		it, err := s.GetItem(id)
		if err != nil {
			return nil, err
		}
		if it != nil {
			byID[id] = *it
		}
	}
	return byID, nil
}

// GetItemsBetween retrieves items whose span intersects [from, to],
// ordered by start ascending. Used by the ICS import path to report
// what landed in the cache.
func (s *Store) GetItemsBetween(from, to time.Time) ([]Item, error) {
	rows, err := s.db.Query(selectColumns+`
		FROM items
		WHERE start_at IS NOT NULL AND end_at >= ? AND start_at <= ?
		ORDER BY start_at ASC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return items, nil
}

// ItemCount returns the number of cached items.
func (s *Store) ItemCount() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

const selectColumns = `SELECT id, item_type, name, slugline, location, start_at, end_at, tz, coverages, subjects, version, versioncreated`

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (Item, error) {
	var it Item
	var itemType string
	var start, end sql.NullTime
	var tz, coverages, subjects sql.NullString

	err := row.Scan(
		&it.ID,
		&itemType,
		&it.Name,
		&it.Slugline,
		&it.Location,
		&start,
		&end,
		&tz,
		&coverages,
		&subjects,
		&it.Version,
		&it.VersionCreated,
	)
	if err != nil {
		return Item{}, err
	}

	it.Type = ItemType(itemType)
	if start.Valid {
		it.Dates.Start = start.Time
	}
	if end.Valid {
		it.Dates.End = end.Time
	}
	it.Dates.Tz = tz.String
	if coverages.Valid && coverages.String != "" && coverages.String != "null" {
		if err := json.Unmarshal([]byte(coverages.String), &it.Coverages); err != nil {
			return Item{}, fmt.Errorf("unmarshal coverages for %s: %w", it.ID, err)
		}
	}
	if subjects.Valid && subjects.String != "" && subjects.String != "null" {
		if err := json.Unmarshal([]byte(subjects.String), &it.Subjects); err != nil {
			return Item{}, fmt.Errorf("unmarshal subjects for %s: %w", it.ID, err)
		}
	}
	return it, nil
}
