package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // sqlite driver
)

// Schema for the scan_cache table, applied on open.
const schema = `
CREATE TABLE IF NOT EXISTS scan_cache (
	source_id TEXT NOT NULL,
	path      TEXT NOT NULL,
	signature TEXT NOT NULL,
	chart     INTEGER,
	last_seen TEXT NOT NULL,
	PRIMARY KEY (source_id, path)
);
`

// SQLite is the persistent store. Rows for a source are loaded into
// memory the first time that source is touched, so a scan does one
// SELECT up front instead of one per directory entry. Writes are
// buffered per namespace and persisted by Flush in a single transaction.
type SQLite struct {
	db *sql.DB

	mu         sync.RWMutex // guards the namespace map only
	namespaces map[string]*namespace
}

// namespace holds one source's cached entries. Each namespace has its
// own lock so concurrent scans of different sources never serialize.
type namespace struct {
	mu      sync.Mutex
	entries map[string]Entry
	dirty   map[string]Entry
}

// OpenSQLite opens (creating if necessary) the cache database at path.
// The caller decides what to do on error; the intended reaction is to
// fall back to [Noop] and proceed with a full scan.
func OpenSQLite(path string) (*SQLite, error) {
	dirErr := os.MkdirAll(filepath.Dir(path), 0o755)
	if dirErr != nil {
		return nil, fmt.Errorf("creating cache dir: %w", dirErr)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	pragmaErr := applyPragmas(db)
	if pragmaErr != nil {
		_ = db.Close()

		return nil, pragmaErr
	}

	_, schemaErr := db.Exec(schema)
	if schemaErr != nil {
		_ = db.Close()

		return nil, fmt.Errorf("apply cache schema: %w", schemaErr)
	}

	return &SQLite{
		db:         db,
		namespaces: make(map[string]*namespace),
	}, nil
}

func applyPragmas(db *sql.DB) error {
	statements := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, stmt := range statements {
		_, err := db.Exec(stmt)
		if err != nil {
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}

	return nil
}

// Get returns the cached entry for path within the source's namespace.
func (s *SQLite) Get(sourceID, path string) (Entry, bool) {
	ns := s.namespace(sourceID)

	ns.mu.Lock()
	defer ns.mu.Unlock()

	e, ok := ns.entries[path]

	return e, ok
}

// Put buffers the entry for path within the source's namespace.
func (s *SQLite) Put(sourceID, path string, e Entry) {
	ns := s.namespace(sourceID)

	ns.mu.Lock()
	defer ns.mu.Unlock()

	ns.entries[path] = e
	ns.dirty[path] = e
}

// namespace returns the namespace for sourceID, loading its rows from
// the database on first use. A load failure is treated as an empty
// namespace: the scan just runs uncached.
func (s *SQLite) namespace(sourceID string) *namespace {
	s.mu.RLock()
	ns, ok := s.namespaces[sourceID]
	s.mu.RUnlock()

	if ok {
		return ns
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ns, ok = s.namespaces[sourceID]; ok {
		return ns
	}

	ns = &namespace{
		entries: s.loadEntries(sourceID),
		dirty:   make(map[string]Entry),
	}
	s.namespaces[sourceID] = ns

	return ns
}

func (s *SQLite) loadEntries(sourceID string) map[string]Entry {
	entries := make(map[string]Entry)

	rows, err := s.db.Query(
		`SELECT path, signature, chart FROM scan_cache WHERE source_id = ?`, sourceID)
	if err != nil {
		return entries
	}

	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			path, sig string
			chart     sql.NullInt64
		)

		scanErr := rows.Scan(&path, &sig, &chart)
		if scanErr != nil {
			continue
		}

		entries[path] = Entry{
			Signature: sig,
			Chart:     int(chart.Int64),
			HasChart:  chart.Valid,
		}
	}

	return entries
}

// Flush writes all buffered entries in one transaction.
func (s *SQLite) Flush() error {
	s.mu.RLock()
	names := make([]string, 0, len(s.namespaces))

	for name := range s.namespaces {
		names = append(names, name)
	}
	s.mu.RUnlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin cache flush: %w", err)
	}

	stmt, prepErr := tx.Prepare(`
		INSERT INTO scan_cache (source_id, path, signature, chart, last_seen)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (source_id, path) DO UPDATE SET
			signature = excluded.signature,
			chart = excluded.chart,
			last_seen = excluded.last_seen`)
	if prepErr != nil {
		_ = tx.Rollback()

		return fmt.Errorf("prepare cache flush: %w", prepErr)
	}

	now := time.Now().UTC().Format(time.RFC3339)

	for _, name := range names {
		execErr := s.flushNamespace(stmt, name, now)
		if execErr != nil {
			_ = stmt.Close()
			_ = tx.Rollback()

			return execErr
		}
	}

	_ = stmt.Close()

	commitErr := tx.Commit()
	if commitErr != nil {
		return fmt.Errorf("commit cache flush: %w", commitErr)
	}

	return nil
}

func (s *SQLite) flushNamespace(stmt *sql.Stmt, sourceID, now string) error {
	s.mu.RLock()
	ns := s.namespaces[sourceID]
	s.mu.RUnlock()

	ns.mu.Lock()
	defer ns.mu.Unlock()

	for path, e := range ns.dirty {
		chart := sql.NullInt64{Int64: int64(e.Chart), Valid: e.HasChart}

		_, err := stmt.Exec(sourceID, path, e.Signature, chart, now)
		if err != nil {
			return fmt.Errorf("flush cache entry %s: %w", path, err)
		}
	}

	ns.dirty = make(map[string]Entry)

	return nil
}

// Close flushes buffered entries and closes the database.
func (s *SQLite) Close() error {
	flushErr := s.Flush()

	closeErr := s.db.Close()
	if flushErr != nil {
		return flushErr
	}

	return closeErr
}

// NamespaceStat summarizes one source's cached entries, for the cache
// maintenance command.
type NamespaceStat struct {
	SourceID string
	Entries  int
	LastSeen string
}

// Stats returns per-source entry counts from the database.
func (s *SQLite) Stats() ([]NamespaceStat, error) {
	rows, err := s.db.Query(`
		SELECT source_id, COUNT(*), MAX(last_seen)
		FROM scan_cache GROUP BY source_id ORDER BY source_id`)
	if err != nil {
		return nil, fmt.Errorf("query cache stats: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var stats []NamespaceStat

	for rows.Next() {
		var st NamespaceStat

		scanErr := rows.Scan(&st.SourceID, &st.Entries, &st.LastSeen)
		if scanErr != nil {
			return nil, fmt.Errorf("scan cache stats: %w", scanErr)
		}

		stats = append(stats, st)
	}

	return stats, rows.Err()
}

// Clear removes all entries for sourceID, or every entry when sourceID
// is empty.
func (s *SQLite) Clear(sourceID string) error {
	var err error

	if sourceID == "" {
		_, err = s.db.Exec(`DELETE FROM scan_cache`)
	} else {
		_, err = s.db.Exec(`DELETE FROM scan_cache WHERE source_id = ?`, sourceID)
	}

	if err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sourceID == "" {
		s.namespaces = make(map[string]*namespace)
	} else {
		delete(s.namespaces, sourceID)
	}

	return nil
}
