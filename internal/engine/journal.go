package engine

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"
)

// Journal provides SQLite-backed resume state for interrupted offloads:
// a re-run of the same source/destination pair skips files already copied
// and verified, matched on relative path, size, and mtime.
type Journal struct {
	db   *sql.DB
	path string

	// Batch buffer for MarkCompleted calls.
	mu      sync.Mutex
	batch   []journalEntry
	done    chan struct{}
	stopped bool
}

type journalEntry struct {
	relPath   string
	size      int64
	mtimeNano int64
}

// OpenJournal opens (or creates) the journal for the given
// source/destination pair. The DB is stored under $XDG_RUNTIME_DIR or
// the system temp directory, keyed by a digest of the pair.
func OpenJournal(src, dst string) (*Journal, error) {
	return openJournalAt(journalPath(journalID(src, dst)), src, dst)
}

func openJournalAt(dbPath, src, dst string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}

	j := &Journal{
		db:   db,
		path: dbPath,
		done: make(chan struct{}),
	}

	if err := j.init(src, dst); err != nil {
		db.Close()
		return nil, err
	}

	go j.flushLoop()

	return j, nil
}

func (j *Journal) init(src, dst string) error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS completed (
			path    TEXT PRIMARY KEY,
			size    INTEGER NOT NULL,
			mtime   INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	// Validate or store src/dst roots: the journal must never be reused
	// for a different transfer pair.
	var storedSrc, storedDst string
	row := j.db.QueryRow("SELECT value FROM meta WHERE key = 'src_root'")
	if err := row.Scan(&storedSrc); err == nil {
		row2 := j.db.QueryRow("SELECT value FROM meta WHERE key = 'dst_root'")
		if err := row2.Scan(&storedDst); err == nil {
			if storedSrc != src || storedDst != dst {
				return fmt.Errorf("journal roots mismatch: stored %s->%s, got %s->%s",
					storedSrc, storedDst, src, dst)
			}
		}
	} else {
		_, err = j.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('src_root', ?), ('dst_root', ?)", src, dst)
		if err != nil {
			return fmt.Errorf("store meta: %w", err)
		}
	}

	return nil
}

// IsCompleted reports whether the file (by relative path, size, and
// mtime) is recorded as already offloaded.
func (j *Journal) IsCompleted(relPath string, size, mtimeNano int64) bool {
	var storedSize, storedMtime int64
	err := j.db.QueryRow(
		"SELECT size, mtime FROM completed WHERE path = ?", relPath,
	).Scan(&storedSize, &storedMtime)
	if err != nil {
		return false
	}
	return storedSize == size && storedMtime == mtimeNano
}

// MarkCompleted records a file as copied and verified. Writes are batched
// and flushed periodically.
func (j *Journal) MarkCompleted(relPath string, size, mtimeNano int64) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.batch = append(j.batch, journalEntry{relPath: relPath, size: size, mtimeNano: mtimeNano})

	if len(j.batch) >= 100 {
		return j.flushLocked()
	}
	return nil
}

// Flush writes any pending batch entries to the database.
func (j *Journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.flushLocked()
}

func (j *Journal) flushLocked() error {
	if len(j.batch) == 0 {
		return nil
	}

	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO completed (path, size, mtime) VALUES (?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range j.batch {
		if _, err := stmt.Exec(e.relPath, e.size, e.mtimeNano); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s: %w", e.relPath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	j.batch = j.batch[:0]
	return nil
}

func (j *Journal) flushLoop() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.mu.Lock()
			_ = j.flushLocked()
			j.mu.Unlock()
		}
	}
}

// Close flushes any pending writes and closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	if !j.stopped {
		j.stopped = true
		close(j.done)
	}
	_ = j.flushLocked()
	j.mu.Unlock()
	return j.db.Close()
}

// Remove deletes the journal database file.
func (j *Journal) Remove() error {
	return os.Remove(j.path)
}

// Path returns the journal database file path.
func (j *Journal) Path() string {
	return j.path
}

func journalID(src, dst string) string {
	h := blake3.New()
	h.Write([]byte(src))
	h.Write([]byte{0})
	h.Write([]byte(dst))
	digest := h.Sum(nil)
	return hex.EncodeToString(digest[:8])
}

func journalPath(id string) string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "offload", id+".db")
	}
	return filepath.Join(os.TempDir(), "offload-"+id+".db")
}
