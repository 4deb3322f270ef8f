package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/mwantia/dicomweb/backend"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteBackend persists the Study/Series/Instance hierarchy in three tables
// (studies, series, instances) and can optionally hold the binary objects
// in a fourth table (blobs), so a single database file is a complete store.
//
// Upserts are single INSERT ... ON CONFLICT DO UPDATE statements, which keeps
// concurrent writes to the same UID atomic without extra locking.
type SQLiteBackend struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewSQLiteBackend creates a new SQLite-backed store.
// The dbPath can be ":memory:" for an in-memory database or a file path.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if isMemoryPath(dbPath) {
		// Every new connection to ":memory:" opens a separate, empty database
		db.SetMaxOpenConns(1)
	} else {
		// Enable WAL mode for better concurrency
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, err
		}
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, err
		}
	}

	backend := &SQLiteBackend{
		db:   db,
		path: dbPath,
	}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return backend, nil
}

func isMemoryPath(dbPath string) bool {
	return dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory")
}

// initSchema creates the database schema.
func (sb *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS studies (
		study_instance_uid TEXT PRIMARY KEY,
		study_date TEXT NOT NULL DEFAULT '',
		study_time TEXT NOT NULL DEFAULT '',
		study_description TEXT NOT NULL DEFAULT '',
		patient_name TEXT NOT NULL DEFAULT '',
		patient_id TEXT NOT NULL DEFAULT '',
		accession_number TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_studies_patient_id ON studies(patient_id);
	CREATE INDEX IF NOT EXISTS idx_studies_created_at ON studies(created_at);

	CREATE TABLE IF NOT EXISTS series (
		series_instance_uid TEXT PRIMARY KEY,
		study_instance_uid TEXT NOT NULL,
		modality TEXT NOT NULL DEFAULT '',
		series_number INTEGER NOT NULL DEFAULT 0,
		series_description TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_series_study ON series(study_instance_uid);

	CREATE TABLE IF NOT EXISTS instances (
		sop_instance_uid TEXT PRIMARY KEY,
		series_instance_uid TEXT NOT NULL,
		study_instance_uid TEXT NOT NULL,
		instance_number INTEGER NOT NULL DEFAULT 0,
		transfer_syntax_uid TEXT,
		blob_key TEXT NOT NULL,
		blob_size INTEGER NOT NULL DEFAULT 0,
		metadata TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_instances_series ON instances(series_instance_uid);

	CREATE TABLE IF NOT EXISTS blobs (
		key TEXT PRIMARY KEY,
		content BLOB NOT NULL,
		size INTEGER NOT NULL CHECK(size >= 0),
		modify_time INTEGER NOT NULL
	);
	`

	_, err := sb.db.Exec(schema)
	return err
}

// Name returns the identifier name defined for this backend
func (*SQLiteBackend) Name() string {
	return "sqlite"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (sb *SQLiteBackend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	// Verify database connection
	return sb.db.PingContext(ctx)
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (sb *SQLiteBackend) Close(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return sb.db.Close()
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (sb *SQLiteBackend) GetCapabilities() *backend.BackendCapabilities {
	capabilities := []backend.BackendCapability{
		backend.CapabilityMetadata,
		backend.CapabilityObjectStorage,
		backend.CapabilitySearch,
	}
	if !isMemoryPath(sb.path) {
		capabilities = append(capabilities, backend.CapabilityPersistent)
	}

	return &backend.BackendCapabilities{
		Capabilities: capabilities,
		// Blobs are held in memory while being written and read back
		MaxObjectSize: 268435456, // 256 MB
	}
}
