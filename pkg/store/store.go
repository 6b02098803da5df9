// Package store persists bindings, content blobs, and the catcode registry
// in SQLite. Every logical write commits on its own; the cascade delete is
// the one multi-statement transaction.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/coboxhq/abra/pkg/pii"
)

// Sentinel errors surfaced by store operations.
var (
	// ErrPIIRejected marks a governance rejection: the binding's target_ref
	// matched a PII pattern. Non-fatal; callers count it and continue.
	ErrPIIRejected = errors.New("binding rejected: target_ref contains PII")

	// ErrParentNotFound marks a registration under a parent catcode that
	// does not exist.
	ErrParentNotFound = errors.New("parent catcode not found")

	// ErrBadCatcode marks a catcode whose string is not its parent's string
	// plus one 2-character segment.
	ErrBadCatcode = errors.New("malformed catcode")

	// ErrContentNotFound is returned when a content blob id does not exist.
	ErrContentNotFound = errors.New("content not found")
)

// Store provides access to one abra database.
type Store struct {
	db    *sql.DB
	guard pii.Classifier
	log   *slog.Logger

	mu          sync.Mutex
	parentLocks map[string]*sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithGuard replaces the default PII classifier.
func WithGuard(g pii.Classifier) Option {
	return func(s *Store) { s.guard = g }
}

// WithLogger sets the logger used for rejection and housekeeping messages.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open opens (creating if necessary) the database at path.
// Path can be a file path or ":memory:" for tests.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps PRAGMAs effective and serializes writers,
	// which matches the low-concurrency batch-ingestion model.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:          db,
		guard:       pii.NewGuard(),
		log:         slog.Default(),
		parentLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates tables and indexes if they don't exist.
func (s *Store) initSchema() error {
	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS catcode_registry (
		catcode TEXT PRIMARY KEY,
		parent_catcode TEXT REFERENCES catcode_registry(catcode) ON DELETE CASCADE,
		label TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_catcode_prefix ON catcode_registry(catcode);
	CREATE INDEX IF NOT EXISTS idx_catcode_parent ON catcode_registry(parent_catcode);

	CREATE TABLE IF NOT EXISTS content (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_file TEXT,
		content TEXT NOT NULL,
		embedding BLOB,
		note_date TEXT,
		catcode TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_content_note_date ON content(note_date);
	CREATE INDEX IF NOT EXISTS idx_content_catcode ON content(catcode);

	CREATE TABLE IF NOT EXISTS bindings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scope TEXT NOT NULL,
		name TEXT NOT NULL,
		relationship TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_ref TEXT NOT NULL,
		qualifier TEXT,
		permanence TEXT DEFAULT 'CURRENT',
		source_date TEXT,
		catcode TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_bindings_scope_name ON bindings(scope, name);
	CREATE INDEX IF NOT EXISTS idx_bindings_relationship ON bindings(relationship);
	CREATE INDEX IF NOT EXISTS idx_bindings_target ON bindings(target_type, target_ref);
	CREATE INDEX IF NOT EXISTS idx_bindings_source_date ON bindings(source_date);
	CREATE INDEX IF NOT EXISTS idx_bindings_catcode ON bindings(catcode);
	`

	_, err := s.db.Exec(schema)
	return err
}

// parentLock returns the mutex serializing catcode allocation under parent.
func (s *Store) parentLock(parent string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.parentLocks[parent]
	if !ok {
		l = &sync.Mutex{}
		s.parentLocks[parent] = l
	}
	return l
}

// Close releases database resources.
func (s *Store) Close() error {
	return s.db.Close()
}

// CatcodeEntry is a node in the classification namespace.
type CatcodeEntry struct {
	Catcode   string
	Parent    string // empty at tree roots
	Label     string
	CreatedAt time.Time
}

// Content is an immutable stored text blob.
type Content struct {
	ID         int64
	SourceFile string
	Text       string
	NoteDate   string // YYYY-MM-DD, empty when unknown
	Catcode    string
	CreatedAt  time.Time
}

// Binding is a typed subject-relationship-object fact.
type Binding struct {
	ID           int64
	Scope        string
	Name         string
	Relationship string
	TargetType   string
	TargetRef    string
	Qualifier    string
	Permanence   string
	SourceDate   string
	Catcode      string
	CreatedAt    time.Time
}

// NameFact is the projection returned by FindName.
type NameFact struct {
	Name         string
	Relationship string
	TargetRef    string
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// fromNull maps SQL NULL back to the empty string.
func fromNull(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// Relationship vocabulary. The schema does not enforce this enum; new
// relationship kinds may appear without a migration.
const (
	RelIs      = "IS"
	RelHas     = "HAS"
	RelAbout   = "ABOUT"
	RelRelated = "RELATED"
)

// Target type tags describing how to interpret a binding's target_ref.
const (
	TargetText    = "text"
	TargetContent = "content"
	TargetURI     = "uri"
	TargetName    = "name"
)

// Permanence classifies a binding's expected lifespan.
const (
	PermIntrinsic = "INTRINSIC"
	PermCurrent   = "CURRENT"
	PermEphemeral = "EPHEMERAL"
)

// Counts reports row counts per collection, for operator tooling.
type Counts struct {
	Catcodes int64
	Content  int64
	Bindings int64
}

// Count returns row counts for all three collections.
func (s *Store) Count() (Counts, error) {
	var c Counts
	if err := s.db.QueryRow("SELECT COUNT(*) FROM catcode_registry").Scan(&c.Catcodes); err != nil {
		return c, fmt.Errorf("failed to count catcodes: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM content").Scan(&c.Content); err != nil {
		return c, fmt.Errorf("failed to count content: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM bindings").Scan(&c.Bindings); err != nil {
		return c, fmt.Errorf("failed to count bindings: %w", err)
	}
	return c, nil
}
