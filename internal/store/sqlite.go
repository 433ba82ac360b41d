package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/Allreality/my-twin/internal/chunker"
	"github.com/Allreality/my-twin/internal/embedding"
	"github.com/Allreality/my-twin/internal/model"
	"github.com/Allreality/my-twin/internal/working"
)

// SQLiteStore implements MemoryStore, working.Store and emotion.Persister
// on a single SQLite database.
//
// Similarity is computed in Go over every stored chunk embedding. That is
// fine for a single twin's memories (thousands of rows) and keeps the
// driver pure Go.
type SQLiteStore struct {
	db       *sql.DB
	embedder embedding.Embedder
	working  working.Options
	logger   *slog.Logger

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy

	clockMu sync.RWMutex
	clock   func() time.Time
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithEmbedder sets the embedder used for memory content and queries.
func WithEmbedder(e embedding.Embedder) Option {
	return func(s *SQLiteStore) { s.embedder = e }
}

// WithWorkingOptions sets the turn cap and TTL of the durable working memory.
func WithWorkingOptions(o working.Options) Option {
	return func(s *SQLiteStore) { s.working = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *SQLiteStore) { s.logger = l }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.clock = now }
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection: SQLite has a single writer, and the read-modify-write
	// sequences below rely on transactions not interleaving.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{
		db:      db,
		working: working.DefaultOptions(),
		logger:  slog.Default(),
		clock:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.embedder == nil {
		s.embedder = embedding.NewHashEmbedder(0)
	}
	if s.working.MaxTurns <= 0 {
		s.working.MaxTurns = working.DefaultMaxTurns
	}
	if s.working.TTL <= 0 {
		s.working.TTL = working.DefaultTTL
	}
	s.entropy = ulid.Monotonic(rand.New(rand.NewSource(s.now().UnixNano())), 0)

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// SetClock replaces the time source (for tests).
func (s *SQLiteStore) SetClock(now func() time.Time) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.clock = now
}

func (s *SQLiteStore) now() time.Time {
	s.clockMu.RLock()
	defer s.clockMu.RUnlock()
	return s.clock().UTC()
}

func (s *SQLiteStore) newID(t time.Time) string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return "mem_" + ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id                TEXT PRIMARY KEY,
		content           TEXT NOT NULL,
		memory_type       TEXT NOT NULL DEFAULT 'semantic',
		emotional_valence REAL NOT NULL DEFAULT 0,
		importance        REAL NOT NULL DEFAULT 0,
		tags              TEXT,
		people            TEXT,
		created_at        TEXT NOT NULL,
		retrieval_count   INTEGER NOT NULL DEFAULT 0,
		last_accessed_at  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(memory_type);
	CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at DESC);

	CREATE TABLE IF NOT EXISTS memory_chunks (
		memory_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
		seq        INTEGER NOT NULL,
		text       TEXT NOT NULL,
		embedding  TEXT NOT NULL,
		PRIMARY KEY (memory_id, seq)
	);

	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		expires_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS turns (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id     TEXT NOT NULL,
		user_text      TEXT NOT NULL,
		assistant_text TEXT NOT NULL,
		created_at     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, id);

	CREATE TABLE IF NOT EXISTS emotions (
		session_id   TEXT PRIMARY KEY,
		emotion      TEXT NOT NULL,
		intensity    REAL NOT NULL,
		momentum     REAL NOT NULL,
		trigger_text TEXT NOT NULL DEFAULT '',
		last_update  TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Remember stores a memory, embedding each chunk of its content.
func (s *SQLiteStore) Remember(ctx context.Context, p RememberParams) (*model.Memory, error) {
	now := s.now()
	m := model.Memory{
		ID:               s.newID(now),
		Content:          strings.TrimSpace(p.Content),
		Type:             p.Type,
		EmotionalValence: p.EmotionalValence,
		Importance:       p.Importance,
		Tags:             p.Tags,
		AssociatedPeople: p.AssociatedPeople,
		CreatedAt:        now,
	}
	if err := s.insert(ctx, &m, false); err != nil {
		return nil, err
	}
	return &m, nil
}

// insert validates, embeds and writes m. With ignoreExisting a memory whose
// ID is already stored is skipped and reported through ChunkCount == 0.
func (s *SQLiteStore) insert(ctx context.Context, m *model.Memory, ignoreExisting bool) error {
	if m.Content == "" {
		return fmt.Errorf("memory content is required")
	}
	if m.Type == "" {
		m.Type = model.Semantic
	}
	if !model.ValidTypes[m.Type] {
		return fmt.Errorf("invalid memory type %q (valid: episodic, semantic, procedural, emotional, working)", m.Type)
	}
	m.EmotionalValence = model.Clamp(m.EmotionalValence, -1, 1)
	m.Importance = model.Clamp(m.Importance, 0, 1)

	// Embed before opening the transaction so a slow provider never holds the connection.
	chunks := chunker.Chunk(m.Content, chunker.DefaultOptions())
	vectors := make([][]byte, len(chunks))
	for i, c := range chunks {
		vec, err := s.embedder.Embed(ctx, c)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", i, err)
		}
		b, err := json.Marshal(vec)
		if err != nil {
			return fmt.Errorf("marshal embedding: %w", err)
		}
		vectors[i] = b
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	verb := "INSERT"
	if ignoreExisting {
		verb = "INSERT OR IGNORE"
	}
	res, err := tx.ExecContext(ctx, verb+` INTO memories
		(id, content, memory_type, emotional_valence, importance, tags, people, created_at, retrieval_count, last_accessed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Content, string(m.Type), m.EmotionalValence, m.Importance,
		jsonList(m.Tags), jsonList(m.AssociatedPeople), formatTime(m.CreatedAt),
		m.RetrievalCount, formatTimePtr(m.LastAccessedAt))
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		m.ChunkCount = 0
		return nil
	}

	for i, c := range chunks {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO memory_chunks (memory_id, seq, text, embedding) VALUES (?, ?, ?, ?)`,
			m.ID, i, c, string(vectors[i]))
		if err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	m.ChunkCount = len(chunks)

	s.logger.Debug("store: remembered",
		"memory_id", m.ID,
		"memory_type", m.Type,
		"chunks", len(chunks),
		"importance", m.Importance,
	)
	return nil
}

// Get returns a memory by ID without touching its retrieval counters.
// A missing ID yields nil, nil.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Memory, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Forget hard-deletes a memory and its chunks. Reports whether it existed.
func (s *SQLiteStore) Forget(ctx context.Context, id string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_chunks WHERE memory_id = ?`, id); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const memoryColumns = `id, content, memory_type, emotional_valence, importance, tags, people,
	created_at, retrieval_count, last_accessed_at,
	(SELECT COUNT(*) FROM memory_chunks c WHERE c.memory_id = memories.id)`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row scanner) (model.Memory, error) {
	var m model.Memory
	var memType, createdAt string
	var tagsJSON, peopleJSON, lastAccessed sql.NullString

	err := row.Scan(
		&m.ID, &m.Content, &memType, &m.EmotionalValence, &m.Importance,
		&tagsJSON, &peopleJSON, &createdAt, &m.RetrievalCount, &lastAccessed,
		&m.ChunkCount,
	)
	if err != nil {
		return m, err
	}

	m.Type = model.MemoryType(memType)
	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if lastAccessed.Valid {
		t, _ := time.Parse(time.RFC3339Nano, lastAccessed.String)
		m.LastAccessedAt = &t
	}
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &m.Tags)
	}
	if peopleJSON.Valid {
		json.Unmarshal([]byte(peopleJSON.String), &m.AssociatedPeople)
	}
	return m, nil
}

func jsonList(v []string) *string {
	if len(v) == 0 {
		return nil
	}
	b, _ := json.Marshal(v)
	s := string(b)
	return &s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
