package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/xaenox/jarvis/internal/models"
)

// timeLayout is a fixed-width RFC3339 form so that stored timestamps sort
// lexicographically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	messages TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	tags TEXT NOT NULL,
	category TEXT NOT NULL,
	metadata TEXT
);
CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at);
CREATE INDEX IF NOT EXISTS idx_conversations_created ON conversations(created_at);
CREATE INDEX IF NOT EXISTS idx_conversations_category ON conversations(category);

CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	category TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	tags TEXT NOT NULL,
	searchable_content TEXT NOT NULL,
	relevance_score REAL NOT NULL DEFAULT 1.0,
	metadata TEXT
);
CREATE INDEX IF NOT EXISTS idx_memories_timestamp ON memories(timestamp);
CREATE INDEX IF NOT EXISTS idx_memories_category ON memories(category);

CREATE TABLE IF NOT EXISTS facts (
	id TEXT PRIMARY KEY,
	fact TEXT NOT NULL,
	category TEXT NOT NULL,
	confidence REAL NOT NULL DEFAULT 0,
	source TEXT NOT NULL DEFAULT '',
	timestamp TEXT NOT NULL,
	metadata TEXT
);
CREATE INDEX IF NOT EXISTS idx_facts_timestamp ON facts(timestamp);
CREATE INDEX IF NOT EXISTS idx_facts_category ON facts(category);

CREATE TABLE IF NOT EXISTS stats (
	id TEXT PRIMARY KEY,
	metric_name TEXT NOT NULL,
	value REAL NOT NULL,
	date TEXT NOT NULL,
	metadata TEXT
);
CREATE INDEX IF NOT EXISTS idx_stats_date ON stats(date);
CREATE INDEX IF NOT EXISTS idx_stats_metric ON stats(metric_name);

CREATE TABLE IF NOT EXISTS settings (
	id TEXT PRIMARY KEY,
	key TEXT NOT NULL UNIQUE,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// SQLiteStorage persists all five collections in a single SQLite file under
// the configured data directory.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens (creating on first run) the database at
// dataDir/jarvis.db. Safe to call repeatedly; schema creation is idempotent.
func NewSQLiteStorage(dataDir string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "jarvis.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStorage{db: db, path: dbPath}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	// Record the schema version so a later release can detect an older
	// database and migrate it instead of recreating tables blindly.
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (?, ?)`,
		schemaVersion, time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding json field: %w", err)
	}
	return string(b), nil
}

func encodeMetadata(m map[string]any) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encoding metadata: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeMetadata(ns sql.NullString) (map[string]any, error) {
	if !ns.Valid {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(ns.String), &m); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	return m, nil
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decoding timestamp %q: %w", s, err)
	}
	return t, nil
}

func (s *SQLiteStorage) PutConversation(ctx context.Context, conv *models.Conversation) error {
	messages, err := encodeJSON(conv.Messages)
	if err != nil {
		return err
	}
	tags, err := encodeJSON(conv.Tags)
	if err != nil {
		return err
	}
	metadata, err := encodeMetadata(conv.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, title, messages, created_at, updated_at, tags, category, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			messages = excluded.messages,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			tags = excluded.tags,
			category = excluded.category,
			metadata = excluded.metadata`,
		conv.ID, conv.Title, messages, encodeTime(conv.CreatedAt), encodeTime(conv.UpdatedAt),
		tags, conv.Category, metadata)
	if err != nil {
		return fmt.Errorf("putting conversation %s: %w", conv.ID, err)
	}
	return nil
}

func scanConversation(row interface{ Scan(...any) error }) (*models.Conversation, error) {
	var (
		conv                 models.Conversation
		messages, tags       string
		createdAt, updatedAt string
		metadata             sql.NullString
	)
	err := row.Scan(&conv.ID, &conv.Title, &messages, &createdAt, &updatedAt, &tags, &conv.Category, &metadata)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(messages), &conv.Messages); err != nil {
		return nil, fmt.Errorf("decoding messages for conversation %s: %w", conv.ID, err)
	}
	if err := json.Unmarshal([]byte(tags), &conv.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags for conversation %s: %w", conv.ID, err)
	}
	if conv.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	if conv.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, err
	}
	if conv.Metadata, err = decodeMetadata(metadata); err != nil {
		return nil, err
	}
	return &conv, nil
}

const conversationColumns = "id, title, messages, created_at, updated_at, tags, category, metadata"

func (s *SQLiteStorage) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id)
	conv, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting conversation %s: %w", id, err)
	}
	return conv, nil
}

func (s *SQLiteStorage) queryConversations(ctx context.Context, query string, args ...any) ([]*models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var convs []*models.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

func (s *SQLiteStorage) ListConversations(ctx context.Context) ([]*models.Conversation, error) {
	return s.queryConversations(ctx,
		`SELECT `+conversationColumns+` FROM conversations ORDER BY updated_at DESC`)
}

func (s *SQLiteStorage) ListConversationsByCategory(ctx context.Context, category string) ([]*models.Conversation, error) {
	return s.queryConversations(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE category = ? ORDER BY updated_at DESC`, category)
}

func (s *SQLiteStorage) DeleteConversation(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting conversation %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStorage) ClearConversations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations`); err != nil {
		return fmt.Errorf("clearing conversations: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) PutMemory(ctx context.Context, mem *models.Memory) error {
	tags, err := encodeJSON(mem.Tags)
	if err != nil {
		return err
	}
	metadata, err := encodeMetadata(mem.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memories (id, content, category, timestamp, tags, searchable_content, relevance_score, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			category = excluded.category,
			timestamp = excluded.timestamp,
			tags = excluded.tags,
			searchable_content = excluded.searchable_content,
			relevance_score = excluded.relevance_score,
			metadata = excluded.metadata`,
		mem.ID, mem.Content, mem.Category, encodeTime(mem.Timestamp),
		tags, mem.SearchableContent, mem.RelevanceScore, metadata)
	if err != nil {
		return fmt.Errorf("putting memory %s: %w", mem.ID, err)
	}
	return nil
}

func scanMemory(row interface{ Scan(...any) error }) (*models.Memory, error) {
	var (
		mem       models.Memory
		tags      string
		timestamp string
		metadata  sql.NullString
	)
	err := row.Scan(&mem.ID, &mem.Content, &mem.Category, &timestamp, &tags,
		&mem.SearchableContent, &mem.RelevanceScore, &metadata)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &mem.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags for memory %s: %w", mem.ID, err)
	}
	if mem.Timestamp, err = decodeTime(timestamp); err != nil {
		return nil, err
	}
	if mem.Metadata, err = decodeMetadata(metadata); err != nil {
		return nil, err
	}
	return &mem, nil
}

const memoryColumns = "id, content, category, timestamp, tags, searchable_content, relevance_score, metadata"

func (s *SQLiteStorage) GetMemory(ctx context.Context, id string) (*models.Memory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE id = ?`, id)
	mem, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting memory %s: %w", id, err)
	}
	return mem, nil
}

func (s *SQLiteStorage) queryMemories(ctx context.Context, query string, args ...any) ([]*models.Memory, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying memories: %w", err)
	}
	defer rows.Close()

	var mems []*models.Memory
	for rows.Next() {
		mem, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning memory: %w", err)
		}
		mems = append(mems, mem)
	}
	return mems, rows.Err()
}

func (s *SQLiteStorage) ListMemories(ctx context.Context) ([]*models.Memory, error) {
	return s.queryMemories(ctx,
		`SELECT `+memoryColumns+` FROM memories ORDER BY timestamp DESC`)
}

func (s *SQLiteStorage) ListMemoriesByCategory(ctx context.Context, category string) ([]*models.Memory, error) {
	return s.queryMemories(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE category = ? ORDER BY timestamp DESC`, category)
}

func (s *SQLiteStorage) DeleteMemory(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting memory %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStorage) ClearMemories(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM memories`); err != nil {
		return fmt.Errorf("clearing memories: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) PutFact(ctx context.Context, fact *models.Fact) error {
	metadata, err := encodeMetadata(fact.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO facts (id, fact, category, confidence, source, timestamp, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			fact = excluded.fact,
			category = excluded.category,
			confidence = excluded.confidence,
			source = excluded.source,
			timestamp = excluded.timestamp,
			metadata = excluded.metadata`,
		fact.ID, fact.Fact, fact.Category, fact.Confidence, fact.Source,
		encodeTime(fact.Timestamp), metadata)
	if err != nil {
		return fmt.Errorf("putting fact %s: %w", fact.ID, err)
	}
	return nil
}

func scanFact(row interface{ Scan(...any) error }) (*models.Fact, error) {
	var (
		fact      models.Fact
		timestamp string
		metadata  sql.NullString
	)
	err := row.Scan(&fact.ID, &fact.Fact, &fact.Category, &fact.Confidence,
		&fact.Source, &timestamp, &metadata)
	if err != nil {
		return nil, err
	}
	if fact.Timestamp, err = decodeTime(timestamp); err != nil {
		return nil, err
	}
	if fact.Metadata, err = decodeMetadata(metadata); err != nil {
		return nil, err
	}
	return &fact, nil
}

const factColumns = "id, fact, category, confidence, source, timestamp, metadata"

func (s *SQLiteStorage) GetFact(ctx context.Context, id string) (*models.Fact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+factColumns+` FROM facts WHERE id = ?`, id)
	fact, err := scanFact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting fact %s: %w", id, err)
	}
	return fact, nil
}

func (s *SQLiteStorage) ListFacts(ctx context.Context) ([]*models.Fact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+factColumns+` FROM facts ORDER BY timestamp DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying facts: %w", err)
	}
	defer rows.Close()

	var facts []*models.Fact
	for rows.Next() {
		fact, err := scanFact(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning fact: %w", err)
		}
		facts = append(facts, fact)
	}
	return facts, rows.Err()
}

func (s *SQLiteStorage) DeleteFact(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM facts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting fact %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStorage) ClearFacts(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM facts`); err != nil {
		return fmt.Errorf("clearing facts: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) PutStat(ctx context.Context, stat *models.Stat) error {
	metadata, err := encodeMetadata(stat.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO stats (id, metric_name, value, date, metadata)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			metric_name = excluded.metric_name,
			value = excluded.value,
			date = excluded.date,
			metadata = excluded.metadata`,
		stat.ID, stat.MetricName, stat.Value, stat.Date, metadata)
	if err != nil {
		return fmt.Errorf("putting stat %s: %w", stat.ID, err)
	}
	return nil
}

func scanStat(row interface{ Scan(...any) error }) (*models.Stat, error) {
	var (
		stat     models.Stat
		metadata sql.NullString
	)
	err := row.Scan(&stat.ID, &stat.MetricName, &stat.Value, &stat.Date, &metadata)
	if err != nil {
		return nil, err
	}
	if stat.Metadata, err = decodeMetadata(metadata); err != nil {
		return nil, err
	}
	return &stat, nil
}

func (s *SQLiteStorage) GetStat(ctx context.Context, id string) (*models.Stat, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, metric_name, value, date, metadata FROM stats WHERE id = ?`, id)
	stat, err := scanStat(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting stat %s: %w", id, err)
	}
	return stat, nil
}

func (s *SQLiteStorage) ListStats(ctx context.Context) ([]*models.Stat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, metric_name, value, date, metadata FROM stats ORDER BY date, metric_name`)
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	defer rows.Close()

	var stats []*models.Stat
	for rows.Next() {
		stat, err := scanStat(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning stat: %w", err)
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

func (s *SQLiteStorage) ClearStats(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM stats`); err != nil {
		return fmt.Errorf("clearing stats: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) PutSetting(ctx context.Context, setting *models.Setting) error {
	value, err := encodeJSON(setting.Value)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			key = excluded.key,
			value = excluded.value,
			updated_at = excluded.updated_at`,
		setting.ID, setting.Key, value, encodeTime(setting.UpdatedAt))
	if err != nil {
		return fmt.Errorf("putting setting %s: %w", setting.Key, err)
	}
	return nil
}

func scanSetting(row interface{ Scan(...any) error }) (*models.Setting, error) {
	var (
		setting   models.Setting
		value     string
		updatedAt string
	)
	err := row.Scan(&setting.ID, &setting.Key, &value, &updatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(value), &setting.Value); err != nil {
		return nil, fmt.Errorf("decoding value for setting %s: %w", setting.Key, err)
	}
	if setting.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, err
	}
	return &setting, nil
}

func (s *SQLiteStorage) GetSetting(ctx context.Context, key string) (*models.Setting, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, key, value, updated_at FROM settings WHERE key = ?`, key)
	setting, err := scanSetting(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting setting %s: %w", key, err)
	}
	return setting, nil
}

func (s *SQLiteStorage) ListSettings(ctx context.Context) ([]*models.Setting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("querying settings: %w", err)
	}
	defer rows.Close()

	var settings []*models.Setting
	for rows.Next() {
		setting, err := scanSetting(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		settings = append(settings, setting)
	}
	return settings, rows.Err()
}

func (s *SQLiteStorage) DeleteSetting(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting setting %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) ClearSettings(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings`); err != nil {
		return fmt.Errorf("clearing settings: %w", err)
	}
	return nil
}
