// Package store persists directives in SQLite and imports them from
// YAML rule files. The schema is a flat table; filtering happens in SQL
// where it is cheap and in Go where JSON columns make SQL awkward.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"dirigent/internal/logging"
	"dirigent/internal/types"
)

// ErrNotFound is returned when a directive ID does not exist.
var ErrNotFound = errors.New("store: directive not found")

const schema = `
CREATE TABLE IF NOT EXISTS directives (
	id            TEXT PRIMARY KEY,
	text          TEXT NOT NULL,
	severity      TEXT NOT NULL,
	topics        TEXT NOT NULL DEFAULT '[]',
	layers        TEXT NOT NULL DEFAULT '[]',
	technologies  TEXT NOT NULL DEFAULT '[]',
	section       TEXT NOT NULL DEFAULT '',
	source_path   TEXT NOT NULL DEFAULT '',
	rationale     TEXT NOT NULL DEFAULT '',
	example       TEXT NOT NULL DEFAULT '',
	anti_pattern  TEXT NOT NULL DEFAULT '',
	authoritative INTEGER NOT NULL DEFAULT 0,
	updated_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_directives_severity ON directives(severity);
CREATE INDEX IF NOT EXISTS idx_directives_source ON directives(source_path);
`

// DirectiveStore is a SQLite-backed directive catalog. Safe for
// concurrent use.
type DirectiveStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	logger *zap.Logger
}

// Open initializes the SQLite database at path, creating the parent
// directory and schema as needed.
func Open(path string) (*DirectiveStore, error) {
	logger := logging.Get(logging.CategoryStore)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// WAL with NORMAL sync keeps writes fast without losing crash
	// recovery.
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logger.Debug("pragma failed", zap.String("pragma", pragma), zap.Error(err))
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	logger.Debug("directive store opened", zap.String("path", path))
	return &DirectiveStore{db: db, dbPath: path, logger: logger}, nil
}

// Close releases the database handle.
func (s *DirectiveStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Upsert inserts or replaces a single directive.
func (s *DirectiveStore) Upsert(ctx context.Context, d types.Directive) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertTx(ctx, s.db, d)
}

// UpsertBatch inserts or replaces directives in one transaction and
// returns how many were written.
func (s *DirectiveStore) UpsertBatch(ctx context.Context, directives []types.Directive) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	for _, d := range directives {
		if err := upsertTx(ctx, tx, d); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	return len(directives), nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertTx(ctx context.Context, db execer, d types.Directive) error {
	if d.ID == "" {
		return errors.New("store: directive ID is required")
	}
	if d.Text == "" {
		return fmt.Errorf("store: directive %s has no text", d.ID)
	}

	topics, err := json.Marshal(emptyIfNil(d.Topics))
	if err != nil {
		return fmt.Errorf("encode topics for %s: %w", d.ID, err)
	}
	layers, err := json.Marshal(layerStrings(d.Layers))
	if err != nil {
		return fmt.Errorf("encode layers for %s: %w", d.ID, err)
	}
	techs, err := json.Marshal(emptyIfNil(d.Technologies))
	if err != nil {
		return fmt.Errorf("encode technologies for %s: %w", d.ID, err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO directives
			(id, text, severity, topics, layers, technologies, section,
			 source_path, rationale, example, anti_pattern, authoritative, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			severity = excluded.severity,
			topics = excluded.topics,
			layers = excluded.layers,
			technologies = excluded.technologies,
			section = excluded.section,
			source_path = excluded.source_path,
			rationale = excluded.rationale,
			example = excluded.example,
			anti_pattern = excluded.anti_pattern,
			authoritative = excluded.authoritative,
			updated_at = excluded.updated_at`,
		d.ID, d.Text, string(d.Severity), string(topics), string(layers),
		string(techs), d.Section, d.SourcePath, d.Rationale, d.Example,
		d.AntiPattern, boolToInt(d.Authoritative), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert directive %s: %w", d.ID, err)
	}
	return nil
}

// Get fetches one directive by ID.
func (s *DirectiveStore) Get(ctx context.Context, id string) (*types.Directive, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectColumns+" FROM directives WHERE id = ?", id)
	d, err := scanDirective(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// All returns every stored directive ordered by ID.
func (s *DirectiveStore) All(ctx context.Context) ([]types.Directive, error) {
	return s.query(ctx, selectColumns+" FROM directives ORDER BY id")
}

// Filter narrows a load. Zero-value fields do not constrain.
type Filter struct {
	// Layer keeps directives tagged with this layer or the wildcard.
	Layer types.LayerTag

	// Topics keeps directives sharing at least one topic.
	Topics []string

	// MinSeverity keeps directives at or above this severity.
	MinSeverity types.Severity
}

// Query loads directives matching the filter, ordered by ID. Severity
// filters in SQL; layer and topic matching happens on the decoded rows
// because those columns hold JSON arrays.
func (s *DirectiveStore) Query(ctx context.Context, f Filter) ([]types.Directive, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	minRank := 0
	if f.MinSeverity != "" {
		minRank = f.MinSeverity.Rank()
	}

	out := make([]types.Directive, 0, len(all))
	for _, d := range all {
		if minRank > 0 && d.Severity.Rank() < minRank {
			continue
		}
		if f.Layer != "" && f.Layer != types.LayerWildcard && !layerMatches(d, f.Layer) {
			continue
		}
		if len(f.Topics) > 0 && !sharesTopic(d, f.Topics) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// Delete removes one directive.
func (s *DirectiveStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM directives WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete directive %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBySource removes every directive imported from a rule file and
// returns the count. Re-imports call this first so removed rules do not
// linger.
func (s *DirectiveStore) DeleteBySource(ctx context.Context, sourcePath string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM directives WHERE source_path = ?", sourcePath)
	if err != nil {
		return 0, fmt.Errorf("delete by source %s: %w", sourcePath, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Count returns the number of stored directives.
func (s *DirectiveStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM directives").Scan(&n); err != nil {
		return 0, fmt.Errorf("count directives: %w", err)
	}
	return n, nil
}

// ImportFile replaces the store's view of one rule file with its
// current contents.
func (s *DirectiveStore) ImportFile(ctx context.Context, path string) (int, error) {
	directives, err := LoadRuleFile(path)
	if err != nil {
		return 0, err
	}
	if _, err := s.DeleteBySource(ctx, path); err != nil {
		return 0, err
	}
	n, err := s.UpsertBatch(ctx, directives)
	if err != nil {
		return 0, err
	}
	s.logger.Info("rule file imported",
		zap.String("path", path),
		zap.Int("directives", n))
	return n, nil
}

// =============================================================================
// ROW PLUMBING
// =============================================================================

const selectColumns = `SELECT id, text, severity, topics, layers, technologies,
	section, source_path, rationale, example, anti_pattern, authoritative`

func (s *DirectiveStore) query(ctx context.Context, q string, args ...any) ([]types.Directive, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query directives: %w", err)
	}
	defer rows.Close()

	var out []types.Directive
	for rows.Next() {
		d, err := scanDirective(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDirective(row scanner) (types.Directive, error) {
	var (
		d                     types.Directive
		severity              string
		topics, layers, techs string
		authoritative         int
	)
	err := row.Scan(&d.ID, &d.Text, &severity, &topics, &layers, &techs,
		&d.Section, &d.SourcePath, &d.Rationale, &d.Example,
		&d.AntiPattern, &authoritative)
	if err != nil {
		return d, err
	}

	d.Severity = types.ParseSeverity(severity)
	d.Authoritative = authoritative != 0
	if err := json.Unmarshal([]byte(topics), &d.Topics); err != nil {
		return d, fmt.Errorf("decode topics for %s: %w", d.ID, err)
	}
	var layerNames []string
	if err := json.Unmarshal([]byte(layers), &layerNames); err != nil {
		return d, fmt.Errorf("decode layers for %s: %w", d.ID, err)
	}
	d.Layers = make([]types.LayerTag, len(layerNames))
	for i, l := range layerNames {
		d.Layers[i] = types.LayerTag(l)
	}
	if err := json.Unmarshal([]byte(techs), &d.Technologies); err != nil {
		return d, fmt.Errorf("decode technologies for %s: %w", d.ID, err)
	}
	return d, nil
}

func layerMatches(d types.Directive, layer types.LayerTag) bool {
	for _, l := range d.Layers {
		if l == layer || l == types.LayerWildcard {
			return true
		}
	}
	return false
}

func sharesTopic(d types.Directive, topics []string) bool {
	for _, want := range topics {
		for _, have := range d.Topics {
			if have == want {
				return true
			}
		}
	}
	return false
}

func emptyIfNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

func layerStrings(layers []types.LayerTag) []string {
	out := make([]string, len(layers))
	for i, l := range layers {
		out[i] = string(l)
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
