package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/quasar/internal/adapters/driven/storage/similarity"
	"github.com/custodia-labs/quasar/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/quasar/internal/core/domain"
	"github.com/custodia-labs/quasar/internal/core/ports/driven"
)

// dbFile is the database file name inside the data directory.
const dbFile = "index.db"

// index_state rows.
const (
	fingerprintKey = "fingerprint"
	modelNameKey   = "embedding_model"
	modelDimsKey   = "embedding_dimensions"
)

// metadataKeyPattern restricts filter keys to plain identifiers before they
// are turned into JSON paths.
var metadataKeyPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Store is a SQLite database exposing the index and fingerprint stores
// through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// DefaultDataDir returns ~/.quasar/data.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".quasar", "data"), nil
}

// NewStore opens (creating if needed) the store in dataDir.
// If dataDir is empty, defaults to ~/.quasar/data/index.db.
// Open and migration failures wrap domain.ErrIndexUnavailable.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return nil, err
		}
		dataDir = dir
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %v: %w", err, domain.ErrIndexUnavailable)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %v: %w", err, domain.ErrIndexUnavailable)
	}

	return s, nil
}

// Reset deletes the database files in dataDir. The store must be closed.
func Reset(dataDir string) error {
	if dataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return err
		}
		dataDir = dir
	}
	base := filepath.Join(dataDir, dbFile)
	for _, p := range []string{base, base + "-wal", base + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", p, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// IndexStore returns an IndexStore interface backed by this store.
// Closing it does not close the database; call Store.Close.
func (s *Store) IndexStore() driven.IndexStore {
	return &indexStore{store: s}
}

// FingerprintStore returns a FingerprintStore interface backed by this store.
func (s *Store) FingerprintStore() driven.FingerprintStore {
	return &fingerprintStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Index Store ====================

// indexStore implements driven.IndexStore.
type indexStore struct {
	store *Store
}

var _ driven.IndexStore = (*indexStore)(nil)

// rowQuerier is satisfied by *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// AddBatch upserts documents in one transaction.
func (s *indexStore) AddBatch(ctx context.Context, docs []domain.Document) (int, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	dims, err := storedDimensions(ctx, tx)
	if err != nil {
		return 0, err
	}
	if err := insertDocuments(ctx, tx, docs, dims); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing batch: %w", err)
	}
	return len(docs), nil
}

// Replace clears the table and inserts docs in one transaction.
func (s *indexStore) Replace(ctx context.Context, docs []domain.Document) (int, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return 0, fmt.Errorf("clearing documents: %w", err)
	}
	if err := insertDocuments(ctx, tx, docs, 0); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing replace: %w", err)
	}
	return len(docs), nil
}

func insertDocuments(ctx context.Context, tx *sql.Tx, docs []domain.Document, dims int) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, dataset_id, row_index, content, embedding, dimensions, metadata, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			dataset_id = excluded.dataset_id,
			row_index = excluded.row_index,
			content = excluded.content,
			embedding = excluded.embedding,
			dimensions = excluded.dimensions,
			metadata = excluded.metadata,
			indexed_at = excluded.indexed_at
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range docs {
		doc := &docs[i]
		if err := similarity.CheckDimensions(dims, len(doc.Embedding)); err != nil {
			return fmt.Errorf("document %s: %w", doc.ID, err)
		}
		dims = len(doc.Embedding)

		metaJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata: %w", err)
		}
		if doc.Metadata == nil {
			metaJSON = []byte("{}")
		}

		_, err = stmt.ExecContext(ctx,
			doc.ID, doc.DatasetID, doc.RowIndex, doc.Text,
			float32SliceToBytes(doc.Embedding), len(doc.Embedding), string(metaJSON), now,
		)
		if err != nil {
			return fmt.Errorf("inserting document %s: %w", doc.ID, err)
		}
	}
	return nil
}

// storedDimensions returns the vector size already in the table, or 0 when empty.
func storedDimensions(ctx context.Context, q rowQuerier) (int, error) {
	var dims int
	err := q.QueryRowContext(ctx, "SELECT dimensions FROM documents LIMIT 1").Scan(&dims)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading dimensions: %v: %w", err, domain.ErrIndexUnavailable)
	}
	return dims, nil
}

// Query scans documents matching filters and ranks them by cosine similarity.
// A stored vector of a different size fails the query with ErrDimensionMismatch.
func (s *indexStore) Query(
	ctx context.Context, vector []float32, topK int, filters map[string]string,
) ([]domain.ScoredDocument, error) {
	ranker, err := similarity.NewRanker(vector, topK)
	if err != nil {
		return nil, err
	}

	query := "SELECT id, dataset_id, row_index, content, embedding, metadata FROM documents"
	var (
		clauses []string
		args    []any
	)
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !metadataKeyPattern.MatchString(k) {
			return nil, fmt.Errorf("filter key %q: %w", k, domain.ErrInvalidArgument)
		}
		clauses = append(clauses, "json_extract(metadata, ?) = ?")
		args = append(args, "$."+k, filters[k])
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %v: %w", err, domain.ErrIndexUnavailable)
	}
	defer rows.Close()

	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		if err := ranker.Offer(*doc); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %v: %w", err, domain.ErrIndexUnavailable)
	}
	return ranker.Results(), nil
}

// Clear removes every document.
func (s *indexStore) Clear(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}
	return nil
}

// Size returns the number of documents.
func (s *indexStore) Size(ctx context.Context) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %v: %w", err, domain.ErrIndexUnavailable)
	}
	return n, nil
}

// Close is a no-op; the owning Store closes the database.
func (s *indexStore) Close() error {
	return nil
}

// ==================== Fingerprint Store ====================

// fingerprintStore implements driven.FingerprintStore on the index_state table.
type fingerprintStore struct {
	store *Store
}

var _ driven.FingerprintStore = (*fingerprintStore)(nil)

// LoadFingerprint returns the recorded digest, or "" when none exists.
func (s *fingerprintStore) LoadFingerprint(ctx context.Context) (domain.Fingerprint, error) {
	values, err := s.load(ctx, fingerprintKey)
	if err != nil {
		return "", fmt.Errorf("loading fingerprint: %w", err)
	}
	return domain.Fingerprint(values[fingerprintKey]), nil
}

// SaveFingerprint records fp.
func (s *fingerprintStore) SaveFingerprint(ctx context.Context, fp domain.Fingerprint) error {
	if err := s.save(ctx, map[string]string{fingerprintKey: fp.String()}); err != nil {
		return fmt.Errorf("saving fingerprint: %w", err)
	}
	return nil
}

// LoadEmbeddingModel returns the recorded model, or the zero model when none exists.
func (s *fingerprintStore) LoadEmbeddingModel(ctx context.Context) (domain.EmbeddingModel, error) {
	values, err := s.load(ctx, modelNameKey, modelDimsKey)
	if err != nil {
		return domain.EmbeddingModel{}, fmt.Errorf("loading embedding model: %w", err)
	}
	model := domain.EmbeddingModel{Name: values[modelNameKey]}
	if raw := values[modelDimsKey]; raw != "" {
		if model.Dimensions, err = strconv.Atoi(raw); err != nil {
			return domain.EmbeddingModel{}, fmt.Errorf("loading embedding model: dimensions %q: %w", raw, domain.ErrIndexUnavailable)
		}
	}
	return model, nil
}

// SaveEmbeddingModel records model.
func (s *fingerprintStore) SaveEmbeddingModel(ctx context.Context, model domain.EmbeddingModel) error {
	err := s.save(ctx, map[string]string{
		modelNameKey: model.Name,
		modelDimsKey: strconv.Itoa(model.Dimensions),
	})
	if err != nil {
		return fmt.Errorf("saving embedding model: %w", err)
	}
	return nil
}

// load reads the given index_state keys. Missing keys are absent from the result.
func (s *fingerprintStore) load(ctx context.Context, keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		var value string
		err := s.store.db.QueryRowContext(ctx,
			"SELECT value FROM index_state WHERE key = ?", key,
		).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, domain.ErrIndexUnavailable)
		}
		values[key] = value
	}
	return values, nil
}

// save upserts values in one transaction.
func (s *fingerprintStore) save(ctx context.Context, values map[string]string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	now := time.Now().UTC()
	for key, value := range values {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO index_state (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, value, now)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ==================== Helpers ====================

func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

func scanDocument(rows *sql.Rows) (*domain.Document, error) {
	var (
		doc      domain.Document
		blob     []byte
		metaJSON string
	)
	if err := rows.Scan(&doc.ID, &doc.DatasetID, &doc.RowIndex, &doc.Text, &blob, &metaJSON); err != nil {
		return nil, fmt.Errorf("scanning document: %v: %w", err, domain.ErrIndexUnavailable)
	}
	doc.Embedding = bytesToFloat32Slice(blob)
	if err := json.Unmarshal([]byte(metaJSON), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("document %s metadata: %v: %w", doc.ID, err, domain.ErrIndexUnavailable)
	}
	return &doc, nil
}
