package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/bidscribe/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
)

// Store owns the SQLite connection of the knowledge index.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the knowledge database in dataDir.
// If dataDir is empty, defaults to ~/.bidscribe/data/knowledge.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".bidscribe", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "knowledge.db")

	// WAL lets readers proceed while a batch insert is in flight
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentIndex returns a DocumentIndex backed by this store.
func (s *Store) DocumentIndex() driven.DocumentIndex {
	return &documentIndex{store: s}
}

// migrate runs all pending up migrations and records their versions.
func (s *Store) migrate(fsys fs.FS) error {
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
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_knowledge.up.sql" -> 1
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
		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Document Index ====================

// documentIndex implements driven.DocumentIndex.
type documentIndex struct {
	store *Store
}

var _ driven.DocumentIndex = (*documentIndex)(nil)

// Insert appends rows in one transaction.
func (d *documentIndex) Insert(ctx context.Context, docs []domain.KnowledgeDocument) error {
	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			return fmt.Errorf("row %q has no embedding: %w", doc.SectionTitle, domain.ErrInvalidInput)
		}
	}

	tx, err := d.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO knowledge_documents (doc_id, section_title, summary, title_path, embedding)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		if _, err := stmt.ExecContext(ctx, doc.DocID, doc.SectionTitle, doc.Summary, doc.TitlePath,
			float32SliceToBytes(doc.Embedding)); err != nil {
			return fmt.Errorf("inserting row for %s: %w", doc.DocID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rows: %w", err)
	}
	return nil
}

// DeleteByDocID removes every row of the document.
func (d *documentIndex) DeleteByDocID(ctx context.Context, docID string) error {
	_, err := d.store.db.ExecContext(ctx, "DELETE FROM knowledge_documents WHERE doc_id = ?", docID)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// Get returns the first stored row of the document.
func (d *documentIndex) Get(ctx context.Context, docID string) (*domain.KnowledgeDocument, error) {
	row := d.store.db.QueryRowContext(ctx, `
		SELECT doc_id, section_title, summary, title_path, embedding
		FROM knowledge_documents WHERE doc_id = ? ORDER BY id LIMIT 1
	`, docID)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return doc, nil
}

// Search scores every row that passes the title filter and returns the top k.
// instr is used rather than LIKE so the filter stays case-sensitive and
// treats % and _ literally.
func (d *documentIndex) Search(
	ctx context.Context, query []float32, k int, titleFilter string, allow map[string]bool,
) ([]domain.Reference, error) {
	rows, err := d.store.db.QueryContext(ctx, `
		SELECT doc_id, section_title, summary, title_path, embedding
		FROM knowledge_documents
		WHERE ? = '' OR instr(section_title, ?) > 0
		ORDER BY id
	`, titleFilter, titleFilter)
	if err != nil {
		return nil, fmt.Errorf("querying rows: %w", err)
	}
	defer rows.Close()

	var hits []domain.Reference
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if allow != nil && !allow[doc.DocID] {
			continue
		}
		score := domain.CosineSimilarity(query, doc.Embedding)
		doc.Embedding = nil
		hits = append(hits, domain.Reference{Document: *doc, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return domain.TopReferences(hits, k), nil
}

// Count returns the number of stored rows.
func (d *documentIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM knowledge_documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting rows: %w", err)
	}
	return n, nil
}

// DocIDs returns the distinct document IDs in first-insert order.
func (d *documentIndex) DocIDs(ctx context.Context) ([]string, error) {
	rows, err := d.store.db.QueryContext(ctx, `
		SELECT doc_id FROM knowledge_documents GROUP BY doc_id ORDER BY MIN(id)
	`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning doc_id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Flush checkpoints the write-ahead log into the main database file.
func (d *documentIndex) Flush(ctx context.Context) error {
	if _, err := d.store.db.ExecContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)"); err != nil {
		return fmt.Errorf("checkpointing: %w", err)
	}
	return nil
}

// Clear removes every row.
func (d *documentIndex) Clear(ctx context.Context) error {
	if _, err := d.store.db.ExecContext(ctx, "DELETE FROM knowledge_documents"); err != nil {
		return fmt.Errorf("clearing rows: %w", err)
	}
	return nil
}

// Close is a no-op; the Store owns the connection.
func (d *documentIndex) Close() error {
	return nil
}

// ==================== Helper Functions ====================

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.KnowledgeDocument, error) {
	var doc domain.KnowledgeDocument
	var embedding []byte
	if err := row.Scan(&doc.DocID, &doc.SectionTitle, &doc.Summary, &doc.TitlePath, &embedding); err != nil {
		return nil, err
	}
	doc.Embedding = bytesToFloat32Slice(embedding)
	return &doc, nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
