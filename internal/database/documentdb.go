package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/pagegrab/internal/model"
)

// FileName is the name of the SQLite file inside the database directory.
const FileName = "pagegrab.db"

// DocumentDB provides SQLite-based storage for documents, fetch failures
// and batch summaries. It is safe for concurrent use.
type DocumentDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures DocumentDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a DocumentDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*DocumentDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ddb := &DocumentDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := ddb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return ddb, nil
}

// Path returns the database file path.
func (ddb *DocumentDB) Path() string {
	return ddb.dbPath
}

// Close closes the database connection.
func (ddb *DocumentDB) Close() error {
	return ddb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (ddb *DocumentDB) createTables() error {
	schema := `
	-- Documents hold the latest fetch of each URL
	CREATE TABLE IF NOT EXISTS documents (
		content_id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		title TEXT NOT NULL,
		text TEXT NOT NULL,
		links TEXT NOT NULL DEFAULT '[]',
		length INTEGER NOT NULL DEFAULT 0,
		content_hash TEXT NOT NULL,
		status_code INTEGER,
		content_type TEXT,
		encoding TEXT,
		final_url TEXT,
		content_length INTEGER DEFAULT -1,
		description TEXT,
		site_name TEXT,
		og_type TEXT,
		image TEXT,
		locale TEXT,
		fetched_at TEXT,
		stored_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_url ON documents(url);
	CREATE INDEX IF NOT EXISTS idx_documents_stored_at ON documents(stored_at);

	-- Failures record every fetch that did not produce a document
	CREATE TABLE IF NOT EXISTS fetch_failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		kind TEXT NOT NULL,
		status_code INTEGER DEFAULT 0,
		retry_after TEXT,
		message TEXT,
		batch_id TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_failures_url ON fetch_failures(url);
	CREATE INDEX IF NOT EXISTS idx_failures_batch ON fetch_failures(batch_id);

	-- Batches summarize each batch run
	CREATE TABLE IF NOT EXISTS batches (
		batch_id TEXT PRIMARY KEY,
		requested INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		total_length INTEGER NOT NULL DEFAULT 0,
		failures_by_kind TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_batches_started_at ON batches(started_at);
	`

	_, err := ddb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveDocument inserts or replaces the stored copy of a document.
// Documents share a row when they share a content ID, so a refetch of the
// same URL overwrites the previous content.
func (ddb *DocumentDB) SaveDocument(ctx context.Context, doc *model.ScrapedDocument) error {
	links := doc.Links
	if links == nil {
		links = []string{}
	}
	linksJSON, err := json.Marshal(links)
	if err != nil {
		return fmt.Errorf("failed to serialize links: %w", err)
	}

	query := `
	INSERT INTO documents (content_id, url, title, text, links, length, content_hash,
		status_code, content_type, encoding, final_url, content_length,
		description, site_name, og_type, image, locale, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(content_id) DO UPDATE SET
		url = excluded.url,
		title = excluded.title,
		text = excluded.text,
		links = excluded.links,
		length = excluded.length,
		content_hash = excluded.content_hash,
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		encoding = excluded.encoding,
		final_url = excluded.final_url,
		content_length = excluded.content_length,
		description = excluded.description,
		site_name = excluded.site_name,
		og_type = excluded.og_type,
		image = excluded.image,
		locale = excluded.locale,
		fetched_at = excluded.fetched_at,
		stored_at = CURRENT_TIMESTAMP
	`

	_, err = ddb.db.ExecContext(ctx, query,
		doc.ID,
		doc.URL,
		doc.Title,
		doc.Text,
		string(linksJSON),
		doc.Length,
		doc.ContentHash,
		doc.Metadata.StatusCode,
		doc.Metadata.ContentType,
		doc.Metadata.Encoding,
		doc.Metadata.FinalURL,
		doc.Metadata.ContentLength,
		doc.Meta.Description,
		doc.Meta.SiteName,
		doc.Meta.Type,
		doc.Meta.Image,
		doc.Meta.Locale,
		formatTimestamp(doc.Metadata.FetchedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	return nil
}

const documentColumns = `content_id, url, title, text, links, length, content_hash,
	status_code, content_type, encoding, final_url, content_length,
	description, site_name, og_type, image, locale, fetched_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.ScrapedDocument, error) {
	var (
		doc       model.ScrapedDocument
		linksJSON string
		fetchedAt sql.NullString
		optional  [8]sql.NullString
	)

	err := row.Scan(
		&doc.ID,
		&doc.URL,
		&doc.Title,
		&doc.Text,
		&linksJSON,
		&doc.Length,
		&doc.ContentHash,
		&doc.Metadata.StatusCode,
		&optional[0],
		&optional[1],
		&optional[2],
		&doc.Metadata.ContentLength,
		&optional[3],
		&optional[4],
		&optional[5],
		&optional[6],
		&optional[7],
		&fetchedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.Metadata.ContentType = optional[0].String
	doc.Metadata.Encoding = optional[1].String
	doc.Metadata.FinalURL = optional[2].String
	doc.Meta = model.PageMeta{
		Description: optional[3].String,
		SiteName:    optional[4].String,
		Type:        optional[5].String,
		Image:       optional[6].String,
		Locale:      optional[7].String,
	}
	doc.Metadata.FetchedAt = parseTimestamp(fetchedAt.String)

	if err := json.Unmarshal([]byte(linksJSON), &doc.Links); err != nil {
		return nil, fmt.Errorf("failed to parse links: %w", err)
	}
	if doc.Links == nil {
		doc.Links = []string{}
	}

	return &doc, nil
}

// GetDocument retrieves a document by content ID.
// It returns nil, nil when no document is stored under id.
func (ddb *DocumentDB) GetDocument(ctx context.Context, id string) (*model.ScrapedDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE content_id = ?`

	doc, err := scanDocument(ddb.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// GetDocumentByURL retrieves the document fetched from url.
// It returns nil, nil when url has never been stored.
func (ddb *DocumentDB) GetDocumentByURL(ctx context.Context, url string) (*model.ScrapedDocument, error) {
	return ddb.GetDocument(ctx, model.ContentID(url))
}

// ContentHash returns the stored content hash for id, or "" when the
// document is unknown.
func (ddb *DocumentDB) ContentHash(ctx context.Context, id string) (string, error) {
	var hash string
	err := ddb.db.QueryRowContext(ctx, `SELECT content_hash FROM documents WHERE content_id = ?`, id).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get content hash: %w", err)
	}
	return hash, nil
}

// ListDocuments returns the most recently stored documents, newest first.
// A limit of zero or less returns every document.
func (ddb *DocumentDB) ListDocuments(ctx context.Context, limit int) ([]*model.ScrapedDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY stored_at DESC, url`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := ddb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*model.ScrapedDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// CountDocuments returns the number of stored documents.
func (ddb *DocumentDB) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := ddb.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// HasRecentFetch checks if url was stored within the specified duration.
func (ddb *DocumentDB) HasRecentFetch(ctx context.Context, url string, duration time.Duration) (bool, error) {
	query := `
	SELECT COUNT(*) FROM documents
	WHERE content_id = ? AND stored_at > datetime('now', ?)
	`

	// SQLite datetime modifier format
	modifier := fmt.Sprintf("-%d seconds", int(duration.Seconds()))

	var count int
	err := ddb.db.QueryRowContext(ctx, query, model.ContentID(url), modifier).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check recent fetch: %w", err)
	}

	return count > 0, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// storedTimeFormat has a fixed width so stored timestamps sort as text.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z"

// formatTimestamp stores times in UTC. The zero time is stored as an
// empty string.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(storedTimeFormat)
}
