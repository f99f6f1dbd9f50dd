// Package sqldriver implements the catalog on any database/sql backend.
// The sqlite and postgres packages wrap it with dialect-specific
// connection setup, mirroring how the two backends share one schema.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/catalog"
	"github.com/corpusd/corpusd/pkg/corpus"
)

// Dialect selects placeholder style for the underlying driver.
type Dialect int

const (
	// DialectSQLite uses ? placeholders.
	DialectSQLite Dialect = iota

	// DialectPostgres uses $1, $2, ... placeholders.
	DialectPostgres
)

// Ensure Driver implements catalog.Catalog
var _ catalog.Catalog = (*Driver)(nil)

// Driver is a catalog.Catalog over a *sql.DB.
type Driver struct {
	DB      *sql.DB
	Dialect Dialect
	Logger  *zap.Logger
}

// schema is shared by both dialects: TEXT ids and RFC3339 timestamps
// keep the layout portable.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		revision TEXT NOT NULL,
		title TEXT NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		publication_date TEXT NOT NULL DEFAULT '',
		doc_type TEXT NOT NULL,
		date_added TEXT NOT NULL,
		storage_pointer TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		chunk_count INTEGER NOT NULL,
		ingestion_status TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS chunks (
		document_id TEXT NOT NULL,
		revision TEXT NOT NULL,
		seq INTEGER NOT NULL,
		chunk_text TEXT NOT NULL,
		start_offset INTEGER NOT NULL,
		end_offset INTEGER NOT NULL,
		page INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (document_id, revision, seq)
	)`,
	`CREATE TABLE IF NOT EXISTS ingestions (
		document_id TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		revision TEXT NOT NULL,
		committed INTEGER NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (document_id, content_hash)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_author ON documents(author)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_doc_type ON documents(doc_type)`,
	`CREATE INDEX IF NOT EXISTS idx_ingestions_hash ON ingestions(content_hash)`,
}

// Migrate creates the catalog tables if they do not exist.
func (d *Driver) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating catalog schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders into the dialect's style.
func (d *Driver) rebind(query string) string {
	if d.Dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CommitDocument applies the commit in one transaction: upsert the
// document row, replace any prior revision's chunk rows, and mark the
// ingestion record committed. Writing the row last in the pipeline and
// atomically here is what keeps half-ingested documents invisible.
func (d *Driver) CommitDocument(ctx context.Context, commit catalog.Commit) error {
	doc := commit.Document

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, d.rebind(`
		INSERT INTO documents
			(id, revision, title, author, publication_date, doc_type, date_added,
			 storage_pointer, content_hash, chunk_count, ingestion_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			revision = excluded.revision,
			title = excluded.title,
			author = excluded.author,
			publication_date = excluded.publication_date,
			doc_type = excluded.doc_type,
			storage_pointer = excluded.storage_pointer,
			content_hash = excluded.content_hash,
			chunk_count = excluded.chunk_count,
			ingestion_status = excluded.ingestion_status`),
		doc.ID.String(), doc.Revision.String(), doc.Title, doc.Author,
		doc.PublicationDate, string(doc.DocType),
		doc.DateAdded.UTC().Format(time.RFC3339Nano),
		doc.StoragePointer, doc.ContentHash, doc.ChunkCount,
		string(doc.IngestionStatus),
	)
	if err != nil {
		return fmt.Errorf("upserting document %s: %w", doc.ID, err)
	}

	// Swap out any prior revision's chunks in the same transaction.
	_, err = tx.ExecContext(ctx, d.rebind(
		`DELETE FROM chunks WHERE document_id = ? AND revision <> ?`),
		doc.ID.String(), doc.Revision.String(),
	)
	if err != nil {
		return fmt.Errorf("removing stale chunks for %s: %w", doc.ID, err)
	}

	for _, chunk := range commit.Chunks {
		_, err = tx.ExecContext(ctx, d.rebind(`
			INSERT INTO chunks
				(document_id, revision, seq, chunk_text, start_offset, end_offset, page)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (document_id, revision, seq) DO UPDATE SET
				chunk_text = excluded.chunk_text,
				start_offset = excluded.start_offset,
				end_offset = excluded.end_offset,
				page = excluded.page`),
			chunk.ID.DocumentID.String(), chunk.ID.Revision.String(), chunk.ID.Seq,
			chunk.Text, chunk.Anchor.Start, chunk.Anchor.End, chunk.Anchor.Page,
		)
		if err != nil {
			return fmt.Errorf("inserting chunk %s: %w", chunk.ID, err)
		}
	}

	rec := commit.Record
	committed := 0
	if rec.Committed {
		committed = 1
	}
	_, err = tx.ExecContext(ctx, d.rebind(`
		INSERT INTO ingestions (document_id, content_hash, revision, committed, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (document_id, content_hash) DO UPDATE SET
			revision = excluded.revision,
			committed = excluded.committed,
			updated_at = excluded.updated_at`),
		rec.DocumentID.String(), rec.ContentHash, rec.Revision.String(),
		committed, rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording ingestion for %s: %w", rec.DocumentID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.Logger.Debug("committed document",
		zap.String("id", doc.ID.String()),
		zap.String("revision", doc.Revision.String()),
		zap.Int("chunks", len(commit.Chunks)),
	)

	return nil
}

const documentColumns = `id, revision, title, author, publication_date, doc_type,
	date_added, storage_pointer, content_hash, chunk_count, ingestion_status`

func scanDocument(row interface{ Scan(...any) error }) (corpus.Document, error) {
	var (
		doc                    corpus.Document
		id, revision, docType  string
		dateAdded, ingestState string
	)

	err := row.Scan(&id, &revision, &doc.Title, &doc.Author, &doc.PublicationDate,
		&docType, &dateAdded, &doc.StoragePointer, &doc.ContentHash,
		&doc.ChunkCount, &ingestState)
	if err != nil {
		return corpus.Document{}, err
	}

	if doc.ID, err = uuid.Parse(id); err != nil {
		return corpus.Document{}, fmt.Errorf("parsing document id: %w", err)
	}
	if doc.Revision, err = uuid.Parse(revision); err != nil {
		return corpus.Document{}, fmt.Errorf("parsing document revision: %w", err)
	}
	if doc.DateAdded, err = time.Parse(time.RFC3339Nano, dateAdded); err != nil {
		return corpus.Document{}, fmt.Errorf("parsing date_added: %w", err)
	}

	doc.DocType = corpus.DocType(docType)
	doc.IngestionStatus = corpus.IngestionStatus(ingestState)

	return doc, nil
}

// GetDocument returns the document row for id.
func (d *Driver) GetDocument(ctx context.Context, id uuid.UUID) (corpus.Document, error) {
	row := d.DB.QueryRowContext(ctx,
		d.rebind(`SELECT `+documentColumns+` FROM documents WHERE id = ?`),
		id.String(),
	)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return corpus.Document{}, fmt.Errorf("document %s: %w", id, corpus.ErrNotFound)
	}
	if err != nil {
		return corpus.Document{}, fmt.Errorf("querying document %s: %w", id, err)
	}

	return doc, nil
}

// filterClause builds the WHERE fragment for a metadata filter. Only
// committed (indexed) documents are visible.
func filterClause(filter catalog.Filter) (string, []any) {
	conditions := []string{`ingestion_status = ?`}
	args := []any{string(corpus.StatusIndexed)}

	if filter.Author != "" {
		conditions = append(conditions, `author = ?`)
		args = append(args, filter.Author)
	}
	if filter.DocType != "" {
		conditions = append(conditions, `doc_type = ?`)
		args = append(args, string(filter.DocType))
	}
	if filter.PublishedFrom != "" {
		conditions = append(conditions, `publication_date >= ?`)
		args = append(args, filter.PublishedFrom)
	}
	if filter.PublishedTo != "" {
		// Lexicographic compare: pad a bare year so "2020" matches
		// "2020-12-31".
		to := filter.PublishedTo
		if len(to) == 4 {
			to += "-99"
		}
		conditions = append(conditions, `publication_date <= ? AND publication_date <> ''`)
		args = append(args, to)
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

// ListDocuments returns committed documents matching the filter.
func (d *Driver) ListDocuments(ctx context.Context, filter catalog.Filter, page catalog.Page) ([]corpus.Document, error) {
	where, args := filterClause(filter)

	sortBy := page.SortBy
	if !catalog.SortColumns[sortBy] {
		sortBy = "date_added"
	}
	order := "DESC"
	if strings.EqualFold(page.SortOrder, "asc") {
		order = "ASC"
	}

	limit := page.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + documentColumns + ` FROM documents` + where +
		fmt.Sprintf(` ORDER BY %s %s LIMIT ? OFFSET ?`, sortBy, order)
	args = append(args, limit, page.Offset)

	rows, err := d.DB.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []corpus.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// MatchDocumentIDs resolves a filter to the set of matching document IDs.
func (d *Driver) MatchDocumentIDs(ctx context.Context, filter catalog.Filter) ([]uuid.UUID, error) {
	where, args := filterClause(filter)

	rows, err := d.DB.QueryContext(ctx, d.rebind(`SELECT id FROM documents`+where), args...)
	if err != nil {
		return nil, fmt.Errorf("matching documents: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning document id: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing document id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// UpdateMetadata applies a partial metadata update.
func (d *Driver) UpdateMetadata(ctx context.Context, id uuid.UUID, update catalog.MetadataUpdate) (corpus.Document, error) {
	var sets []string
	var args []any

	if update.Title != nil {
		sets = append(sets, `title = ?`)
		args = append(args, *update.Title)
	}
	if update.Author != nil {
		sets = append(sets, `author = ?`)
		args = append(args, *update.Author)
	}
	if update.PublicationDate != nil {
		sets = append(sets, `publication_date = ?`)
		args = append(args, *update.PublicationDate)
	}

	if len(sets) == 0 {
		return d.GetDocument(ctx, id)
	}

	args = append(args, id.String())
	res, err := d.DB.ExecContext(ctx,
		d.rebind(`UPDATE documents SET `+strings.Join(sets, ", ")+` WHERE id = ?`),
		args...,
	)
	if err != nil {
		return corpus.Document{}, fmt.Errorf("updating document %s: %w", id, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return corpus.Document{}, fmt.Errorf("document %s: %w", id, corpus.ErrNotFound)
	}

	return d.GetDocument(ctx, id)
}

// DeleteDocument removes the document row, chunk rows, and ingestion
// records in one transaction.
func (d *Driver) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, d.rebind(`DELETE FROM documents WHERE id = ?`), id.String())
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, corpus.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, d.rebind(`DELETE FROM chunks WHERE document_id = ?`), id.String()); err != nil {
		return fmt.Errorf("deleting chunks for %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, d.rebind(`DELETE FROM ingestions WHERE document_id = ?`), id.String()); err != nil {
		return fmt.Errorf("deleting ingestion records for %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// GetChunk returns one chunk record by its full ID.
func (d *Driver) GetChunk(ctx context.Context, id corpus.ChunkID) (corpus.Chunk, error) {
	row := d.DB.QueryRowContext(ctx, d.rebind(`
		SELECT chunk_text, start_offset, end_offset, page
		FROM chunks WHERE document_id = ? AND revision = ? AND seq = ?`),
		id.DocumentID.String(), id.Revision.String(), id.Seq,
	)

	chunk := corpus.Chunk{ID: id}
	err := row.Scan(&chunk.Text, &chunk.Anchor.Start, &chunk.Anchor.End, &chunk.Anchor.Page)
	if errors.Is(err, sql.ErrNoRows) {
		return corpus.Chunk{}, fmt.Errorf("chunk %s: %w", id, corpus.ErrNotFound)
	}
	if err != nil {
		return corpus.Chunk{}, fmt.Errorf("querying chunk %s: %w", id, err)
	}

	return chunk, nil
}

// ListChunks returns all chunks of a document revision in sequence order.
func (d *Driver) ListChunks(ctx context.Context, docID, revision uuid.UUID) ([]corpus.Chunk, error) {
	rows, err := d.DB.QueryContext(ctx, d.rebind(`
		SELECT seq, chunk_text, start_offset, end_offset, page
		FROM chunks WHERE document_id = ? AND revision = ?
		ORDER BY seq`),
		docID.String(), revision.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing chunks for %s: %w", docID, err)
	}
	defer rows.Close()

	var chunks []corpus.Chunk
	for rows.Next() {
		chunk := corpus.Chunk{ID: corpus.ChunkID{DocumentID: docID, Revision: revision}}
		if err := rows.Scan(&chunk.ID.Seq, &chunk.Text,
			&chunk.Anchor.Start, &chunk.Anchor.End, &chunk.Anchor.Page); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	return chunks, rows.Err()
}

// LookupIngestion finds a committed ingestion record by content hash.
func (d *Driver) LookupIngestion(ctx context.Context, contentHash string) (catalog.IngestionRecord, error) {
	row := d.DB.QueryRowContext(ctx, d.rebind(`
		SELECT document_id, content_hash, revision, committed, updated_at
		FROM ingestions WHERE content_hash = ? AND committed = 1`),
		contentHash,
	)

	var (
		rec             catalog.IngestionRecord
		docID, revision string
		committed       int
		updatedAt       string
	)
	err := row.Scan(&docID, &rec.ContentHash, &revision, &committed, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.IngestionRecord{}, fmt.Errorf("ingestion of %s: %w", contentHash, corpus.ErrNotFound)
	}
	if err != nil {
		return catalog.IngestionRecord{}, fmt.Errorf("querying ingestion record: %w", err)
	}

	if rec.DocumentID, err = uuid.Parse(docID); err != nil {
		return catalog.IngestionRecord{}, fmt.Errorf("parsing ingestion document id: %w", err)
	}
	if rec.Revision, err = uuid.Parse(revision); err != nil {
		return catalog.IngestionRecord{}, fmt.Errorf("parsing ingestion revision: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return catalog.IngestionRecord{}, fmt.Errorf("parsing ingestion timestamp: %w", err)
	}
	rec.Committed = committed != 0

	return rec, nil
}

// Stats returns corpus-wide counters.
func (d *Driver) Stats(ctx context.Context) (catalog.Stats, error) {
	var stats catalog.Stats

	if err := d.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents`).Scan(&stats.Documents); err != nil {
		return catalog.Stats{}, fmt.Errorf("counting documents: %w", err)
	}

	if err := d.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks`).Scan(&stats.Chunks); err != nil {
		return catalog.Stats{}, fmt.Errorf("counting chunks: %w", err)
	}

	return stats, nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.DB.Close()
}
