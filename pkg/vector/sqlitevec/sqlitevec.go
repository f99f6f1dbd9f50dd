// Package sqlitevec provides a SQLite-backed vector index using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/corpus"
	"github.com/corpusd/corpusd/pkg/vector"
)

// Ensure Index implements vector.Index
var _ vector.Index = (*Index)(nil)

// Index implements vector.Index using SQLite with sqlite-vec.
type Index struct {
	db         *sql.DB
	dimensions int
	logger     *zap.Logger
}

// Config holds configuration for the sqlite-vec index.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions int

	// Metric must be cosine; vec0 has no dot-product distance.
	Metric string
}

// NewIndex creates a new SQLite vector index backed by sqlite-vec.
func NewIndex(c Config, logger *zap.Logger) (*Index, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if c.Dimensions <= 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}
	if c.Metric != "" && c.Metric != vector.MetricCosine {
		return nil, fmt.Errorf("sqlite-vec index supports only the cosine metric, got %q", c.Metric)
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	// vec0 virtual tables use integer rowids, so chunk IDs map through
	// this table.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			chunk_id TEXT NOT NULL UNIQUE,
			doc_id TEXT NOT NULL,
			revision TEXT NOT NULL,
			seq INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunk mapping table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_vec_chunks_doc ON vec_chunks(doc_id)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunk mapping index: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d] distance_metric=cosine)`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec index initialized",
		zap.String("db_path", c.DBPath),
		zap.Int("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &Index{
		db:         db,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Insert stores entries. Re-inserting an existing chunk replaces its
// vector. The whole batch commits in one transaction.
func (x *Index) Insert(ctx context.Context, entries []vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	for _, e := range entries {
		if len(e.Embedding) != x.dimensions {
			return fmt.Errorf("chunk %s has %d-dimensional vector, index expects %d: %w",
				e.ID, len(e.Embedding), x.dimensions, corpus.ErrDimensionMismatch)
		}
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		blob := serializeFloat32(e.Embedding)

		var rowID int64
		err := tx.QueryRowContext(ctx,
			`SELECT rowid FROM vec_chunks WHERE chunk_id = ?`, e.ID.String(),
		).Scan(&rowID)

		switch {
		case err == nil:
			// vec0 does not support UPDATE; replace via DELETE + INSERT.
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vec_embeddings WHERE rowid = ?`, rowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for chunk %s: %w", e.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				rowID, blob,
			); err != nil {
				return fmt.Errorf("re-inserting embedding for chunk %s: %w", e.ID, err)
			}

		case errors.Is(err, sql.ErrNoRows):
			result, err := tx.ExecContext(ctx,
				`INSERT INTO vec_chunks(chunk_id, doc_id, revision, seq) VALUES (?, ?, ?, ?)`,
				e.ID.String(), e.ID.DocumentID.String(), e.ID.Revision.String(), e.ID.Seq,
			)
			if err != nil {
				return fmt.Errorf("inserting chunk %s: %w", e.ID, err)
			}

			rowID, err = result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for chunk %s: %w", e.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				rowID, blob,
			); err != nil {
				return fmt.Errorf("inserting embedding for chunk %s: %w", e.ID, err)
			}

		default:
			return fmt.Errorf("checking for existing chunk %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	x.logger.Debug("added vectors to sqlite-vec",
		zap.Int("count", len(entries)),
	)

	return nil
}

// deleteWhere removes vectors matching the vec_chunks predicate.
func (x *Index) deleteWhere(ctx context.Context, where string, args ...any) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM vec_embeddings WHERE rowid IN (SELECT rowid FROM vec_chunks WHERE `+where+`)`,
		args...,
	); err != nil {
		return fmt.Errorf("deleting embeddings: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM vec_chunks WHERE `+where, args...,
	); err != nil {
		return fmt.Errorf("deleting chunk mappings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteDocument removes every vector belonging to docID.
func (x *Index) DeleteDocument(ctx context.Context, docID uuid.UUID) error {
	return x.deleteWhere(ctx, `doc_id = ?`, docID.String())
}

// DeleteRevision removes docID's vectors from revisions other than keep.
func (x *Index) DeleteRevision(ctx context.Context, docID uuid.UUID, keep uuid.UUID) error {
	return x.deleteWhere(ctx, `doc_id = ? AND revision <> ?`, docID.String(), keep.String())
}

// Search runs a KNN query via vec0 MATCH, pre-filtered to the
// candidate documents when given.
func (x *Index) Search(ctx context.Context, query []float32, k int, candidates []uuid.UUID) ([]vector.Match, error) {
	if len(query) != x.dimensions {
		return nil, fmt.Errorf("query vector has %d dimensions, index expects %d: %w",
			len(query), x.dimensions, corpus.ErrDimensionMismatch)
	}
	if k <= 0 || (candidates != nil && len(candidates) == 0) {
		return nil, nil
	}

	blob := serializeFloat32(query)

	q := `
		SELECT c.chunk_id, ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_chunks c ON c.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?`
	args := []any{blob, k}

	if candidates != nil {
		// rowid constraints pre-filter the KNN scan instead of
		// truncating its results.
		placeholders := strings.Repeat("?,", len(candidates))
		q += ` AND ve.rowid IN (SELECT rowid FROM vec_chunks WHERE doc_id IN (` +
			placeholders[:len(placeholders)-1] + `))`
		for _, id := range candidates {
			args = append(args, id.String())
		}
	}
	q += ` ORDER BY ve.distance`

	rows, err := x.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var matches []vector.Match
	for rows.Next() {
		var chunkID string
		var distance float64
		if err := rows.Scan(&chunkID, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		id, err := corpus.ParseChunkID(chunkID)
		if err != nil {
			return nil, fmt.Errorf("parsing stored chunk id %q: %w", chunkID, err)
		}

		// Cosine distance is 1 - similarity.
		matches = append(matches, vector.Match{
			ID:    id,
			Score: float32(1.0 - distance),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	x.logger.Debug("queried sqlite-vec",
		zap.Int("results", len(matches)),
	)

	return matches, nil
}

// ListDocument returns the chunk IDs stored for docID.
func (x *Index) ListDocument(ctx context.Context, docID uuid.UUID) ([]corpus.ChunkID, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT chunk_id FROM vec_chunks WHERE doc_id = ?`, docID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var ids []corpus.ChunkID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning chunk id: %w", err)
		}
		id, err := corpus.ParseChunkID(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing stored chunk id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DocumentIDs returns the distinct document IDs with stored vectors.
func (x *Index) DocumentIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := x.db.QueryContext(ctx, `SELECT DISTINCT doc_id FROM vec_chunks`)
	if err != nil {
		return nil, fmt.Errorf("listing document ids: %w", err)
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
			return nil, fmt.Errorf("parsing stored document id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the number of stored vectors.
func (x *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vec_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (x *Index) Close() error {
	return x.db.Close()
}
