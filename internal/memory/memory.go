// Package memory implements the Memory Store (C6) from spec.md §4.6: a
// single-table embedded relational store with application-level cosine
// similarity search, grounded on kadirpekel-hector's
// pkg/memory/session_service_sql.go for the database/sql + go-sqlite3
// schema/migration idiom (its own pkg/memory/vector_memory.go instead
// delegates similarity search to an external vector database, which
// spec.md explicitly does not call for).
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/forgeloop/agentcore/internal/llmclient"
)

// DefaultMinSimilarity is the floor a cosine score must clear to be
// returned from Search, per spec.md §4.6.
const DefaultMinSimilarity = 0.7

const candidatePoolSize = 50

const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	type TEXT NOT NULL,
	metadata TEXT,
	embedding TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(type);
`

// Embedder is the subset of the completion client Store needs to compute
// embeddings for new records and queries.
type Embedder interface {
	Embeddings(ctx context.Context, req llmclient.EmbeddingRequest) (*llmclient.EmbeddingResponse, error)
}

// Reranker is the subset of the completion client Store needs to reorder
// search candidates.
type Reranker interface {
	Rerank(ctx context.Context, req llmclient.RerankRequest) (*llmclient.RerankResponse, error)
}

// Memory is one stored record.
type Memory struct {
	ID        string
	Content   string
	Type      string
	Metadata  map[string]any
	Embedding []float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SearchResult pairs a Memory with its similarity/rerank score.
type SearchResult struct {
	Memory     Memory
	Similarity float64
}

// Store is the embedded-database-backed memory store.
type Store struct {
	db       *sql.DB
	embedder Embedder
	reranker Reranker
	logger   *slog.Logger
	model    string
}

// Open creates or attaches to the SQLite file at path, creating the
// memories table on first use, per spec.md §4.6.
func Open(path string, embedder Embedder, reranker Reranker, model string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("memory: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("memory: init schema: %w", err)
	}
	return &Store{db: db, embedder: embedder, reranker: reranker, model: model, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Remember embeds content and inserts a new Memory. An embedding failure
// is logged and the record is persisted with an empty vector rather than
// failing the call, per spec.md §4.6.
func (s *Store) Remember(ctx context.Context, content, memType string, metadata map[string]any) (Memory, error) {
	embedding, err := s.embed(ctx, content)
	if err != nil {
		s.logger.Warn("memory: embedding failed, storing with empty vector", "error", err)
		embedding = nil
	}

	m := Memory{
		ID:        uuid.NewString(),
		Content:   content,
		Type:      memType,
		Metadata:  metadata,
		Embedding: embedding,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return Memory{}, fmt.Errorf("memory: marshal metadata: %w", err)
	}
	embJSON, err := json.Marshal(embedding)
	if err != nil {
		return Memory{}, fmt.Errorf("memory: marshal embedding: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memories (id, content, type, metadata, embedding, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Content, m.Type, string(metaJSON), string(embJSON), m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return Memory{}, fmt.Errorf("memory: insert: %w", err)
	}
	return m, nil
}

// Get returns the memory with id, or an error if absent.
func (s *Store) Get(ctx context.Context, id string) (Memory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, content, type, metadata, embedding, created_at, updated_at FROM memories WHERE id = ?`, id)
	return scanMemory(row)
}

// Forget deletes the memory with id.
func (s *Store) Forget(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	return err
}

// Clear deletes every record.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM memories`)
	return err
}

// Search implements spec.md §4.6's five-step algorithm.
func (s *Store) Search(ctx context.Context, query string, limit int, minSimilarity float64) ([]SearchResult, error) {
	if minSimilarity == 0 {
		minSimilarity = DefaultMinSimilarity
	}
	if limit <= 0 {
		limit = 10
	}

	queryVector, err := s.embed(ctx, query)
	if err != nil {
		s.logger.Warn("memory: query embedding failed", "error", err)
		return nil, nil
	}
	if len(queryVector) == 0 {
		return nil, nil
	}

	records, err := s.loadEmbedded(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]SearchResult, 0, len(records))
	for _, m := range records {
		sim := cosineSimilarity(queryVector, m.Embedding)
		if sim >= minSimilarity {
			candidates = append(candidates, SearchResult{Memory: m, Similarity: sim})
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Similarity > candidates[j].Similarity })
	if len(candidates) > candidatePoolSize {
		candidates = candidates[:candidatePoolSize]
	}

	if s.reranker == nil || len(candidates) == 0 {
		return topN(candidates, limit), nil
	}

	reranked, err := s.rerank(ctx, query, candidates, limit)
	if err != nil {
		s.logger.Warn("memory: rerank failed, falling back to cosine ranking", "error", err)
		return topN(candidates, limit), nil
	}
	return reranked, nil
}

func (s *Store) rerank(ctx context.Context, query string, candidates []SearchResult, limit int) ([]SearchResult, error) {
	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.Memory.Content
	}

	resp, err := s.reranker.Rerank(ctx, llmclient.RerankRequest{
		Model:     s.model,
		Query:     query,
		Documents: documents,
	})
	if err != nil {
		return nil, err
	}

	reordered := make([]SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Index < 0 || r.Index >= len(candidates) {
			continue
		}
		reordered = append(reordered, SearchResult{Memory: candidates[r.Index].Memory, Similarity: r.Score})
	}
	return topN(reordered, limit), nil
}

func topN(results []SearchResult, n int) []SearchResult {
	if n <= 0 || n >= len(results) {
		return results
	}
	return results[:n]
}

func (s *Store) embed(ctx context.Context, text string) ([]float64, error) {
	if s.embedder == nil || text == "" {
		return nil, fmt.Errorf("memory: no embedder configured or empty text")
	}
	resp, err := s.embedder.Embeddings(ctx, llmclient.EmbeddingRequest{Model: s.model, Input: []string{text}})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("memory: embeddings response had no data")
	}
	return resp.Data[0].Embedding, nil
}

func (s *Store) loadEmbedded(ctx context.Context) ([]Memory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, type, metadata, embedding, created_at, updated_at FROM memories WHERE embedding IS NOT NULL AND embedding != '' AND embedding != 'null'`)
	if err != nil {
		return nil, fmt.Errorf("memory: query embedded records: %w", err)
	}
	defer rows.Close()

	var results []Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		if len(m.Embedding) == 0 {
			continue
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (Memory, error) {
	var m Memory
	var metaJSON, embJSON string
	if err := row.Scan(&m.ID, &m.Content, &m.Type, &metaJSON, &embJSON, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return Memory{}, err
	}
	if metaJSON != "" {
		_ = json.Unmarshal([]byte(metaJSON), &m.Metadata)
	}
	if embJSON != "" {
		_ = json.Unmarshal([]byte(embJSON), &m.Embedding)
	}
	return m, nil
}

// cosineSimilarity implements spec.md §4.6 step 3: dot/(‖a‖‖b‖), with
// zero-norm and differing-dimension degenerate cases returning 0.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
