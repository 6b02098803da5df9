package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// Embedding generation lives outside this repo; the store only carries the
// vector column and a similarity read for the query CLI.

// SimilarContent is one result of a vector similarity search.
type SimilarContent struct {
	ID    int64
	Score float64 // cosine similarity, higher is more similar
}

// SetContentEmbedding attaches an embedding vector to a stored blob.
func (s *Store) SetContentEmbedding(ctx context.Context, id int64, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("embedding cannot be empty")
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE content SET embedding = ? WHERE id = ?",
		encodeEmbedding(embedding), id)
	if err != nil {
		return fmt.Errorf("failed to set embedding: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrContentNotFound
	}
	return nil
}

// SearchSimilar ranks embedded content blobs by cosine similarity to query
// and returns up to topK results, most similar first.
func (s *Store) SearchSimilar(ctx context.Context, query []float32, topK int) ([]SimilarContent, error) {
	if topK <= 0 {
		topK = 10
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, embedding FROM content WHERE embedding IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("failed to scan embeddings: %w", err)
	}
	defer rows.Close()

	var results []SimilarContent
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan embedding row: %w", err)
		}
		emb := decodeEmbedding(blob)
		results = append(results, SimilarContent{ID: id, Score: CosineSimilarity(query, emb)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating embeddings: %w", err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// ContentEmbedding returns the stored embedding for a blob, or nil when the
// blob has none.
func (s *Store) ContentEmbedding(ctx context.Context, id int64) ([]float32, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT embedding FROM content WHERE id = ?", id).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding: %w", err)
	}
	return decodeEmbedding(blob), nil
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 for mismatched lengths or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var dot, normA, normB float64
	for i := 0; i < len(a); i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func encodeEmbedding(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeEmbedding(blob []byte) []float32 {
	if len(blob) == 0 {
		return nil
	}
	emb := make([]float32, len(blob)/4)
	for i := range emb {
		emb[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return emb
}
