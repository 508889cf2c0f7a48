package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"daybook/internal/embedding"
	"daybook/internal/logging"
	"daybook/internal/types"
)

// StoreMemory saves a piece of interaction text for later semantic recall.
// When an embedding engine is attached the text is embedded up front; when
// it is not, the row is still stored and keyword search covers it.
func (s *Store) StoreMemory(ctx context.Context, content string, metadata map[string]string) error {
	timer := logging.StartTimer(logging.CategoryStore, "StoreMemory")
	defer timer.Stop()

	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("memory content must be non-empty")
	}

	var blob []byte
	if s.embedEngine != nil {
		vec, err := s.embedEngine.Embed(ctx, content)
		if err != nil {
			logging.Get(logging.CategoryStore).Warn("Embedding failed, storing memory without vector: %v", err)
		} else {
			blob = encodeFloat32Slice(vec)
		}
	}

	metaJSON := "{}"
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			metaJSON = string(b)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT INTO memories (content, embedding, metadata) VALUES (?, ?, ?)",
		content, blob, metaJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to store memory: %w", err)
	}

	logging.StoreDebug("Stored memory (%d chars, embedded=%v)", len(content), blob != nil)
	return nil
}

// SearchMemories returns the top memories most relevant to the query.
// Semantic search runs when an embedding engine is attached; otherwise it
// degrades to keyword matching over the stored text.
func (s *Store) SearchMemories(ctx context.Context, query string, limit int) ([]types.MemoryHit, error) {
	timer := logging.StartTimer(logging.CategoryStore, "SearchMemories")
	defer timer.Stop()

	if limit <= 0 {
		limit = 5
	}

	if s.embedEngine != nil {
		queryVec, err := s.embedEngine.Embed(ctx, query)
		if err == nil {
			hits, err := s.searchByVector(queryVec, limit)
			if err == nil {
				return hits, nil
			}
			logging.Get(logging.CategoryStore).Warn("Vector search failed, falling back to keywords: %v", err)
		} else {
			logging.Get(logging.CategoryStore).Warn("Query embedding failed, falling back to keywords: %v", err)
		}
	}

	return s.searchByKeywords(query, limit)
}

func (s *Store) searchByVector(query []float32, limit int) ([]types.MemoryHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT content, embedding, COALESCE(metadata, '{}') FROM memories WHERE embedding IS NOT NULL AND length(embedding) > 0",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []types.MemoryHit
	for rows.Next() {
		var content, metaJSON string
		var blob []byte
		if err := rows.Scan(&content, &blob, &metaJSON); err != nil {
			continue
		}
		vec := decodeFloat32Slice(blob)
		if len(vec) == 0 || len(vec) != len(query) {
			continue
		}
		score, err := embedding.CosineSimilarity(query, vec)
		if err != nil {
			continue
		}
		hits = append(hits, types.MemoryHit{
			Text:     content,
			Score:    clampScore(score),
			Metadata: decodeMetadata(metaJSON),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Store) searchByKeywords(query string, limit int) ([]types.MemoryHit, error) {
	keywords := extractKeywords(query, 4)
	if len(keywords) == 0 {
		return nil, nil
	}

	var conditions []string
	var args []interface{}
	for _, kw := range keywords {
		conditions = append(conditions, "LOWER(content) LIKE ?")
		args = append(args, "%"+strings.ToLower(kw)+"%")
	}
	querySQL := fmt.Sprintf(`
		SELECT content, COALESCE(metadata, '{}') FROM memories
		WHERE %s
		ORDER BY created_at DESC
		LIMIT ?`, strings.Join(conditions, " OR "))
	args = append(args, limit*3)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(querySQL, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []types.MemoryHit
	for rows.Next() {
		var content, metaJSON string
		if err := rows.Scan(&content, &metaJSON); err != nil {
			continue
		}
		hits = append(hits, types.MemoryHit{
			Text:     content,
			Score:    lexicalScore(content, keywords),
			Metadata: decodeMetadata(metaJSON),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func decodeMetadata(metaJSON string) map[string]string {
	if metaJSON == "" || metaJSON == "{}" {
		return nil
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
		return nil
	}
	return meta
}

func encodeFloat32Slice(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		return nil
	}
	return buf.Bytes()
}

func decodeFloat32Slice(blob []byte) []float32 {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(blob)/4)
	reader := bytes.NewReader(blob)
	if err := binary.Read(reader, binary.LittleEndian, &vec); err != nil {
		return nil
	}
	return vec
}

func extractKeywords(text string, max int) []string {
	if max <= 0 {
		max = 4
	}
	words := strings.Fields(strings.ToLower(text))
	var keywords []string
	for _, word := range words {
		word = strings.Trim(word, ".,:;()[]{}<>\"'?!")
		if len(word) < 4 {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) >= max {
			break
		}
	}
	return keywords
}

func lexicalScore(text string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	textLower := strings.ToLower(text)
	matches := 0
	for _, kw := range keywords {
		if strings.Contains(textLower, kw) {
			matches++
		}
	}
	return clampScore(float64(matches) / float64(len(keywords)))
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
