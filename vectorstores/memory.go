package vectorstores

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// Memory is a brute-force cosine-similarity store. It backs tests and local
// development; the "memory" backend shares one store per index name so the
// ingest and query paths of separate requests see the same data.
type Memory struct {
	mu         sync.RWMutex
	index      string
	dimensions int
	records    map[string]Record
}

var (
	memMu      sync.Mutex
	memIndexes = map[string]*Memory{}
)

func sharedMemory(indexName string, dimensions int) (*Memory, error) {
	memMu.Lock()
	defer memMu.Unlock()
	if m, ok := memIndexes[indexName]; ok {
		if m.dimensions == 0 {
			m.dimensions = dimensions
		}
		if dimensions > 0 && m.dimensions != dimensions {
			return nil, storeErr(TypeMemory, KindDimensionMismatch,
				fmt.Errorf("index %s has dimensionality %d, requested %d", indexName, m.dimensions, dimensions))
		}
		return m, nil
	}
	m := NewMemory(indexName, dimensions)
	memIndexes[indexName] = m
	return m, nil
}

// NewMemory creates a standalone in-memory store.
func NewMemory(indexName string, dimensions int) *Memory {
	return &Memory{
		index:      indexName,
		dimensions: dimensions,
		records:    make(map[string]Record),
	}
}

// Len reports the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *Memory) Upsert(ctx context.Context, records []Record) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		if len(r.Vector) != m.dimensions {
			return 0, storeErr(TypeMemory, KindDimensionMismatch,
				fmt.Errorf("record %s has %d dimensions, index %s expects %d", r.ID, len(r.Vector), m.index, m.dimensions))
		}
	}
	for _, r := range records {
		m.records[r.ID] = r
	}
	return len(records), nil
}

func (m *Memory) Query(ctx context.Context, vector []float32, topK int, filter map[string]string, excludeFields []string) ([]Match, error) {
	if len(vector) != m.dimensions {
		return nil, storeErr(TypeMemory, KindDimensionMismatch,
			fmt.Errorf("query vector has %d dimensions, index %s expects %d", len(vector), m.index, m.dimensions))
	}
	if topK <= 0 {
		topK = 5
	}

	m.mu.RLock()
	matches := make([]Match, 0, len(m.records))
	for _, r := range m.records {
		if !metadataMatches(r.Metadata, filter) {
			continue
		}
		matches = append(matches, Match{
			ID:       r.ID,
			Score:    cosine(vector, r.Vector),
			Metadata: pruneFields(r.Metadata, excludeFields),
		})
	}
	m.mu.RUnlock()

	sortMatches(matches)
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *Memory) Delete(ctx context.Context, filter map[string]string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for id, r := range m.records {
		if metadataMatches(r.Metadata, filter) {
			delete(m.records, id)
			deleted++
		}
	}
	return deleted, nil
}

func metadataMatches(metadata, filter map[string]string) bool {
	for k, want := range filter {
		if metadata[k] != want {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
