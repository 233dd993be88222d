package repository

import (
	"sort"
	"sync"

	"github.com/bournewang/ai-hedge-fund/internal/domain/models"
	"github.com/bournewang/ai-hedge-fund/internal/domain/repository"
)

// MemoryDatasetStore keeps reconciled datasets per source key, in memory.
// Writes replace entries ticker by ticker, so a later run over a subset of
// tickers keeps the untouched entries from earlier runs.
type MemoryDatasetStore struct {
	mu   sync.RWMutex
	data map[string]*models.SourceDataset
}

// NewMemoryDatasetStore creates an empty store.
func NewMemoryDatasetStore() repository.DatasetStore {
	return &MemoryDatasetStore{data: make(map[string]*models.SourceDataset)}
}

func (s *MemoryDatasetStore) Upsert(sourceKey string, meta models.SourceMeta, entries []models.TickerAnalysis) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, ok := s.data[sourceKey]
	if !ok {
		ds = &models.SourceDataset{SourceKey: sourceKey}
		s.data[sourceKey] = ds
	}

	byTicker := make(map[string]int, len(ds.Entries))
	for i, e := range ds.Entries {
		byTicker[e.Ticker] = i
	}
	for _, e := range entries {
		clone := e.Clone()
		if i, ok := byTicker[e.Ticker]; ok {
			ds.Entries[i] = clone
			continue
		}
		byTicker[e.Ticker] = len(ds.Entries)
		ds.Entries = append(ds.Entries, clone)
	}
	sort.Slice(ds.Entries, func(i, j int) bool { return ds.Entries[i].Ticker < ds.Entries[j].Ticker })

	ds.SourceMeta = meta
	ds.Tickers = make([]string, len(ds.Entries))
	for i, e := range ds.Entries {
		ds.Tickers[i] = e.Ticker
	}
}

func (s *MemoryDatasetStore) Get(sourceKey string) (*models.SourceDataset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.data[sourceKey]
	if !ok {
		return nil, false
	}
	out := ds.Clone()
	return &out, true
}

func (s *MemoryDatasetStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
