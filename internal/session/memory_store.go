package session

import (
	"context"
	"sync"
)

// MemoryStore is a Store for tests and single-process development. Records
// live only as long as the process.
type MemoryStore struct {
	mu      sync.Mutex
	records map[int64]Record
	locks   map[int64]*sync.Mutex
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[int64]Record),
		locks:   make(map[int64]*sync.Mutex),
	}
}

func (s *MemoryStore) Get(_ context.Context, chatID int64) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[chatID], nil
}

func (s *MemoryStore) Set(_ context.Context, chatID int64, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[chatID] = rec
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, chatID int64, fn func(*Record) error) error {
	lock := s.keyLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if err := fn(&rec); err != nil {
		return err
	}
	return s.Set(ctx, chatID, rec)
}

func (s *MemoryStore) keyLock(chatID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[chatID] = lock
	}
	return lock
}
