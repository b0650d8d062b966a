package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"surplus-redistribution-service/internal/ports"
)

// MemoryRunLock serializes runs inside one process. Expired holders are
// treated as released.
type MemoryRunLock struct {
	mu    sync.Mutex
	held  map[string]holder
	seq   uint64
	clock func() time.Time
}

type holder struct {
	id      uint64
	expires time.Time
}

func NewMemoryRunLock() *MemoryRunLock {
	return &MemoryRunLock{held: make(map[string]holder), clock: time.Now}
}

func (l *MemoryRunLock) Acquire(_ context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if h, ok := l.held[name]; ok && now.Before(h.expires) {
		return nil, fmt.Errorf("acquire run lock %q: %w", name, ports.ErrRunInProgress)
	}

	l.seq++
	id := l.seq
	l.held[name] = holder{id: id, expires: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if h, ok := l.held[name]; ok && h.id == id {
			delete(l.held, name)
		}
		return nil
	}, nil
}
