package locks

import (
	"context"
	"sync"

	"eventhub/internal/domain"
)

// memoryLocker serialises ledger writes per event inside one process.
type memoryLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker returns an EventLocker backed by per-event channels. It is used when
// no Redis address is configured and only one API instance runs.
func NewMemoryLocker() domain.EventLocker {
	return &memoryLocker{slots: make(map[string]*slot)}
}

func (l *memoryLocker) Lock(ctx context.Context, eventID string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[eventID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[eventID] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(eventID, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(eventID, s)
		})
	}, nil
}

// release drops a reference and forgets the slot once nobody holds or waits for it.
func (l *memoryLocker) release(eventID string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, eventID)
	}
}
