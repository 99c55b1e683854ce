package services

import (
	"context"
	"errors"
	"fmt"

	"eventhub/internal/domain"
)

// maxWriteAttempts bounds the read-modify-write loop when a versioned update loses a race.
const maxWriteAttempts = 3

// mutateEvent loads the event under the per-event lock, applies mutate and writes it back
// with a version check, re-reading and retrying when another writer got there first.
// Errors returned by mutate are passed through unchanged and nothing is written.
func mutateEvent(ctx context.Context, repo domain.EventRepository, locker domain.EventLocker, id string, mutate func(*domain.Event) error) (*domain.Event, error) {
	unlock, err := locker.Lock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lock event: %w", err)
	}
	defer unlock()

	for attempt := 1; ; attempt++ {
		event, err := repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrEventNotFound
			}
			return nil, fmt.Errorf("get event: %w", err)
		}
		if err := mutate(event); err != nil {
			return nil, err
		}
		err = repo.Update(ctx, event)
		if err == nil {
			return event, nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrEventNotFound
		}
		if !errors.Is(err, domain.ErrConcurrentUpdate) || attempt >= maxWriteAttempts {
			return nil, fmt.Errorf("update event: %w", err)
		}
	}
}
