// Package flusher runs the background worker that persists the file-backed
// storage. Write operations notify the worker; a ticker batches the
// notifications and triggers one flush per interval instead of one per write.
package flusher

import (
	"context"
	"time"

	"github.com/prepdeck/prepdeck/internal/logger"
)

type flushable interface {
	Flush(ctx context.Context) error
}

// Flusher batches change notifications and periodically flushes the storage.
type Flusher struct {
	db            flushable
	notifications chan struct{}
	interval      time.Duration
	errorChannel  chan error
}

// New creates a Flusher for the given storage. channelCapacity bounds the
// pending-notification queue; notifications beyond it are dropped, which is
// fine because one pending notification already guarantees a flush.
func New(
	db flushable,
	channelCapacity int,
	interval time.Duration,
) *Flusher {
	return &Flusher{
		db:            db,
		notifications: make(chan struct{}, channelCapacity),
		interval:      interval,
		errorChannel:  make(chan error, channelCapacity),
	}
}

// Notify marks the storage dirty. It never blocks.
func (f *Flusher) Notify() {
	select {
	case f.notifications <- struct{}{}:
	default:
	}
}

// ListenErrors forwards flush errors to the callback on a separate goroutine.
func (f *Flusher) ListenErrors(callback func(error)) {
	go func() {
		for err := range f.errorChannel {
			callback(err)
		}
	}()
}

// Run starts the worker goroutine. It flushes on every tick that follows at
// least one notification, and performs a final flush when ctx is canceled.
func (f *Flusher) Run(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()

		dirty := false

		for {
			select {
			case <-f.notifications:
				dirty = true
			case <-ticker.C:
				if !dirty {
					continue
				}
				if err := f.db.Flush(ctx); err != nil {
					f.errorChannel <- err
					continue
				}
				logger.Log.Debugln("flushed storage to disk")
				dirty = false
			case <-ctx.Done():
				if dirty {
					if err := f.db.Flush(context.Background()); err != nil {
						f.errorChannel <- err
					}
				}
				close(f.errorChannel)
				return
			}
		}
	}()
}
