// Package worker runs the bot's two long-lived loops: a stream worker
// that listens live to a set of tracked accounts, and a search worker
// that repeatedly searches, engages and posts. The Manager fans them out
// and waits for all of them to finish.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

type Worker interface {
	Name() string
	// Run blocks until ctx is cancelled or the worker hits a fatal error.
	Run(ctx context.Context) error
}

// Recorder receives one line per noteworthy bot action, for the
// operator-facing activity feed.
type Recorder interface {
	Record(kind, title, link string)
}

type Manager struct {
	workers []Worker
	logger  *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	return &Manager{logger: logger}
}

func (m *Manager) Register(w Worker) {
	m.workers = append(m.workers, w)
}

// Run starts every registered worker in its own goroutine and blocks
// until all of them return. Cancellation is not treated as a failure;
// any other worker error is joined into the returned error.
func (m *Manager) Run(ctx context.Context) error {
	if len(m.workers) == 0 {
		return fmt.Errorf("no workers registered")
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(m.workers))

	for _, w := range m.workers {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			m.logger.Info("worker starting", "worker", w.Name())
			err := w.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Error("worker failed", "worker", w.Name(), "error", err)
				errChan <- fmt.Errorf("worker %s: %w", w.Name(), err)
				return
			}
			m.logger.Info("worker stopped", "worker", w.Name())
		}(w)
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
