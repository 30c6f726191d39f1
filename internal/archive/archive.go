// Package archive persists completed exchanges, best effort. The
// request path only enqueues; a worker goroutine does the writes, and
// a storage failure never affects the response already returned to the
// user.
package archive

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Record is one completed exchange handed off for storage.
type Record struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Message       string    `json:"message"`
	Response      string    `json:"response"`
	Confidence    float64   `json:"confidence"`
	Provider      string    `json:"provider"`
	IsNewQuestion bool      `json:"is_new_question"`
	Timestamp     time.Time `json:"timestamp"`
}

// Sink stores a record somewhere durable(ish).
type Sink interface {
	Save(ctx context.Context, rec Record) error
	Name() string
}

// defaultQueueSize bounds the pending-write queue.
const defaultQueueSize = 256

// Archiver fans records out to its sinks from a single worker
// goroutine. Enqueue never blocks the request path: when the queue is
// full the record is dropped with a log line.
type Archiver struct {
	sinks  []Sink
	queue  chan Record
	logger *zap.Logger
	done   chan struct{}
}

// New creates an archiver over the given sinks. A nil or empty sink
// list is fine; records are then discarded silently.
func New(sinks []Sink, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{
		sinks:  sinks,
		queue:  make(chan Record, defaultQueueSize),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Run drains the queue until ctx is cancelled, then flushes whatever
// is still pending.
func (a *Archiver) Run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case rec := <-a.queue:
					a.save(rec)
				default:
					return
				}
			}
		case rec := <-a.queue:
			a.save(rec)
		}
	}
}

// Wait blocks until Run has returned.
func (a *Archiver) Wait() {
	<-a.done
}

// Enqueue hands a record to the worker without blocking.
func (a *Archiver) Enqueue(rec Record) {
	select {
	case a.queue <- rec:
	default:
		a.logger.Warn("Archive queue full, dropping record",
			zap.String("user_id", rec.UserID))
	}
}

func (a *Archiver) save(rec Record) {
	// Sinks get their own deadline; the request that produced the
	// record is long gone.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, sink := range a.sinks {
		if err := sink.Save(ctx, rec); err != nil {
			a.logger.Warn("Failed to archive turn",
				zap.String("sink", sink.Name()),
				zap.String("user_id", rec.UserID),
				zap.Error(err))
		}
	}
}
