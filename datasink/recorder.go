/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package datasink persists trial rows. Rows are queued and written in the
// background so that a slow disk or an unreachable Redis never stalls the
// participant's timeline.
package datasink

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrDropped = errors.New("row dropped: recorder queue full")

const (
	queueSize    = 256
	writeTimeout = 5 * time.Second
)

// Sink is a destination for rows.
type Sink interface {
	WriteRow(ctx context.Context, fields []string) error
	Close() error
}

// Recorder fans rows out to its sinks from a single writer goroutine.
type Recorder struct {
	sinks   []Sink
	rows    chan []string
	onError func(error)

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewRecorder starts the writer goroutine. onError may be nil.
func NewRecorder(onError func(error), sinks ...Sink) *Recorder {
	if onError == nil {
		onError = func(error) {}
	}

	r := &Recorder{
		sinks:   sinks,
		rows:    make(chan []string, queueSize),
		onError: onError,
		done:    make(chan struct{}),
	}

	go r.run()

	return r
}

// AppendRow queues a row. It never blocks; rows are dropped, and reported
// through onError, when the queue is full or the recorder is closed.
func (r *Recorder) AppendRow(fields []string) {
	row := append([]string(nil), fields...)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.onError(ErrDropped)

		return
	}

	select {
	case r.rows <- row:
	default:
		r.onError(ErrDropped)
	}
}

// Close writes everything still queued, then closes every sink.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()

		return nil
	}
	r.closed = true
	close(r.rows)
	r.mu.Unlock()

	<-r.done

	var errs []error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (r *Recorder) run() {
	defer close(r.done)

	for row := range r.rows {
		for _, s := range r.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := s.WriteRow(ctx, row)
			cancel()

			if err != nil {
				r.onError(err)
			}
		}
	}
}
