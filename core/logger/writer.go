package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// sinkWriter fans log lines out to one or more buffered sinks.
// Writes are serialized with a mutex; Flush pushes buffered content through.
type sinkWriter struct {
	mu    sync.Mutex
	sinks []*bufio.Writer
	err   error
}

func newSinkWriter(writers []io.Writer, bufSize int) *sinkWriter {
	if bufSize <= 0 {
		bufSize = 32 * 1024
	}
	sinks := make([]*bufio.Writer, 0, len(writers))
	for _, w := range writers {
		if w == nil {
			continue
		}
		sinks = append(sinks, bufio.NewWriterSize(w, bufSize))
	}
	return &sinkWriter{sinks: sinks}
}

// Write appends the line to every sink, remembering the first error seen.
func (w *sinkWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	for _, sink := range w.sinks {
		if _, err := sink.Write(p); err != nil {
			w.err = err
			return err
		}
	}
	return nil
}

// Flush pushes all buffered content to the underlying writers.
func (w *sinkWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for _, sink := range w.sinks {
		if err := sink.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close flushes and reports the first write error encountered, if any.
func (w *sinkWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
