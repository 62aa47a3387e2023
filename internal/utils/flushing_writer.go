package utils

import (
	"io"
	"sync"
)

type flusher interface {
	Flush() error
}

// FlushingWriter serializes writes and flushes buffered destinations after each
// one, so report lines appear in order even when logs share the terminal.
type FlushingWriter struct {
	destination io.Writer
	mutex       sync.Mutex
}

// NewFlushingWriter wraps destination. Nil destinations yield nil and already
// wrapped writers are returned unchanged.
func NewFlushingWriter(destination io.Writer) io.Writer {
	switch destination.(type) {
	case nil:
		return nil
	case *FlushingWriter:
		return destination
	}
	return &FlushingWriter{destination: destination}
}

// Write delegates to the destination and flushes it when it supports Flush.
func (writer *FlushingWriter) Write(data []byte) (int, error) {
	if writer == nil || writer.destination == nil {
		return 0, nil
	}

	writer.mutex.Lock()
	defer writer.mutex.Unlock()

	bytesWritten, writeError := writer.destination.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}
	if flushable, supportsFlush := writer.destination.(flusher); supportsFlush {
		return bytesWritten, flushable.Flush()
	}
	return bytesWritten, nil
}
