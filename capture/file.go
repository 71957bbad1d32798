package capture

import (
	"os"
	"sync"
)

// FileRecorder appends records to a capture file.  It is safe for
// concurrent use.
type FileRecorder struct {
	file   *os.File
	writer *recordWriter
	mu     sync.Mutex
	closed bool
}

// NewFileRecorder opens path for appending, creating it with mode 0644.
func NewFileRecorder(path string) (*FileRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileRecorder{
		file:   f,
		writer: newRecordWriter(f),
	}, nil
}

func (f *FileRecorder) Record(r Record) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	// a capture must not break the traffic it observes
	_ = f.writer.write(r)
}

// Close may be called more than once.  Records after Close are dropped.
func (f *FileRecorder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	return f.file.Close()
}

var _ Recorder = (*FileRecorder)(nil)
