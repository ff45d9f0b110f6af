package logger

import (
	"bufio"
	"fmt"
	"os"
	"sync"
)

// LogFilePermissions restricts log files to the owner.
const LogFilePermissions = 0o600

// fileWriter is a mutex-guarded buffered append writer for the main log file.
type fileWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
}

func newFileWriter(path string) (*fileWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermissions) //nolint:gosec // path comes from user config
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return &fileWriter{file: file, writer: bufio.NewWriter(file)}, nil
}

func (w *fileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return 0, os.ErrClosed
	}
	return w.writer.Write(p)
}

// Flush pushes buffered bytes to the OS.
func (w *fileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.writer.Flush()
}

// Close flushes, syncs and closes the file.
func (w *fileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		_ = w.file.Close()
		w.file = nil
		return err
	}
	if err := w.file.Sync(); err != nil {
		_ = w.file.Close()
		w.file = nil
		return err
	}
	err := w.file.Close()
	w.file = nil
	return err
}
