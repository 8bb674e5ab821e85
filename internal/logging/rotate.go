package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// RotatingFile is an io.Writer that appends to a file and rotates it once it
// grows past a size limit, keeping a fixed number of old files:
//
//	mirrordock.log -> mirrordock.log.1 -> mirrordock.log.2 ...
type RotatingFile struct {
	mu          sync.Mutex
	path        string
	maxBytes    int64
	maxFiles    int
	file        *os.File
	currentSize int64
}

// OpenRotatingFile opens (or creates) path for appending.
func OpenRotatingFile(path string, maxSizeMB, maxFiles int) (*RotatingFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	if maxFiles < 1 {
		maxFiles = 1
	}
	return &RotatingFile{
		path:        path,
		maxBytes:    int64(maxSizeMB) * 1024 * 1024,
		maxFiles:    maxFiles,
		file:        f,
		currentSize: stat.Size(),
	}, nil
}

// Path returns the active log file path.
func (r *RotatingFile) Path() string { return r.path }

func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return 0, os.ErrClosed
	}

	if r.maxBytes > 0 && r.currentSize > 0 && r.currentSize+int64(len(p)) > r.maxBytes {
		if err := r.rotate(); err != nil {
			// Rotation failed, but keep logging to whatever is open.
			fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
		}
		if r.file == nil {
			return 0, os.ErrClosed
		}
	}

	n, err := r.file.Write(p)
	r.currentSize += int64(n)
	return n, err
}

// Close closes the underlying file.
func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// rotate shifts every old file up by one and starts a fresh file.
func (r *RotatingFile) rotate() error {
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}

	// With maxFiles=3, we keep .1, .2, .3.
	for i := r.maxFiles; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", r.path, i)
		if i == r.maxFiles {
			os.Remove(oldPath)
			continue
		}
		os.Rename(oldPath, fmt.Sprintf("%s.%d", r.path, i+1))
	}

	if err := os.Rename(r.path, r.path+".1"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open new log file: %w", err)
	}
	r.file = f
	r.currentSize = 0
	return nil
}
