package files

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"htsqc/internal/config"
)

// Sink is where the pipeline writes its artifacts. Paths are slash- or
// OS-separated and relative to the sink's root; creating any directories a
// path needs is the sink's job, not the caller's.
type Sink interface {
	Create(path string) (io.WriteCloser, error)
	Location(path string) string
}

// DirSink writes artifacts beneath a root directory on disk.
type DirSink struct {
	root   string
	logger *slog.Logger

	mu      sync.Mutex
	created map[string]bool
}

// NewDirSink creates a sink rooted at root. The root itself is created lazily.
func NewDirSink(root string, logger *slog.Logger) *DirSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirSink{root: root, logger: logger, created: make(map[string]bool)}
}

// Create opens path for writing, truncating any previous content.
func (s *DirSink) Create(path string) (io.WriteCloser, error) {
	fullPath := s.Location(path)

	if err := s.ensureDir(filepath.Dir(fullPath)); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(fullPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, config.FilePermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	return file, nil
}

// Location returns the on-disk path of path.
func (s *DirSink) Location(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.root, path)
}

func (s *DirSink) ensureDir(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.created[dir] {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		s.logger.Info("Creating directory", slog.String("path", dir))
	}
	if err := os.MkdirAll(dir, config.DirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	s.created[dir] = true
	return nil
}

// MemorySink keeps artifacts in memory. Tests use it to inspect output
// without touching the file system.
type MemorySink struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

// Create returns a writer whose content is stored on Close.
func (s *MemorySink) Create(path string) (io.WriteCloser, error) {
	return &memoryFile{sink: s, path: filepath.ToSlash(filepath.Clean(path))}, nil
}

// Location returns the normalised key path is stored under.
func (s *MemorySink) Location(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

// Bytes returns the content written to path.
func (s *MemorySink) Bytes(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[s.Location(path)]
	return data, ok
}

// Paths returns every stored path, sorted.
func (s *MemorySink) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files))
	for p := range s.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

type memoryFile struct {
	bytes.Buffer
	sink *MemorySink
	path string
}

func (f *memoryFile) Close() error {
	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	f.sink.files[f.path] = append([]byte(nil), f.Bytes()...)
	return nil
}
