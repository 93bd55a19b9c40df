package batch

import (
	"bufio"
	"fmt"
	"os"
)

// FileSource implements engine.RecordSource over a single CDR file, reading
// it line by line and tagging each line with its 1-based line number.
type FileSource struct {
	path    string
	f       *os.File
	scanner *bufio.Scanner
	line    int
	opened  bool
}

// NewFileSource returns a source over path. The file is opened lazily on
// the first call to Next so building a batch of sources never exhausts
// file descriptors up front.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Next() (line string, sourceFile string, sourceLine int, ok bool) {
	if !s.opened {
		if err := s.open(); err != nil {
			return "", s.path, 0, false
		}
	}
	if s.scanner == nil {
		return "", s.path, 0, false
	}
	if !s.scanner.Scan() {
		s.Close()
		return "", s.path, 0, false
	}
	s.line++
	return s.scanner.Text(), s.path, s.line, true
}

func (s *FileSource) open() error {
	s.opened = true
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("opening CDR file %s: %w", s.path, err)
	}
	s.f = f
	buf := bufio.NewScanner(f)
	buf.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	s.scanner = buf
	return nil
}

// Close releases the underlying file handle. Safe to call more than once.
func (s *FileSource) Close() error {
	if s.f == nil {
		return nil
	}
	f := s.f
	s.f = nil
	s.scanner = nil
	return f.Close()
}
