package reader

import (
	"io"
	"sync"
)

// sharedReader is one read/seek cursor over the archive's underlying
// stream. Every physical operation takes the archive lock, positions the
// real stream at this cursor, performs the I/O, and records the new
// position, so any number of cursors can interleave safely on one stream.
type sharedReader struct {
	mu       *sync.Mutex
	src      Source
	pos      int64
	seekable bool
	release  func() error
	released bool
}

func (s *sharedReader) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.src.Seek(s.pos, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := s.src.Read(p)
	s.pos += int64(n)
	return n, err
}

func (s *sharedReader) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch whence {
	case io.SeekCurrent:
		offset += s.pos
	case io.SeekEnd:
		pos, err := s.src.Seek(offset, io.SeekEnd)
		if err != nil {
			return 0, err
		}
		s.pos = pos
		return pos, nil
	}
	pos, err := s.src.Seek(offset, io.SeekStart)
	if err != nil {
		return 0, err
	}
	s.pos = pos
	return pos, nil
}

func (s *sharedReader) Tell() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Close releases this cursor's reference on the archive. The underlying
// stream is only closed once every cursor and the archive itself let go.
func (s *sharedReader) Close() error {
	if s.released {
		return nil
	}
	s.released = true
	return s.release()
}
