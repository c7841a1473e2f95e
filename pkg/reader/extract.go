package reader

import (
	"fmt"
	"hash/crc32"
	"io"
)

// File is the lazy extraction stream for one open entry. Reads pull
// compressed bytes through the entry's shared cursor, decompress them,
// trim to the declared uncompressed size and feed a running CRC-32 that
// is verified exactly once, when end of stream is first reached.
//
// If the archive's source supports random access, File also supports
// Seek and Tell; seeking backward replays decompression from the start
// of the entry.
type File struct {
	sh    *sharedReader
	entry *Entry
	dcomp Decompressor
	cr    *compressedReader
	dec   io.ReadCloser

	compressLeft int64 // compressed bytes not yet pulled
	left         int64 // uncompressed bytes not yet delivered or buffered
	eof          bool

	buf []byte // decompressed read-ahead
	off int    // cursor into buf

	crc      uint32
	checkCRC bool
	crcErr   error

	seekable bool
	startPos int64 // absolute offset of the first compressed byte

	closed bool
}

func newFile(sh *sharedReader, e *Entry, dcomp Decompressor) *File {
	f := &File{
		sh:           sh,
		entry:        e,
		dcomp:        dcomp,
		compressLeft: int64(e.CompressedSize64),
		left:         int64(e.UncompressedSize64),
		checkCRC:     true,
		seekable:     sh.seekable,
		startPos:     sh.Tell(),
	}
	f.cr = &compressedReader{f: f}
	f.dec = dcomp(f.cr)
	return f
}

// Name returns the sanitized entry name this stream was opened for.
func (f *File) Name() string { return f.entry.Name }

func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, fmt.Errorf("%w: read from closed file", ErrInvalidOperation)
	}
	if f.crcErr != nil {
		return 0, f.crcErr
	}
	if len(p) == 0 {
		return 0, nil
	}
	for f.off >= len(f.buf) {
		if f.eof {
			return 0, io.EOF
		}
		if err := f.fill(len(p)); err != nil {
			return 0, err
		}
	}
	n := copy(p, f.buf[f.off:])
	f.off += n
	return n, nil
}

// fill decodes the next chunk of uncompressed bytes into the read-ahead
// buffer. want sizes the chunk, floored at minReadSize and clipped to the
// bytes the entry still owes.
func (f *File) fill(want int) error {
	if want < minReadSize {
		want = minReadSize
	}
	limit := int64(want)
	if limit > f.left {
		limit = f.left
	}
	if limit <= 0 {
		f.eof = true
		return f.finishCRC()
	}
	chunk := make([]byte, limit)
	n, err := f.dec.Read(chunk)
	f.buf = chunk[:n]
	f.off = 0
	f.left -= int64(n)
	if f.checkCRC {
		f.crc = crc32.Update(f.crc, crc32.IEEETable, chunk[:n])
	}
	if err == io.EOF || f.left == 0 {
		f.eof = true
		return f.finishCRC()
	}
	return err
}

func (f *File) finishCRC() error {
	if !f.checkCRC {
		return nil
	}
	f.checkCRC = false
	if f.crc != f.entry.CRC32 {
		f.crcErr = fmt.Errorf("%w for file %q", ErrChecksum, f.entry.Name)
		return f.crcErr
	}
	return nil
}

func (f *File) pos() int64 {
	return int64(f.entry.UncompressedSize64) - f.left - int64(len(f.buf)-f.off)
}

// Tell reports the current position within the uncompressed data.
func (f *File) Tell() (int64, error) {
	if f.closed {
		return 0, fmt.Errorf("%w: tell on closed file", ErrInvalidOperation)
	}
	if !f.seekable {
		return 0, fmt.Errorf("%w: underlying stream is not seekable", ErrInvalidOperation)
	}
	return f.pos(), nil
}

// Seek repositions the stream within the uncompressed data. Targets are
// clamped to [0, size]. A target inside the read-ahead buffer just moves
// the cursor; a forward target in a stored entry repositions the shared
// cursor directly, which forfeits checksum verification for the rest of
// this stream; anything else rewinds to the start of the entry and
// replays decompression up to the target.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, fmt.Errorf("%w: seek on closed file", ErrInvalidOperation)
	}
	if !f.seekable {
		return 0, fmt.Errorf("%w: underlying stream is not seekable", ErrInvalidOperation)
	}
	size := int64(f.entry.UncompressedSize64)
	cur := f.pos()
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = cur + offset
	case io.SeekEnd:
		target = size + offset
	default:
		return 0, fmt.Errorf("%w: invalid whence %d", ErrInvalidOperation, whence)
	}
	if target > size {
		target = size
	}
	if target < 0 {
		target = 0
	}

	readOffset := target - cur
	buffOffset := readOffset + int64(f.off)

	switch {
	case buffOffset >= 0 && buffOffset < int64(len(f.buf)):
		f.off = int(buffOffset)
		readOffset = 0
	case readOffset > 0 && f.entry.Method == Store:
		// Stored data maps one-to-one onto the underlying stream, so the
		// shared cursor can jump straight to the target. The skipped
		// bytes never pass through the checksum.
		f.checkCRC = false
		if _, err := f.sh.Seek(f.startPos+target, io.SeekStart); err != nil {
			return 0, err
		}
		f.compressLeft = int64(f.entry.CompressedSize64) - target
		f.left = size - target
		f.buf = nil
		f.off = 0
		f.cr.rem = nil
		f.eof = false
		readOffset = 0
	case readOffset < 0:
		if err := f.rewind(); err != nil {
			return 0, err
		}
		readOffset = target
	}

	for readOffset > 0 {
		step := readOffset
		if step > maxSeekRead {
			step = maxSeekRead
		}
		if _, err := io.CopyN(io.Discard, f, step); err != nil {
			return 0, err
		}
		readOffset -= step
	}
	return f.pos(), nil
}

// rewind restores the stream to the state it had when the entry was
// opened, including the checksum, and restarts the decompressor.
func (f *File) rewind() error {
	if _, err := f.sh.Seek(f.startPos, io.SeekStart); err != nil {
		return err
	}
	f.compressLeft = int64(f.entry.CompressedSize64)
	f.left = int64(f.entry.UncompressedSize64)
	f.crc = 0
	f.checkCRC = true
	f.crcErr = nil
	f.buf = nil
	f.off = 0
	f.eof = false
	f.cr.rem = nil
	f.dec.Close()
	f.dec = f.dcomp(f.cr)
	return nil
}

// Close releases the entry's cursor. The archive's underlying stream
// stays open as long as any entry or the archive itself holds it.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	err := f.dec.Close()
	if cerr := f.sh.Close(); err == nil {
		err = cerr
	}
	return err
}

// compressedReader feeds the decompressor raw compressed bytes from the
// shared cursor, never pulling less than minReadSize at a time (except at
// the end of the entry) and never more than the entry has left.
type compressedReader struct {
	f   *File
	rem []byte // surplus from a chunk larger than the caller's buffer
}

func (c *compressedReader) Read(p []byte) (int, error) {
	if len(c.rem) > 0 {
		n := copy(p, c.rem)
		c.rem = c.rem[n:]
		return n, nil
	}
	f := c.f
	if f.compressLeft <= 0 {
		return 0, io.EOF
	}
	want := int64(len(p))
	if want < minReadSize {
		want = minReadSize
	}
	if want > f.compressLeft {
		want = f.compressLeft
	}

	if want <= int64(len(p)) {
		n, err := f.sh.Read(p[:want])
		if n == 0 {
			return 0, truncatedErr(err)
		}
		f.compressLeft -= int64(n)
		return n, nil
	}
	chunk := make([]byte, want)
	n, err := f.sh.Read(chunk)
	if n == 0 {
		return 0, truncatedErr(err)
	}
	f.compressLeft -= int64(n)
	m := copy(p, chunk[:n])
	c.rem = chunk[m:n]
	return m, nil
}

func truncatedErr(err error) error {
	if err == nil || err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
