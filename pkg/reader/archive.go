// Package reader extracts individual entries from ZIP archives without
// requiring the whole archive to be resident. The archive may be backed
// by a local file or by any seekable stream, such as a remote resource
// accessed through ranged reads.
package reader

import (
	"fmt"
	"io"
	"sync"
)

// Source is the stream an Archive reads from: a local file, an HTTP
// ranged-read wrapper, or anything else with a read/seek cursor. Sources
// that cannot honor random access within an entry should additionally
// implement Seekable() bool and return false; extraction streams derived
// from them reject Seek and Tell.
type Source interface {
	io.Reader
	io.Seeker
}

type seekableSource interface {
	Seekable() bool
}

// Archive provides named access to the members of one ZIP archive. It
// owns the underlying stream and serializes all physical I/O on it; the
// stream is closed once the archive and every open entry are closed.
type Archive struct {
	// Comment is the archive-level comment from the trailer, if any.
	Comment string

	src      Source
	mu       sync.Mutex
	seekable bool

	entries []*Entry
	byName  map[string]*Entry

	refs          int
	decompressors map[uint16]Decompressor
}

// NewArchive parses the archive trailer and central directory of src and
// returns an Archive ready to open entries. On any parse failure the
// source is closed (when it implements io.Closer) and the error returned;
// there is no partially-usable archive.
func NewArchive(src Source) (*Archive, error) {
	a := &Archive{
		src:      src,
		byName:   make(map[string]*Entry),
		refs:     1,
		seekable: true,
	}
	if s, ok := src.(seekableSource); ok {
		a.seekable = s.Seekable()
	}
	if err := a.readDirectory(); err != nil {
		a.decref()
		return nil, err
	}
	return a, nil
}

// EntryInfo is one row of an archive listing.
type EntryInfo struct {
	Name             string
	Method           uint16
	CRC32            uint32
	CompressedSize   uint64
	UncompressedSize uint64
}

// List returns the archive members in central directory order.
func (a *Archive) List() []EntryInfo {
	infos := make([]EntryInfo, 0, len(a.entries))
	for _, e := range a.entries {
		infos = append(infos, EntryInfo{
			Name:             e.Name,
			Method:           e.Method,
			CRC32:            e.CRC32,
			CompressedSize:   e.CompressedSize64,
			UncompressedSize: e.UncompressedSize64,
		})
	}
	return infos
}

// Entry returns the metadata for the named member, if present.
func (a *Archive) Entry(name string) (*Entry, bool) {
	e, ok := a.byName[name]
	return e, ok
}

// Open returns an extraction stream positioned at the first byte of the
// named entry. The local file header is read and validated against the
// central directory before any data is served.
func (a *Archive) Open(name string) (*File, error) {
	e, ok := a.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoEntry, name)
	}

	a.mu.Lock()
	a.refs++
	a.mu.Unlock()
	sh := &sharedReader{
		mu:       &a.mu,
		src:      a.src,
		pos:      e.HeaderOffset,
		seekable: a.seekable,
		release:  a.decref,
	}
	f, err := a.openEntry(sh, e)
	if err != nil {
		sh.Close()
		return nil, err
	}
	return f, nil
}

func (a *Archive) openEntry(sh *sharedReader, e *Entry) (*File, error) {
	var hdr [fileHeaderLen]byte
	if _, err := io.ReadFull(sh, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: truncated file header", ErrCorruptEntry)
	}
	b := readBuf(hdr[:])
	if b.uint32() != fileHeaderSignature {
		return nil, fmt.Errorf("%w: bad magic number for file header", ErrCorruptEntry)
	}
	b.skip(2) // version needed to extract
	flags := b.uint16()
	b.skip(18) // method, mod time/date, crc, sizes
	filenameLen := int(b.uint16())
	extraLen := int(b.uint16())

	// Name and extra lengths in the local header are authoritative for
	// the bytes that follow it; the central directory's values may differ.
	rawName := make([]byte, filenameLen)
	if _, err := io.ReadFull(sh, rawName); err != nil {
		return nil, fmt.Errorf("%w: truncated file header", ErrCorruptEntry)
	}
	if extraLen > 0 {
		if _, err := sh.Seek(int64(extraLen), io.SeekCurrent); err != nil {
			return nil, err
		}
	}

	if e.Flags&flagPatchedData != 0 {
		return nil, fmt.Errorf("%w: compressed patched data (flag bit 5)", ErrUnsupported)
	}
	if e.Flags&flagStrongEncryption != 0 {
		return nil, fmt.Errorf("%w: strong encryption (flag bit 6)", ErrUnsupported)
	}

	name, err := decodeName(rawName, flags)
	if err != nil {
		return nil, err
	}
	if name != e.origName {
		return nil, fmt.Errorf("%w: file name in directory %q and header %q differ",
			ErrCorruptEntry, e.origName, name)
	}

	if e.endOffset > 0 && sh.Tell()+int64(e.CompressedSize64) > e.endOffset {
		return nil, fmt.Errorf("%w: %q (possible zip bomb)", ErrOverlap, e.origName)
	}

	if e.Flags&flagEncrypted != 0 {
		return nil, fmt.Errorf("%w: encrypted entry %q", ErrUnsupported, e.origName)
	}

	dcomp := a.decompressor(e.Method)
	if dcomp == nil {
		return nil, fmt.Errorf("%w: compression method %d", ErrUnsupported, e.Method)
	}
	return newFile(sh, e, dcomp), nil
}

// Close releases the archive's own reference on the underlying stream.
// Entries that are still open keep the stream alive until closed.
func (a *Archive) Close() error {
	return a.decref()
}

func (a *Archive) decref() error {
	a.mu.Lock()
	if a.refs == 0 {
		a.mu.Unlock()
		return nil
	}
	a.refs--
	last := a.refs == 0
	a.mu.Unlock()
	if !last {
		return nil
	}
	if c, ok := a.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
