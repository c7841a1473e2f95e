package reader

import (
	"fmt"
	"hash/crc32"
	"io"
	"sort"
)

// readDirectory locates the central directory, decodes every record into
// an Entry, and computes each entry's exclusive end offset.
func (a *Archive) readDirectory() error {
	d, err := readDirectoryEnd(a.src)
	if err != nil {
		return err
	}
	a.Comment = d.comment

	// The directory ends at or before its own trailer, so its declared
	// size can never exceed the trailer's offset. Checking here keeps the
	// arithmetic below and the directory allocation in range.
	if d.directorySize > uint64(d.fileOffset) {
		return fmt.Errorf("%w: directory size out of range", ErrCorruptDirectory)
	}

	// concat compensates for the archive being embedded behind leading
	// bytes inside a larger file (self-extractors, firmware images).
	concat := d.fileOffset - int64(d.directorySize) - int64(d.directoryOffset)
	if d.zip64 {
		concat -= directory64EndLen + directory64LocLen
	}
	startDir := int64(d.directoryOffset) + concat
	if startDir < 0 {
		return fmt.Errorf("%w: bad offset for central directory", ErrCorruptDirectory)
	}

	if _, err := a.src.Seek(startDir, io.SeekStart); err != nil {
		return err
	}
	data := make([]byte, d.directorySize)
	if _, err := io.ReadFull(a.src, data); err != nil {
		return fmt.Errorf("%w: truncated central directory", ErrCorruptDirectory)
	}

	b := readBuf(data)
	for len(b) > 0 {
		if len(b) < directoryHeaderLen {
			return fmt.Errorf("%w: truncated central directory", ErrCorruptDirectory)
		}
		if b.uint32() != directoryHeaderSignature {
			return fmt.Errorf("%w: bad magic number for central directory", ErrCorruptDirectory)
		}
		b.skip(2) // version made by
		e := &Entry{}
		e.ExtractVersion = b.uint8()
		b.skip(1) // reserved
		e.Flags = b.uint16()
		e.Method = b.uint16()
		b.skip(4) // modification time and date
		e.CRC32 = b.uint32()
		e.CompressedSize64 = uint64(b.uint32())
		e.UncompressedSize64 = uint64(b.uint32())
		filenameLen := int(b.uint16())
		extraLen := int(b.uint16())
		commentLen := int(b.uint16())
		b.skip(8) // disk number, internal and external attributes
		e.HeaderOffset = int64(b.uint32())

		if len(b) < filenameLen+extraLen+commentLen {
			return fmt.Errorf("%w: truncated central directory", ErrCorruptDirectory)
		}
		rawName := b.bytes(filenameLen)
		extra := b.sub(extraLen)
		e.Comment = string(b.bytes(commentLen))

		if e.ExtractVersion > MaxExtractVersion {
			return fmt.Errorf("%w: zip file version %.1f", ErrUnsupported, float64(e.ExtractVersion)/10)
		}

		name, err := decodeName(rawName, e.Flags)
		if err != nil {
			return err
		}
		e.origName = name
		e.Name = sanitizeName(name)
		if err := e.decodeExtra(extra, crc32.ChecksumIEEE(rawName)); err != nil {
			return err
		}
		e.HeaderOffset += concat

		a.entries = append(a.entries, e)
		a.byName[e.Name] = e
	}

	// Sweep from the highest header offset down, so that every entry gets
	// the start of its on-disk successor (or of the central directory) as
	// its exclusive upper bound, whatever order the directory listed them.
	order := append([]*Entry(nil), a.entries...)
	sort.Slice(order, func(i, j int) bool {
		return order[i].HeaderOffset > order[j].HeaderOffset
	})
	end := startDir
	for _, e := range order {
		e.endOffset = end
		end = e.HeaderOffset
	}
	return nil
}
