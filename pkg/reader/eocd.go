package reader

import (
	"encoding/binary"
	"fmt"
	"io"
)

// directoryEnd is the parsed end-of-central-directory record, with the
// 64-bit overrides applied when a valid zip64 locator precedes it.
type directoryEnd struct {
	diskNbr          uint32
	dirDiskNbr       uint32
	dirRecordsOnDisk uint64
	directoryRecords uint64
	directorySize    uint64
	directoryOffset  uint64
	commentLen       uint16
	comment          string

	// fileOffset is the absolute offset at which the record was found.
	fileOffset int64
	// zip64 reports whether the 64-bit record supplied the values above.
	zip64 bool
}

// readDirectoryEnd locates and parses the archive trailer. The record is
// expected in the last 22 bytes when the archive carries no comment;
// otherwise the last 64 KiB (plus record size) are scanned backward for
// the rightmost plausible signature, since comment bytes may themselves
// contain the signature.
func readDirectoryEnd(src Source) (*directoryEnd, error) {
	size, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if size < directoryEndLen {
		return nil, ErrNotZip
	}

	buf := make([]byte, directoryEndLen)
	if _, err := src.Seek(size-directoryEndLen, io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(src, buf); err != nil {
		return nil, err
	}
	if binary.LittleEndian.Uint32(buf) == directoryEndSignature && buf[20] == 0 && buf[21] == 0 {
		d := parseDirectoryEnd(buf, size-directoryEndLen)
		return readDirectory64End(src, d)
	}

	scanStart := size - (1<<16 + directoryEndLen)
	if scanStart < 0 {
		scanStart = 0
	}
	data := make([]byte, size-scanStart)
	if _, err := src.Seek(scanStart, io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(src, data); err != nil {
		return nil, err
	}
	p := findSignatureInBlock(data)
	if p < 0 {
		return nil, ErrNotZip
	}
	d := parseDirectoryEnd(data[p:p+directoryEndLen], scanStart+int64(p))
	comment := data[p+directoryEndLen:]
	if int(d.commentLen) < len(comment) {
		comment = comment[:d.commentLen]
	}
	d.comment = string(comment)
	return readDirectory64End(src, d)
}

func parseDirectoryEnd(rec []byte, fileOffset int64) *directoryEnd {
	b := readBuf(rec)
	b.skip(4) // signature, checked by the caller
	return &directoryEnd{
		diskNbr:          uint32(b.uint16()),
		dirDiskNbr:       uint32(b.uint16()),
		dirRecordsOnDisk: uint64(b.uint16()),
		directoryRecords: uint64(b.uint16()),
		directorySize:    uint64(b.uint32()),
		directoryOffset:  uint64(b.uint32()),
		commentLen:       b.uint16(),
		fileOffset:       fileOffset,
	}
}

// findSignatureInBlock scans backward for the rightmost EOCD signature
// whose declared comment length fits inside the block. The length check
// rejects signature bytes embedded in a trailing comment.
func findSignatureInBlock(b []byte) int {
	for i := len(b) - directoryEndLen; i >= 0; i-- {
		if binary.LittleEndian.Uint32(b[i:i+4]) == directoryEndSignature {
			commentLen := int(b[i+directoryEndLen-2]) | int(b[i+directoryEndLen-1])<<8
			if i+directoryEndLen+commentLen <= len(b) {
				return i
			}
		}
	}
	return -1
}

// readDirectory64End attempts to upgrade d with the zip64 record located
// directly before it. Structural problems (no locator, wrong signatures,
// truncated reads) silently keep the 32-bit values; a multi-disk archive
// is fatal.
func readDirectory64End(src Source, d *directoryEnd) (*directoryEnd, error) {
	locOffset := d.fileOffset - directory64LocLen
	if locOffset < 0 {
		return d, nil
	}
	buf := make([]byte, directory64LocLen)
	if _, err := src.Seek(locOffset, io.SeekStart); err != nil {
		return d, nil
	}
	if _, err := io.ReadFull(src, buf); err != nil {
		return d, nil
	}
	b := readBuf(buf)
	if b.uint32() != directory64LocSignature {
		return d, nil
	}
	diskNbr := b.uint32()
	b.skip(8) // offset of the zip64 record; it sits directly before the locator
	totalDisks := b.uint32()
	if diskNbr != 0 || totalDisks > 1 {
		return nil, fmt.Errorf("%w: archives spanning multiple disks", ErrUnsupported)
	}

	endOffset := locOffset - directory64EndLen
	if endOffset < 0 {
		return d, nil
	}
	buf = make([]byte, directory64EndLen)
	if _, err := src.Seek(endOffset, io.SeekStart); err != nil {
		return d, nil
	}
	if _, err := io.ReadFull(src, buf); err != nil {
		return d, nil
	}
	b = readBuf(buf)
	if b.uint32() != directory64EndSignature {
		return d, nil
	}
	b.skip(12) // record size, version made by, version needed
	d.diskNbr = b.uint32()
	d.dirDiskNbr = b.uint32()
	d.dirRecordsOnDisk = b.uint64()
	d.directoryRecords = b.uint64()
	d.directorySize = b.uint64()
	d.directoryOffset = b.uint64()
	d.zip64 = true
	return d, nil
}
