package reader

import (
	"errors"
)

var (
	// ErrNotZip indicates that no end-of-central-directory record was found.
	ErrNotZip = errors.New("zip: unable to locate end of central directory")
	// ErrUnsupported indicates a feature the reader refuses to handle
	// (encryption, multi-disk archives, versions above the ceiling).
	ErrUnsupported = errors.New("zip: unsupported feature")
	// ErrCorruptDirectory indicates a truncated or mis-signed central directory.
	ErrCorruptDirectory = errors.New("zip: corrupt central directory")
	// ErrCorruptEntry indicates a local header that contradicts the central directory.
	ErrCorruptEntry = errors.New("zip: corrupt entry")
	// ErrOverlap indicates entries whose on-disk extents overlap (possible zip bomb).
	ErrOverlap = errors.New("zip: overlapping entries")
	// ErrChecksum indicates a CRC-32 mismatch detected at end of stream.
	ErrChecksum = errors.New("zip: checksum mismatch")
	// ErrNoEntry indicates the requested name is not in the archive.
	ErrNoEntry = errors.New("zip: no such entry")
	// ErrInvalidOperation indicates misuse of a closed or non-seekable stream.
	ErrInvalidOperation = errors.New("zip: invalid operation")
)

const (
	fileHeaderLen      = 30 // + filename + extra
	directoryHeaderLen = 46
	directoryEndLen    = 22 // + comment
	directory64EndLen  = 56
	directory64LocLen  = 20

	fileHeaderSignature      = 0x04034b50
	directoryHeaderSignature = 0x02014b50
	directoryEndSignature    = 0x06054b50
	directory64EndSignature  = 0x06064b50
	directory64LocSignature  = 0x07064b50

	zip64ExtraID       = 0x0001 // Zip64 extended information
	unicodePathExtraID = 0x7075 // Info-ZIP Unicode path
)

// Compression methods.
const (
	Store   uint16 = 0 // no compression
	Deflate uint16 = 8 // DEFLATE compressed
)

// General-purpose flag bits.
const (
	flagEncrypted        = 0x0001
	flagPatchedData      = 0x0020
	flagStrongEncryption = 0x0040
	flagUTF8             = 0x0800
)

// MaxExtractVersion is the highest "version needed to extract" value the
// reader accepts. 63 corresponds to the 6.3 revision of the zip appnote;
// raising it is a compatibility policy choice, not a format change.
var MaxExtractVersion uint8 = 63

const (
	// minReadSize is the smallest compressed chunk pulled from the
	// underlying stream, so that tiny caller reads do not translate into
	// pathological numbers of small (possibly remote) I/O operations.
	minReadSize = 4096
	// maxSeekRead bounds each read-and-discard step while replaying a
	// stream to reach a seek target.
	maxSeekRead = 1 << 24
)
