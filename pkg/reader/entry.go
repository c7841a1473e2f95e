package reader

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Entry describes one member of the archive, decoded from its central
// directory record. Entries are immutable once the directory is parsed.
type Entry struct {
	// Name is the sanitized entry name: no embedded NUL, path separators
	// normalized to forward slashes.
	Name string

	// origName is the name exactly as decoded from the central directory,
	// before sanitization and before any Unicode-path override. The local
	// file header is validated against it on open.
	origName string

	Comment string

	Flags          uint16
	Method         uint16
	ExtractVersion uint8

	CRC32              uint32
	CompressedSize64   uint64
	UncompressedSize64 uint64

	// HeaderOffset is the absolute offset of this entry's local file
	// header, adjusted for any leading bytes the archive is embedded
	// behind.
	HeaderOffset int64

	// endOffset is the exclusive upper bound of this entry's on-disk
	// extent: the next entry's header offset in on-disk order, or the
	// start of the central directory for the last entry. Computed by the
	// directory parser, used by Open to reject overlapping entries.
	endOffset int64
}

// sanitizeName strips everything from the first NUL byte on and
// normalizes backslash separators to forward slashes.
func sanitizeName(name string) string {
	if i := strings.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return strings.ReplaceAll(name, `\`, "/")
}

// decodeName interprets raw filename bytes according to the
// general-purpose flags: UTF-8 when bit 11 is set, codepage 437 otherwise.
func decodeName(raw []byte, flags uint16) (string, error) {
	if flags&flagUTF8 != 0 {
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("%w: file name is not valid utf-8", ErrCorruptDirectory)
		}
		return string(raw), nil
	}
	var sb strings.Builder
	sb.Grow(len(raw))
	for _, c := range raw {
		sb.WriteRune(charmap.CodePage437.DecodeByte(c))
	}
	return sb.String(), nil
}

// decodeExtra walks the central-directory extra field. A zip64 record
// (0x0001) widens whichever of the three fixed fields were flagged with
// their sentinel values; a missing expected sub-field is fatal. A Unicode
// path record (0x7075) replaces Name when its embedded CRC-32 of the raw
// legacy name matches; on a CRC mismatch the legacy name is kept.
func (e *Entry) decodeExtra(extra readBuf, nameCRC uint32) error {
	for len(extra) >= 4 {
		tag := extra.uint16()
		size := int(extra.uint16())
		if size > len(extra) {
			return fmt.Errorf("%w: corrupt extra field %04x (size=%d)", ErrCorruptDirectory, tag, size)
		}
		field := extra.sub(size)

		switch tag {
		case zip64ExtraID:
			if e.UncompressedSize64 == 0xffffffff || e.UncompressedSize64 == ^uint64(0) {
				if len(field) < 8 {
					return fmt.Errorf("%w: corrupt zip64 extra field, file size not found", ErrCorruptDirectory)
				}
				e.UncompressedSize64 = field.uint64()
			}
			if e.CompressedSize64 == 0xffffffff {
				if len(field) < 8 {
					return fmt.Errorf("%w: corrupt zip64 extra field, compress size not found", ErrCorruptDirectory)
				}
				e.CompressedSize64 = field.uint64()
			}
			if e.HeaderOffset == 0xffffffff {
				if len(field) < 8 {
					return fmt.Errorf("%w: corrupt zip64 extra field, header offset not found", ErrCorruptDirectory)
				}
				e.HeaderOffset = int64(field.uint64())
			}

		case unicodePathExtraID:
			if len(field) < 5 {
				return fmt.Errorf("%w: corrupt unicode path extra field (0x7075)", ErrCorruptDirectory)
			}
			version := field.uint8()
			crc := field.uint32()
			if version != 1 || crc != nameCRC {
				// A stale CRC means the legacy name was edited after the
				// unicode record was written. Keep the legacy name.
				continue
			}
			if !utf8.Valid(field) {
				return fmt.Errorf("%w: corrupt unicode path extra field (0x7075): invalid utf-8 bytes", ErrCorruptDirectory)
			}
			if len(field) > 0 {
				e.Name = sanitizeName(string(field))
			}
		}
	}
	return nil
}
