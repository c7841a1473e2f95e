package reader

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"testing"
)

type fixtureEntry struct {
	name   string
	data   []byte
	method uint16
}

// buildArchive produces a well-formed archive with the standard library
// writer. Good for happy-path fixtures; use buildRaw for malformed ones.
func buildArchive(t *testing.T, entries []fixtureEntry, comment string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	if comment != "" {
		if err := zw.SetComment(comment); err != nil {
			t.Fatalf("SetComment: %v", err)
		}
	}
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: e.method})
		if err != nil {
			t.Fatalf("CreateHeader(%q): %v", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			t.Fatalf("Write(%q): %v", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

// rawEntry describes one stored entry for buildRaw. Zero values for the
// overridable fields mean "use the real value".
type rawEntry struct {
	name    string
	lfhName string // defaults to name
	data    []byte
	flags   uint16
	version uint8 // version needed to extract, defaults to 20
	extra   []byte
	csize   uint32 // central directory compressed size override
	usize   uint32 // central directory uncompressed size override
}

// buildRaw assembles an archive byte by byte, so tests can produce
// inconsistent headers the standard writer refuses to emit. All entries
// are stored (method 0).
func buildRaw(entries []rawEntry, comment string) []byte {
	buf := new(bytes.Buffer)
	le := binary.LittleEndian

	type placed struct {
		off uint32
		e   rawEntry
		crc uint32
	}
	var laid []placed
	for _, e := range entries {
		if e.lfhName == "" {
			e.lfhName = e.name
		}
		if e.version == 0 {
			e.version = 20
		}
		crc := crc32.ChecksumIEEE(e.data)
		laid = append(laid, placed{off: uint32(buf.Len()), e: e, crc: crc})

		binary.Write(buf, le, uint32(fileHeaderSignature))
		binary.Write(buf, le, uint16(e.version))
		binary.Write(buf, le, e.flags)
		binary.Write(buf, le, Store)
		binary.Write(buf, le, uint32(0)) // mod time and date
		binary.Write(buf, le, crc)
		binary.Write(buf, le, uint32(len(e.data)))
		binary.Write(buf, le, uint32(len(e.data)))
		binary.Write(buf, le, uint16(len(e.lfhName)))
		binary.Write(buf, le, uint16(0)) // extra length
		buf.WriteString(e.lfhName)
		buf.Write(e.data)
	}

	cdOffset := uint32(buf.Len())
	for _, p := range laid {
		e := p.e
		csize := e.csize
		if csize == 0 {
			csize = uint32(len(e.data))
		}
		usize := e.usize
		if usize == 0 {
			usize = uint32(len(e.data))
		}
		binary.Write(buf, le, uint32(directoryHeaderSignature))
		binary.Write(buf, le, uint16(20)) // version made by
		binary.Write(buf, le, uint16(e.version))
		binary.Write(buf, le, e.flags)
		binary.Write(buf, le, Store)
		binary.Write(buf, le, uint32(0)) // mod time and date
		binary.Write(buf, le, p.crc)
		binary.Write(buf, le, csize)
		binary.Write(buf, le, usize)
		binary.Write(buf, le, uint16(len(e.name)))
		binary.Write(buf, le, uint16(len(e.extra)))
		binary.Write(buf, le, uint16(0)) // comment length
		binary.Write(buf, le, uint16(0)) // disk number
		binary.Write(buf, le, uint16(0)) // internal attributes
		binary.Write(buf, le, uint32(0)) // external attributes
		binary.Write(buf, le, p.off)
		buf.WriteString(e.name)
		buf.Write(e.extra)
	}
	cdSize := uint32(buf.Len()) - cdOffset

	binary.Write(buf, le, uint32(directoryEndSignature))
	binary.Write(buf, le, uint16(0)) // disk number
	binary.Write(buf, le, uint16(0)) // directory disk number
	binary.Write(buf, le, uint16(len(entries)))
	binary.Write(buf, le, uint16(len(entries)))
	binary.Write(buf, le, cdSize)
	binary.Write(buf, le, cdOffset)
	binary.Write(buf, le, uint16(len(comment)))
	buf.WriteString(comment)
	return buf.Bytes()
}

func openArchive(t *testing.T, data []byte) *Archive {
	t.Helper()
	a, err := NewArchive(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

// pattern produces n bytes of non-repeating but deterministic content.
func pattern(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + i>>8)
	}
	return data
}
