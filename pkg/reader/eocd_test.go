package reader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"strings"
	"testing"
)

func TestReadDirectoryEnd(t *testing.T) {
	entries := []fixtureEntry{{name: "a.txt", data: []byte("alpha"), method: Store}}

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{
			name: "no comment",
			data: buildArchive(t, entries, ""),
		},
		{
			name: "with comment",
			data: buildArchive(t, entries, "release build 42"),
		},
		{
			name: "comment containing decoy signature",
			data: buildArchive(t, entries, "PK\x05\x06"+strings.Repeat("A", 40)),
		},
		{
			name: "decoy signature in entry data",
			data: buildArchive(t, []fixtureEntry{
				{name: "a.txt", data: append([]byte("PK\x05\x06"), make([]byte, 40)...), method: Store},
			}, "trailing comment"),
		},
		{
			name:    "not a zip",
			data:    bytes.Repeat([]byte{0}, 100),
			wantErr: ErrNotZip,
		},
		{
			name:    "too small",
			data:    []byte("tiny"),
			wantErr: ErrNotZip,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := readDirectoryEnd(bytes.NewReader(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("readDirectoryEnd: %v", err)
			}
			if d.directoryRecords != 1 {
				t.Errorf("directoryRecords = %d, want 1", d.directoryRecords)
			}
			if d.fileOffset != int64(d.directoryOffset)+int64(d.directorySize) {
				t.Errorf("record at %d, directory ends at %d", d.fileOffset, int64(d.directoryOffset)+int64(d.directorySize))
			}
		})
	}
}

// buildZip64Archive lays out one stored "hello" entry whose central
// directory sizes are sentinel values widened by a zip64 extra field,
// followed by a zip64 end record, its locator and the 32-bit trailer.
func buildZip64Archive(t *testing.T, locatorDisks uint32, corruptLocatorSig bool) []byte {
	t.Helper()
	const name = "big.bin"
	data := []byte("hello")
	buf := new(bytes.Buffer)
	le := binary.LittleEndian

	// local file header
	binary.Write(buf, le, uint32(fileHeaderSignature))
	binary.Write(buf, le, uint16(45))
	binary.Write(buf, le, uint16(0))
	binary.Write(buf, le, Store)
	binary.Write(buf, le, uint32(0))
	binary.Write(buf, le, crc32.ChecksumIEEE(data))
	binary.Write(buf, le, uint32(len(data)))
	binary.Write(buf, le, uint32(len(data)))
	binary.Write(buf, le, uint16(len(name)))
	binary.Write(buf, le, uint16(0))
	buf.WriteString(name)
	buf.Write(data)

	// central directory record with sentinel sizes and a zip64 extra
	cdOffset := uint64(buf.Len())
	extra := new(bytes.Buffer)
	binary.Write(extra, le, uint16(zip64ExtraID))
	binary.Write(extra, le, uint16(16))
	binary.Write(extra, le, uint64(len(data))) // uncompressed
	binary.Write(extra, le, uint64(len(data))) // compressed
	binary.Write(buf, le, uint32(directoryHeaderSignature))
	binary.Write(buf, le, uint16(45))
	binary.Write(buf, le, uint16(45))
	binary.Write(buf, le, uint16(0))
	binary.Write(buf, le, Store)
	binary.Write(buf, le, uint32(0))
	binary.Write(buf, le, crc32.ChecksumIEEE(data))
	binary.Write(buf, le, uint32(0xffffffff))
	binary.Write(buf, le, uint32(0xffffffff))
	binary.Write(buf, le, uint16(len(name)))
	binary.Write(buf, le, uint16(extra.Len()))
	binary.Write(buf, le, uint16(0))
	binary.Write(buf, le, uint16(0))
	binary.Write(buf, le, uint16(0))
	binary.Write(buf, le, uint32(0))
	binary.Write(buf, le, uint32(0))
	buf.WriteString(name)
	buf.Write(extra.Bytes())
	cdSize := uint64(buf.Len()) - cdOffset

	// zip64 end of central directory
	eocd64Offset := uint64(buf.Len())
	binary.Write(buf, le, uint32(directory64EndSignature))
	binary.Write(buf, le, uint64(44))
	binary.Write(buf, le, uint16(45))
	binary.Write(buf, le, uint16(45))
	binary.Write(buf, le, uint32(0))
	binary.Write(buf, le, uint32(0))
	binary.Write(buf, le, uint64(1))
	binary.Write(buf, le, uint64(1))
	binary.Write(buf, le, cdSize)
	binary.Write(buf, le, cdOffset)

	// zip64 locator
	locSig := uint32(directory64LocSignature)
	if corruptLocatorSig {
		locSig = 0xdeadbeef
	}
	binary.Write(buf, le, locSig)
	binary.Write(buf, le, uint32(0))
	binary.Write(buf, le, eocd64Offset)
	binary.Write(buf, le, locatorDisks)

	// 32-bit trailer
	binary.Write(buf, le, uint32(directoryEndSignature))
	binary.Write(buf, le, uint16(0))
	binary.Write(buf, le, uint16(0))
	binary.Write(buf, le, uint16(1))
	binary.Write(buf, le, uint16(1))
	binary.Write(buf, le, uint32(cdSize))
	binary.Write(buf, le, uint32(cdOffset))
	binary.Write(buf, le, uint16(0))
	return buf.Bytes()
}

func TestZip64Widening(t *testing.T) {
	data := buildZip64Archive(t, 1, false)
	a := openArchive(t, data)

	infos := a.List()
	if len(infos) != 1 {
		t.Fatalf("List() = %d entries, want 1", len(infos))
	}
	if infos[0].CompressedSize != 5 || infos[0].UncompressedSize != 5 {
		t.Fatalf("sizes = %d/%d, want 5/5 from zip64 extra", infos[0].CompressedSize, infos[0].UncompressedSize)
	}

	f, err := a.Open("big.bin")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("content = %q, want %q", got, "hello")
	}
}

func TestZip64MultiDisk(t *testing.T) {
	data := buildZip64Archive(t, 2, false)
	_, err := NewArchive(bytes.NewReader(data))
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestZip64LocatorFallback(t *testing.T) {
	// An empty archive preceded by 20 bytes of garbage: the locator probe
	// reads the garbage, sees no signature and keeps the 32-bit record.
	buf := new(bytes.Buffer)
	le := binary.LittleEndian
	buf.Write(bytes.Repeat([]byte{0xEE}, 20))
	binary.Write(buf, le, uint32(directoryEndSignature))
	binary.Write(buf, le, uint16(0))
	binary.Write(buf, le, uint16(0))
	binary.Write(buf, le, uint16(0))
	binary.Write(buf, le, uint16(0))
	binary.Write(buf, le, uint32(0))
	binary.Write(buf, le, uint32(20))
	binary.Write(buf, le, uint16(0))

	a := openArchive(t, buf.Bytes())
	if got := a.List(); len(got) != 0 {
		t.Fatalf("List() = %d entries, want 0", len(got))
	}
}

func TestZip64CorruptLocatorSigFallsBackCleanly(t *testing.T) {
	// The locator signature is damaged. The reader must not fail the open
	// on the locator itself; it falls back to the 32-bit record. With the
	// zip64 records still occupying bytes before the trailer, the 32-bit
	// offsets no longer line up, which surfaces as a directory error, not
	// an unsupported-feature or locator error.
	data := buildZip64Archive(t, 1, true)
	_, err := NewArchive(bytes.NewReader(data))
	if !errors.Is(err, ErrCorruptDirectory) {
		t.Fatalf("err = %v, want ErrCorruptDirectory", err)
	}
}
