package reader

import (
	"io"

	"github.com/klauspost/compress/flate"
)

// A Decompressor wraps the raw compressed byte stream of one entry and
// returns a reader for its uncompressed data.
type Decompressor func(r io.Reader) io.ReadCloser

var decompressors = map[uint16]Decompressor{
	Store:   func(r io.Reader) io.ReadCloser { return io.NopCloser(r) },
	Deflate: flate.NewReader,
}

// RegisterDecompressor registers or overrides a decompressor for a
// specific method ID on this archive only. Methods without a registered
// decompressor fall back to the package defaults (Store and Deflate).
func (a *Archive) RegisterDecompressor(method uint16, dcomp Decompressor) {
	if a.decompressors == nil {
		a.decompressors = make(map[uint16]Decompressor)
	}
	a.decompressors[method] = dcomp
}

func (a *Archive) decompressor(method uint16) Decompressor {
	if dcomp, ok := a.decompressors[method]; ok {
		return dcomp
	}
	return decompressors[method]
}
