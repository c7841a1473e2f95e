// Package source provides archive streams for the reader package: local
// files, HTTP resources fetched through ranged requests, and S3 objects.
package source

import (
	"io"
	"os"
	"strings"
)

// Stream is what every provider returns: a seekable byte stream that can
// be handed to reader.NewArchive and closed once the archive is done.
type Stream interface {
	io.ReadSeeker
	io.Closer
}

// Open returns a stream for the given archive location. Locations
// starting with http:// or https:// are fetched with ranged requests,
// s3://bucket/key locations are read from S3, anything else is treated
// as a local file path.
func Open(location string) (Stream, error) {
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return OpenURL(location)
	case strings.HasPrefix(location, "s3://"):
		return OpenS3URI(location)
	default:
		return os.Open(location)
	}
}
