package source

import (
	"io"
	"net/http"

	bufra "github.com/avvmoto/buf-readerat"
	"github.com/snabb/httpreaderat"
	log "github.com/sirupsen/logrus"
)

// httpBufSize is the read-ahead window kept in front of the remote
// resource, so that header probes and sequential entry reads do not each
// turn into a separate request.
const httpBufSize = 1 << 20

type httpStream struct {
	*io.SectionReader
	store io.Closer
}

func (s *httpStream) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// OpenURL returns a stream over a remote resource using HTTP range
// requests. When the server does not support ranges, httpreaderat falls
// back to downloading into a temporary backing store.
func OpenURL(url string) (Stream, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	store := httpreaderat.NewDefaultStore()
	htrdr, err := httpreaderat.New(nil, req, store)
	if err != nil {
		store.Close()
		log.Errorf("error opening remote archive (url: %s), err: %v", url, err)
		return nil, err
	}
	buffered := bufra.NewBufReaderAt(htrdr, httpBufSize)
	return &httpStream{
		SectionReader: io.NewSectionReader(buffered, 0, htrdr.Size()),
		store:         store,
	}, nil
}
