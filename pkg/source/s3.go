package source

import (
	"context"
	"fmt"
	"io"
	"strings"

	bufra "github.com/avvmoto/buf-readerat"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	log "github.com/sirupsen/logrus"
)

const s3BufSize = 1 << 20

type s3Stream struct {
	*io.SectionReader
}

func (s *s3Stream) Close() error { return nil }

// s3ReaderAt serves ReadAt calls with ranged GetObject requests, so only
// the byte windows the archive reader asks for are ever downloaded.
type s3ReaderAt struct {
	ctx    context.Context
	svc    *s3.S3
	bucket string
	key    string
	size   int64
}

func (r *s3ReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= r.size {
		return 0, io.EOF
	}
	end := off + int64(len(p)) - 1
	if end >= r.size {
		end = r.size - 1
	}
	byteRange := fmt.Sprintf("bytes=%d-%d", off, end)
	out, err := r.svc.GetObjectWithContext(r.ctx, &s3.GetObjectInput{
		Bucket: &r.bucket,
		Key:    &r.key,
		Range:  &byteRange,
	})
	if err != nil {
		log.Errorf("error getting S3 object (bucket: %s)(key: %s)(range: %s), err: %v", r.bucket, r.key, byteRange, err)
		return 0, err
	}
	defer out.Body.Close()
	n, err := io.ReadFull(out.Body, p[:end-off+1])
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	if err == nil && end-off+1 < int64(len(p)) {
		err = io.EOF
	}
	return n, err
}

// OpenS3 returns a stream over an S3 object using ranged reads. The
// session is configured from the environment and shared config, the same
// way the AWS CLI is.
func OpenS3(bucket, key string) (Stream, error) {
	sess := session.Must(session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	}))
	svc := s3.New(sess)
	ctx := context.Background()

	head, err := svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		log.Errorf("error getting S3 head object (bucket: %s)(key: %s), err: %v", bucket, key, err)
		return nil, err
	}
	size := *head.ContentLength
	ra := &s3ReaderAt{ctx: ctx, svc: svc, bucket: bucket, key: key, size: size}
	buffered := bufra.NewBufReaderAt(ra, s3BufSize)
	return &s3Stream{SectionReader: io.NewSectionReader(buffered, 0, size)}, nil
}

// OpenS3URI accepts an s3://bucket/key location.
func OpenS3URI(uri string) (Stream, error) {
	rest := strings.TrimPrefix(uri, "s3://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return nil, fmt.Errorf("invalid S3 location %q, want s3://bucket/key", uri)
	}
	return OpenS3(bucket, key)
}
