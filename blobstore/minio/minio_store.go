package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/flatgo/blobstore"
)

// ContentType is set on every uploaded snapshot object.
const ContentType = "application/octet-stream"

var errAborted = errors.New("minio: upload aborted")

// Option configures a Store.
type Option func(*Store)

// WithPartSize sets the multipart part size of streaming uploads. Zero lets
// the client choose.
func WithPartSize(n uint64) Option {
	return func(s *Store) { s.partSize = n }
}

// WithUserMetadata attaches metadata to every uploaded object.
func WithUserMetadata(meta map[string]string) Option {
	return func(s *Store) { s.meta = meta }
}

// Store keeps snapshots as objects in one bucket under an optional prefix.
type Store struct {
	client   *minio.Client
	bucket   string
	prefix   string
	partSize uint64
	meta     map[string]string
}

var _ blobstore.BlobStore = (*Store)(nil)

// NewStore creates a store over bucket. Object names are prefix + "/" + name.
func NewStore(client *minio.Client, bucket, prefix string, optFns ...Option) *Store {
	s := &Store{client: client, bucket: bucket, prefix: prefix}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *Store) putOptions() minio.PutObjectOptions {
	return minio.PutObjectOptions{
		ContentType:  ContentType,
		PartSize:     s.partSize,
		UserMetadata: s.meta,
	}
}

// Open stats the object and returns a handle that reads it by range.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	obj := object{client: s.client, bucket: s.bucket, key: s.key(name)}

	info, err := s.client.StatObject(ctx, obj.bucket, obj.key, minio.StatObjectOptions{})
	if err != nil {
		return nil, translate(name, err)
	}
	obj.size = info.Size
	return &obj, nil
}

// Put uploads data in one request.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)), s.putOptions())
	return translate(name, err)
}

// Create starts a streaming multipart upload. The object appears on Close;
// Abort cancels the upload.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	pr, pw := io.Pipe()
	u := &upload{pw: pw, cancel: cancel, done: make(chan error, 1)}

	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, s.key(name), pr, -1, s.putOptions())
		pr.CloseWithError(err)
		u.done <- translate(name, err)
	}()
	return u, nil
}

// Delete removes the object. A missing object is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err = translate(name, err); errors.Is(err, blobstore.ErrNotFound) {
		return nil
	}
	return err
}

// List returns the sorted names below prefix, relative to the store prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	opts := minio.ListObjectsOptions{Prefix: s.key(prefix), Recursive: true}

	var names []string
	for info := range s.client.ListObjects(ctx, s.bucket, opts) {
		if info.Err != nil {
			return nil, info.Err
		}
		if name := strings.TrimPrefix(strings.TrimPrefix(info.Key, s.prefix), "/"); name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

func translate(name string, err error) error {
	switch {
	case err == nil:
		return nil
	case isNotFound(err):
		return fmt.Errorf("minio: %s: %w", name, blobstore.ErrNotFound)
	default:
		return fmt.Errorf("minio: %s: %w", name, err)
	}
}

// object reads one stored snapshot by byte range.
type object struct {
	client *minio.Client
	bucket string
	key    string
	size   int64
}

func (o *object) Size() int64 { return o.size }

func (o *object) Close() error { return nil }

// get opens [off, off+length) clipped to the object, or nil when the range is empty.
func (o *object) get(ctx context.Context, off, length int64) (*minio.Object, int64, error) {
	end := min(off+length, o.size)
	if off < 0 || off >= end {
		return nil, 0, nil
	}

	var opts minio.GetObjectOptions
	if err := opts.SetRange(off, end-1); err != nil {
		return nil, 0, err
	}
	r, err := o.client.GetObject(ctx, o.bucket, o.key, opts)
	if err != nil {
		return nil, 0, err
	}
	return r, end - off, nil
}

func (o *object) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	r, n, err := o.get(ctx, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	if r == nil {
		return 0, io.EOF
	}
	defer r.Close()

	read, err := io.ReadFull(r, p[:n])
	if err == nil && read < len(p) {
		err = io.EOF
	}
	return read, err
}

func (o *object) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	r, _, err := o.get(ctx, off, length)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	return r, nil
}

// upload feeds a background PutObject through a pipe.
type upload struct {
	pw     *io.PipeWriter
	cancel context.CancelCauseFunc
	done   chan error
	closed bool
}

func (u *upload) Write(p []byte) (int, error) {
	return u.pw.Write(p)
}

func (u *upload) Close() error {
	if u.closed {
		return errors.New("minio: upload already closed")
	}
	u.closed = true
	defer u.cancel(nil)

	if err := u.pw.Close(); err != nil {
		return err
	}
	return <-u.done
}

func (u *upload) Abort() error {
	if u.closed {
		return nil
	}
	u.closed = true
	u.cancel(errAborted)
	u.pw.CloseWithError(errAborted)
	<-u.done
	return nil
}
