package minio

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flatgo/blobstore"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NotFound"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
}

func TestStore_Key(t *testing.T) {
	s := NewStore(nil, "bucket", "snapshots/")
	assert.Equal(t, "snapshots/a.flat", s.key("a.flat"))

	s = NewStore(nil, "bucket", "")
	assert.Equal(t, "a.flat", s.key("a.flat"))
}

func TestStore_Options(t *testing.T) {
	s := NewStore(nil, "bucket", "p", WithPartSize(16<<20), WithUserMetadata(map[string]string{"dim": "8"}))
	opts := s.putOptions()
	assert.Equal(t, uint64(16<<20), opts.PartSize)
	assert.Equal(t, ContentType, opts.ContentType)
	assert.Equal(t, "8", opts.UserMetadata["dim"])
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate("a", nil))
	assert.ErrorIs(t, translate("a", minio.ErrorResponse{Code: "NoSuchKey"}), blobstore.ErrNotFound)

	err := translate("a", minio.ErrorResponse{Code: "AccessDenied"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, blobstore.ErrNotFound)
}

func TestObject_EmptyRange(t *testing.T) {
	o := &object{size: 4}
	ctx := context.Background()

	n, err := o.ReadAt(ctx, make([]byte, 2), 4)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)

	rc, err := o.ReadRange(ctx, 10, 5)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Empty(t, data)
}

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("FLATGO_MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	bucket := "test-flatgo"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "test.txt", data))

	blob, err := store.Open(ctx, "test.txt")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, len(data))
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, buf)

	rc, err := blob.ReadRange(ctx, 6, 5)
	require.NoError(t, err)
	part, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "minio", string(part))
	require.NoError(t, rc.Close())
	require.NoError(t, blob.Close())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "test.txt")

	require.NoError(t, store.Delete(ctx, "test.txt"))
	_, err = store.Open(ctx, "test.txt")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, blobstore.WriteBlob(ctx, store, "stream.txt", func(w io.Writer) error {
		_, err := w.Write([]byte("streamed data"))
		return err
	}))

	r, err := blobstore.OpenReader(ctx, store, "stream.txt")
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "streamed data", string(got))
	require.NoError(t, r.Close())

	_ = store.Delete(ctx, "stream.txt")
}
