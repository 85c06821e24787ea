package flatgo

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/flatgo/blobstore"
	"github.com/hupe1980/flatgo/persistence"
	"github.com/hupe1980/flatgo/resource"
)

var (
	_ io.WriterTo   = (*Index)(nil)
	_ io.ReaderFrom = (*Index)(nil)
)

// snapshot returns a view of the index content. The caller must hold idx.mu.
func (idx *Index) snapshot() persistence.Snapshot {
	return persistence.Snapshot{
		Dim:    idx.store.Dim(),
		Metric: idx.store.Metric(),
		Data:   idx.store.Data(),
	}
}

func (idx *Index) restore(s persistence.Snapshot) error {
	return translateError(idx.store.Restore(s.Dim, s.Metric, s.Data))
}

func (idx *Index) throttledWriter(ctx context.Context, w io.Writer) io.Writer {
	if idx.resources == nil {
		return w
	}
	return resource.NewRateLimitedWriter(ctx, w, idx.resources)
}

func (idx *Index) throttledReader(ctx context.Context, r io.Reader) io.Reader {
	if idx.resources == nil {
		return r
	}
	return resource.NewRateLimitedReader(ctx, r, idx.resources)
}

// WriteTo writes the index in the snapshot format.
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	s := idx.snapshot()
	if err := persistence.Encode(idx.throttledWriter(context.Background(), w), s); err != nil {
		return 0, err
	}
	return s.EncodedSize(), nil
}

// ReadFrom replaces the index content with a snapshot read from r. On error
// the index is unchanged.
func (idx *Index) ReadFrom(r io.Reader) (int64, error) {
	s, err := persistence.Decode(idx.throttledReader(context.Background(), r))
	if err != nil {
		return 0, err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.restore(s); err != nil {
		return 0, err
	}
	return s.EncodedSize(), nil
}

// Save writes the index to path atomically. Missing parent directories are
// created.
func (idx *Index) Save(path string) error {
	start := time.Now()
	ctx := context.Background()

	idx.mu.RLock()
	s := idx.snapshot()
	err := persistence.SaveToFile(path, func(w io.Writer) error {
		return persistence.Encode(idx.throttledWriter(ctx, w), s)
	})
	idx.mu.RUnlock()

	idx.metrics.RecordSave(s.EncodedSize(), time.Since(start), err)
	idx.logger.LogSave(ctx, path, s.Count(), err)
	return err
}

// Load replaces the index content with the snapshot stored at path. The
// dimension and metric are taken from the snapshot. On error the index is
// unchanged.
func (idx *Index) Load(path string) error {
	start := time.Now()
	ctx := context.Background()

	var s persistence.Snapshot
	err := persistence.LoadFromFile(path, func(r io.Reader) error {
		var err error
		s, err = persistence.Decode(idx.throttledReader(ctx, r))
		return err
	})
	if err == nil {
		idx.mu.Lock()
		err = idx.restore(s)
		idx.mu.Unlock()
	}

	idx.metrics.RecordLoad(s.Count(), time.Since(start), err)
	idx.logger.LogLoad(ctx, path, s.Count(), err)
	return err
}

// SaveBlob writes the index to a blob store, compressed with the configured
// compression.
func (idx *Index) SaveBlob(ctx context.Context, store blobstore.BlobStore, name string) error {
	start := time.Now()

	idx.mu.RLock()
	s := idx.snapshot()
	err := blobstore.WriteBlob(ctx, store, name, func(w io.Writer) error {
		cw, err := persistence.NewWriter(idx.throttledWriter(ctx, w), idx.compression)
		if err != nil {
			return err
		}
		if err := persistence.Encode(cw, s); err != nil {
			_ = cw.Close()
			return err
		}
		return cw.Close()
	})
	idx.mu.RUnlock()

	if err != nil {
		err = fmt.Errorf("save blob %q: %w", name, err)
	}
	idx.metrics.RecordSave(s.EncodedSize(), time.Since(start), err)
	idx.logger.LogSave(ctx, name, s.Count(), err)
	return err
}

// LoadBlob replaces the index content with a snapshot read from a blob
// store. The compression is detected from the stream. On error the index is
// unchanged.
func (idx *Index) LoadBlob(ctx context.Context, store blobstore.BlobStore, name string) error {
	start := time.Now()

	s, err := idx.readBlob(ctx, store, name)
	if err == nil {
		idx.mu.Lock()
		err = idx.restore(s)
		idx.mu.Unlock()
	}
	if err != nil {
		err = fmt.Errorf("load blob %q: %w", name, err)
	}

	idx.metrics.RecordLoad(s.Count(), time.Since(start), err)
	idx.logger.LogLoad(ctx, name, s.Count(), err)
	return err
}

func (idx *Index) readBlob(ctx context.Context, store blobstore.BlobStore, name string) (persistence.Snapshot, error) {
	rc, err := blobstore.OpenReader(ctx, store, name)
	if err != nil {
		return persistence.Snapshot{}, err
	}
	defer rc.Close()

	zr, _, err := persistence.NewReader(idx.throttledReader(ctx, rc))
	if err != nil {
		return persistence.Snapshot{}, err
	}
	defer zr.Close()

	return persistence.Decode(zr)
}
