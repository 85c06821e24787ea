package persistence

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/hupe1980/flatgo/distance"
)

// chunkFloats bounds the scratch buffers used while streaming sections.
const chunkFloats = 64 * 1024

var byteOrder = binary.LittleEndian

// Encode writes s to w in the snapshot layout.
func Encode(w io.Writer, s Snapshot) error {
	if s.Dim <= 0 {
		return fmt.Errorf("persistence: dimension must be positive, got %d", s.Dim)
	}
	if len(s.Data)%s.Dim != 0 {
		return fmt.Errorf("persistence: %d values are not a multiple of dimension %d", len(s.Data), s.Dim)
	}
	if !s.Metric.Valid() {
		return fmt.Errorf("persistence: unknown metric %d", s.Metric)
	}

	header := FileHeader{
		Magic:  MagicNumber,
		Dim:    uint64(s.Dim),
		Count:  uint64(s.Count()),
		Metric: int32(s.Metric),
	}
	if err := binary.Write(w, byteOrder, &header); err != nil {
		return fmt.Errorf("%w: write header: %w", ErrIO, err)
	}

	for start := 0; start < len(s.Data); start += chunkFloats {
		end := min(start+chunkFloats, len(s.Data))
		if err := binary.Write(w, byteOrder, s.Data[start:end]); err != nil {
			return fmt.Errorf("%w: write vectors: %w", ErrIO, err)
		}
	}

	squares := make([]float32, min(chunkFloats, len(s.Data)))
	for start := 0; start < len(s.Data); start += chunkFloats {
		end := min(start+chunkFloats, len(s.Data))
		buf := squares[:end-start]
		for i, v := range s.Data[start:end] {
			buf[i] = v * v
		}
		if err := binary.Write(w, byteOrder, buf); err != nil {
			return fmt.Errorf("%w: write norms: %w", ErrIO, err)
		}
	}
	return nil
}

// ReadHeader reads and validates the snapshot header.
func ReadHeader(r io.Reader) (FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, byteOrder, &header); err != nil {
		return FileHeader{}, readErr("header", err)
	}
	if header.Magic != MagicNumber {
		return FileHeader{}, fmt.Errorf("%w: got %d", ErrInvalidMagic, header.Magic)
	}
	if header.IsFloat16 != 0 {
		return FileHeader{}, fmt.Errorf("%w: float16 payloads are not supported", ErrCorrupt)
	}
	if !distance.Metric(header.Metric).Valid() {
		return FileHeader{}, fmt.Errorf("%w: unknown metric %d", ErrCorrupt, header.Metric)
	}
	if header.Dim == 0 || header.Dim > math.MaxInt32 {
		return FileHeader{}, fmt.Errorf("%w: dimension %d", ErrCorrupt, header.Dim)
	}
	if header.Count > math.MaxInt64/4/header.Dim {
		return FileHeader{}, fmt.Errorf("%w: %d vectors of dimension %d", ErrCorrupt, header.Count, header.Dim)
	}
	return header, nil
}

// Decode reads a snapshot written by Encode. Truncated input yields
// ErrCorrupt. Buffers grow with the bytes actually read, so a forged count
// cannot force a huge allocation up front.
func Decode(r io.Reader) (Snapshot, error) {
	header, err := ReadHeader(r)
	if err != nil {
		return Snapshot{}, err
	}

	total := int(header.Count * header.Dim)
	data := make([]float32, 0, min(total, chunkFloats))
	for len(data) < total {
		n := min(chunkFloats, total-len(data))
		data = append(data, make([]float32, n)...)
		if err := binary.Read(r, byteOrder, data[len(data)-n:]); err != nil {
			return Snapshot{}, readErr("vectors", err)
		}
	}

	if _, err := io.CopyN(io.Discard, r, int64(total)*4); err != nil {
		return Snapshot{}, readErr("norms", err)
	}

	return Snapshot{
		Dim:    int(header.Dim),
		Metric: distance.Metric(header.Metric),
		Data:   data,
	}, nil
}

func readErr(section string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated %s", ErrCorrupt, section)
	}
	return fmt.Errorf("%w: read %s: %w", ErrIO, section, err)
}

// SaveToFile writes a file atomically: writeFunc fills a temp file in the
// target directory, which is then renamed over filename. Missing parent
// directories are created. File system failures are wrapped in ErrIO; any
// failure leaves no temp file behind.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create directory: %w", ErrIO, err)
	}

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrIO, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	_ = tmp.Chmod(0o644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %w", ErrIO, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %w", ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", ErrIO, err)
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return fmt.Errorf("%w: rename: %w", ErrIO, err)
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	tmpName = ""
	return nil
}

// LoadFromFile opens filename and hands a buffered reader to readFunc.
func LoadFromFile(filename string, readFunc func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()

	buf := bufio.NewReaderSize(f, 256*1024)
	return readFunc(buf)
}

// WriteFile encodes s to filename atomically.
func WriteFile(filename string, s Snapshot) error {
	return SaveToFile(filename, func(w io.Writer) error {
		return Encode(w, s)
	})
}

// ReadFile decodes the snapshot stored in filename.
func ReadFile(filename string) (Snapshot, error) {
	var s Snapshot
	err := LoadFromFile(filename, func(r io.Reader) error {
		var err error
		s, err = Decode(r)
		return err
	})
	return s, err
}
