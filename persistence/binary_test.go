package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flatgo/distance"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Dim:    3,
		Metric: distance.MetricL2,
		Data:   []float32{1, 2, 3, -4, 5.5, 0, float32(math.Pi), 1e-7, -1e7},
	}
}

func TestEncode_Layout(t *testing.T) {
	s := Snapshot{Dim: 2, Metric: distance.MetricL2, Data: []float32{1, -2, 3, 4}}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, s))
	b := buf.Bytes()

	require.Len(t, b, HeaderSize+2*4*4)
	assert.Equal(t, s.EncodedSize(), int64(len(b)))
	assert.Equal(t, uint64(1145), binary.LittleEndian.Uint64(b[0:]))
	assert.Equal(t, uint64(2), binary.LittleEndian.Uint64(b[8:]))
	assert.Equal(t, uint64(2), binary.LittleEndian.Uint64(b[16:]))
	assert.Equal(t, byte(0), b[24])
	assert.Equal(t, int32(1), int32(binary.LittleEndian.Uint32(b[25:])))

	floatAt := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b[off:])) }
	for i, v := range s.Data {
		assert.Equal(t, v, floatAt(HeaderSize+4*i))
		assert.Equal(t, v*v, floatAt(HeaderSize+16+4*i))
	}
}

func TestRoundTrip(t *testing.T) {
	for _, s := range []Snapshot{
		sampleSnapshot(),
		{Dim: 5, Metric: distance.MetricInnerProduct, Data: nil},
		{Dim: 1, Metric: distance.MetricInnerProduct, Data: make([]float32, 3*chunkFloats+7)},
	} {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, s))

		got, err := Decode(&buf)
		require.NoError(t, err)
		assert.Equal(t, s.Dim, got.Dim)
		assert.Equal(t, s.Metric, got.Metric)
		assert.Equal(t, s.Count(), got.Count())
		require.Len(t, got.Data, len(s.Data))
		for i := range s.Data {
			assert.Equal(t, math.Float32bits(s.Data[i]), math.Float32bits(got.Data[i]))
		}
		assert.Zero(t, buf.Len(), "decoder must consume the whole snapshot")
	}
}

func TestEncode_Invalid(t *testing.T) {
	assert.Error(t, Encode(io.Discard, Snapshot{Dim: 0, Metric: distance.MetricL2}))
	assert.Error(t, Encode(io.Discard, Snapshot{Dim: 2, Metric: distance.MetricL2, Data: []float32{1}}))
	assert.Error(t, Encode(io.Discard, Snapshot{Dim: 1, Metric: distance.Metric(4)}))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestEncode_WriteFailure(t *testing.T) {
	assert.ErrorIs(t, Encode(failingWriter{}, sampleSnapshot()), ErrIO)
}

func encoded(t *testing.T, s Snapshot) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, s))
	return buf.Bytes()
}

func TestDecode_Errors(t *testing.T) {
	good := encoded(t, sampleSnapshot())

	mutate := func(fn func(b []byte)) []byte {
		b := append([]byte(nil), good...)
		fn(b)
		return b
	}

	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{"empty", nil, ErrCorrupt},
		{"short header", good[:20], ErrCorrupt},
		{"bad magic", mutate(func(b []byte) { binary.LittleEndian.PutUint64(b, 1146) }), ErrInvalidMagic},
		{"float16", mutate(func(b []byte) { b[24] = 1 }), ErrCorrupt},
		{"unknown metric", mutate(func(b []byte) { binary.LittleEndian.PutUint32(b[25:], 7) }), ErrCorrupt},
		{"zero dim", mutate(func(b []byte) { binary.LittleEndian.PutUint64(b[8:], 0) }), ErrCorrupt},
		{"huge count", mutate(func(b []byte) { binary.LittleEndian.PutUint64(b[16:], math.MaxUint64/2) }), ErrCorrupt},
		{"truncated vectors", good[:HeaderSize+10], ErrCorrupt},
		{"truncated norms", good[:len(good)-1], ErrCorrupt},
		{"count beyond data", mutate(func(b []byte) { binary.LittleEndian.PutUint64(b[16:], 1000) }), ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.input))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("device error") }

func TestDecode_ReadFailure(t *testing.T) {
	_, err := Decode(failingReader{})
	assert.ErrorIs(t, err, ErrIO)
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "index.bin")

	s := sampleSnapshot()
	require.NoError(t, WriteFile(path, s))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestSaveToFile_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.bin")

	boom := errors.New("boom")
	err := SaveToFile(path, func(io.Writer) error { return boom })
	assert.ErrorIs(t, err, boom)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveToFile_DirectoryFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := WriteFile(filepath.Join(blocker, "index.bin"), sampleSnapshot())
	assert.ErrorIs(t, err, ErrIO)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.bin"))
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
