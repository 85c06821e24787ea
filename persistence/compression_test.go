package persistence

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		got, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCompression("brotli")
	assert.Error(t, err)
}

func TestCompressedRoundTrip(t *testing.T) {
	s := sampleSnapshot()

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, c)
			require.NoError(t, err)
			require.NoError(t, Encode(w, s))
			require.NoError(t, w.Close())

			r, detected, err := NewReader(&buf)
			require.NoError(t, err)
			defer r.Close()
			assert.Equal(t, c, detected)

			got, err := Decode(r)
			require.NoError(t, err)
			assert.Equal(t, s, got)
		})
	}
}

func TestNewReader_Empty(t *testing.T) {
	r, c, err := NewReader(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, c)

	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, b)
}
