package persistence

import (
	"errors"

	"github.com/hupe1980/flatgo/distance"
)

const (
	// MagicNumber identifies flat index snapshots.
	MagicNumber uint64 = 1145

	// HeaderSize is the encoded size of FileHeader.
	HeaderSize = 29
)

var (
	ErrInvalidMagic = errors.New("persistence: invalid magic number")
	ErrCorrupt      = errors.New("persistence: corrupt snapshot")
	ErrIO           = errors.New("persistence: i/o failure")
)

// FileHeader is the fixed 29-byte snapshot header. encoding/binary packs it
// without padding.
type FileHeader struct {
	Magic     uint64
	Dim       uint64
	Count     uint64
	IsFloat16 uint8
	Metric    int32
}

// Snapshot is the decoded content of a snapshot.
type Snapshot struct {
	Dim    int
	Metric distance.Metric
	Data   []float32 // Count()*Dim values
}

// Count returns the number of vectors in the snapshot.
func (s Snapshot) Count() int {
	if s.Dim <= 0 {
		return 0
	}
	return len(s.Data) / s.Dim
}

// EncodedSize returns the number of bytes Encode writes for s.
func (s Snapshot) EncodedSize() int64 {
	return HeaderSize + 2*4*int64(len(s.Data))
}
