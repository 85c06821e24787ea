// Package persistence implements the binary snapshot format of a flat index.
//
// Layout (little-endian):
//
//	offset  size          field
//	0       8             magic (u64, 1145)
//	8       8             dim (u64)
//	16      8             count (u64)
//	24      1             isFloat16 (u8, always 0)
//	25      4             metric (i32: 0 inner product, 1 L2)
//	29      count*dim*4   vectors, row-major float32
//	...     count*dim*4   component squares, float32 data[i]^2
//
// The trailing section is written for compatibility with existing readers.
// Decode verifies its length but ignores its values; per-row norms are
// recomputed by the store.
//
// Snapshots can be wrapped in a zstd or LZ4 stream for transfer to blob
// storage. NewReader detects the wrapping from the first bytes.
package persistence
