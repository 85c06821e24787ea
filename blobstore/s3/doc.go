// Package s3 stores index snapshots in Amazon S3.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("snapshots/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	err = idx.SaveBlob(ctx, store, "products.flat", persistence.CompressionZstd)
//
// Writes stream through the SDK's multipart upload manager, so snapshots
// larger than memory can be exported. Reads use ranged GETs.
package s3
