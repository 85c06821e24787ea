package commands

import (
	"context"
	"fmt"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/flatgo/blobstore"
	"github.com/hupe1980/flatgo/blobstore/minio"
	"github.com/hupe1980/flatgo/blobstore/s3"
	"github.com/hupe1980/flatgo/config"
)

// openStore connects to the blob store selected in cfg.
func openStore(ctx context.Context, cfg *config.Config) (blobstore.BlobStore, error) {
	switch sc := cfg.Storage; sc.Backend {
	case "local":
		return blobstore.NewLocalStore(sc.Local.Root), nil
	case "minio":
		client, err := miniogo.New(sc.MinIO.Endpoint, &miniogo.Options{
			Creds:  credentials.NewStaticV4(sc.MinIO.AccessKey, sc.MinIO.SecretKey, ""),
			Secure: sc.MinIO.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return minio.NewStore(client, sc.MinIO.Bucket, sc.MinIO.Prefix), nil
	case "s3":
		var opts []s3.Option
		if sc.S3.Prefix != "" {
			opts = append(opts, s3.WithPrefix(sc.S3.Prefix))
		}
		if sc.S3.Region != "" {
			opts = append(opts, s3.WithRegion(sc.S3.Region))
		}
		if sc.S3.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(sc.S3.Endpoint, sc.S3.UsePathStyle))
		}
		return s3.New(ctx, sc.S3.Bucket, opts...)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
	}
}
