// Package minio stores index snapshots on MinIO or any other S3-compatible
// server through the MinIO client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "snapshots/",
//	    minioblob.WithPartSize(64<<20))
//	err = idx.SaveBlob(ctx, store, "products.flat")
package minio
