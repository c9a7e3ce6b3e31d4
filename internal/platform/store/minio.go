package store

import (
	"context"
	"io"
	"sort"

	perr "spinlog/internal/platform/errors"
	"spinlog/internal/platform/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// minioObjects stores objects in a single MinIO / S3 compatible bucket.
// Commit is a server side copy followed by a delete of the source, which
// is atomic from the reader's point of view because the destination key
// flips in one PUT
type minioObjects struct {
	cl     *minio.Client
	bucket string
	region string
	log    logger.Logger
}

func newMinioObjects(cfg ObjectsConfig, log logger.Logger) (Objects, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, perr.Configf("objects minio backend requires endpoint and bucket")
	}
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeConfig, "minio client")
	}
	return &minioObjects{cl: cl, bucket: cfg.Bucket, region: cfg.Region, log: log}, nil
}

// Ping verifies the endpoint is reachable and ensures the bucket exists
func (m *minioObjects) Ping(ctx context.Context) error {
	exists, err := m.cl.BucketExists(ctx, m.bucket)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "check bucket")
	}
	if !exists {
		if err := m.cl.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
			return perr.Wrap(err, perr.ErrorCodeStorage, "make bucket")
		}
		m.log.Info().Str("bucket", m.bucket).Msg("created bucket")
	}
	return nil
}

func (m *minioObjects) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := m.cl.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "open object %s", key)
	}
	// GetObject is lazy; surface a missing key now instead of on first read
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, perr.NotFoundf("object %s not found", key)
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "stat object %s", key)
	}
	return obj, nil
}

func (m *minioObjects) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.cl.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "put object %s", key)
	}
	return nil
}

func (m *minioObjects) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for obj := range m.cl.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, perr.Wrapf(obj.Err, perr.ErrorCodeStorage, "list objects under %s", prefix)
		}
		out = append(out, ObjectInfo{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *minioObjects) Remove(ctx context.Context, key string) error {
	if err := m.cl.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "remove object %s", key)
	}
	return nil
}

func (m *minioObjects) Commit(ctx context.Context, src, dst string) error {
	_, err := m.cl.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: m.bucket, Object: dst},
		minio.CopySrcOptions{Bucket: m.bucket, Object: src},
	)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return perr.NotFoundf("object %s not found", src)
		}
		return perr.Wrapf(err, perr.ErrorCodeStorage, "commit %s to %s", src, dst)
	}
	if err := m.cl.RemoveObject(ctx, m.bucket, src, minio.RemoveObjectOptions{}); err != nil {
		// the copy already landed; a stale temp object is harmless
		m.log.Warn().Err(err).Str("key", src).Msg("failed to remove committed temp object")
	}
	return nil
}
