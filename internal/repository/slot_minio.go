package repository

import (
	"context"
	"h2ala_backend/internal/config"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioSlotStore 把快照作为对象存到 MinIO 桶中
type MinioSlotStore struct {
	Client *minio.Client
	Bucket string
}

func NewMinioSlotStore(ctx context.Context, cfg *config.StorageConfig) (*MinioSlotStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioSecure,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &MinioSlotStore{Client: client, Bucket: cfg.MinioBucket}, nil
}

func objectName(key string) string {
	return "snapshots/" + key + ".json"
}

func (s *MinioSlotStore) Get(ctx context.Context, key string) (string, bool, error) {
	obj, err := s.Client.GetObject(ctx, s.Bucket, objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return "", false, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

func (s *MinioSlotStore) Set(ctx context.Context, key, value string) error {
	_, err := s.Client.PutObject(ctx, s.Bucket, objectName(key), strings.NewReader(value), int64(len(value)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}
