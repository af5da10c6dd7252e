package repository

import (
	"context"
	"errors"
	"h2ala_backend/internal/config"
	"io"
	"net/http"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSSlotStore 阿里云 OSS 槽位
type OSSSlotStore struct {
	Bucket *oss.Bucket
}

func NewOSSSlotStore(cfg *config.StorageConfig) (*OSSSlotStore, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(cfg.OSSBucket)
	if err != nil {
		return nil, err
	}
	return &OSSSlotStore{Bucket: bucket}, nil
}

func (s *OSSSlotStore) Get(ctx context.Context, key string) (string, bool, error) {
	body, err := s.Bucket.GetObject(objectName(key), oss.WithContext(ctx))
	if err != nil {
		var serr oss.ServiceError
		if errors.As(err, &serr) && serr.StatusCode == http.StatusNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func (s *OSSSlotStore) Set(ctx context.Context, key, value string) error {
	return s.Bucket.PutObject(objectName(key), strings.NewReader(value),
		oss.ContentType("application/json"),
		oss.WithContext(ctx),
	)
}
