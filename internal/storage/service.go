package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"backend-umaklink/internal/db"
	"backend-umaklink/internal/shared/imgproc"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	maxImageWidth  = 1600
	maxImageHeight = 1600
	kindItemImage  = "item_image"
)

var ErrNotConfigured = errors.New("object storage not configured")

// ObjectStore puts a blob and returns its public URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// MinioStore stores item photos in an S3-compatible bucket.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewMinioStore(endpoint, accessKey, secretKey, bucket, publicURL string, useSSL bool) (*MinioStore, error) {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, endpoint, bucket)
	}
	return &MinioStore{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

func (m *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return m.publicURL + "/" + key, nil
}

type Object struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

type Service struct {
	db      db.Querier
	objects ObjectStore
}

func NewService(db db.Querier, objects ObjectStore) *Service {
	return &Service{db: db, objects: objects}
}

// UploadImage normalises an item photo, stores it and records the object.
func (s *Service) UploadImage(ctx context.Context, userID string, data []byte) (Object, error) {
	if s.objects == nil {
		return Object{}, ErrNotConfigured
	}
	normalized, contentType, err := imgproc.Normalize(data, maxImageWidth, maxImageHeight)
	if err != nil {
		return Object{}, err
	}

	key := "items/" + uuid.NewString() + imgproc.Extension(contentType)
	url, err := s.objects.Put(ctx, key, normalized, contentType)
	if err != nil {
		return Object{}, fmt.Errorf("put object: %w", err)
	}

	id, err := s.SaveObject(ctx, userID, url, kindItemImage)
	if err != nil {
		return Object{}, err
	}
	return Object{ID: id, URL: url, ContentType: contentType}, nil
}

func (s *Service) SaveObject(ctx context.Context, userID, url, kind string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO storage_objects (id, user_id, url, kind)
		VALUES ($1,$2,$3,$4)
	`, id, userID, url, kind)
	if err != nil {
		return "", err
	}
	return id, nil
}
