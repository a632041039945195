// Package services contains business logic layers.
// Services are called by handlers and interact with the database.
package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// ObjectStore persists evidence bytes out-of-band and returns a public URL.
// Object writes are not transactional with the relational store; callers
// must order them before the relational commit.
type ObjectStore interface {
	Put(ctx context.Context, key string, contentType string, r io.Reader) (string, error)
}

// UploadKey builds the storage key for one evidence file:
// {reportId}/{unix-ms}-{originalFilename}.
func UploadKey(reportID uuid.UUID, at time.Time, originalName string) string {
	return fmt.Sprintf("%s/%d-%s", reportID, at.UnixMilli(), originalName)
}

// CloudinaryStore is the production ObjectStore.
type CloudinaryStore struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryStore initializes the Cloudinary client from credentials.
func NewCloudinaryStore(cloudName, apiKey, apiSecret string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryStore{cld: cld}, nil
}

// Put uploads one object and returns its public HTTPS URL.
func (s *CloudinaryStore) Put(ctx context.Context, key string, contentType string, r io.Reader) (string, error) {
	result, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:     key,
		ResourceType: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	return result.SecureURL, nil
}
