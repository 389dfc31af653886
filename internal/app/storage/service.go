/*
Package storage uploads message attachments to S3-compatible object storage.

Files are stored under a key scoped to their channel, "<type>/<id>/<kind>/<uuid>-<name>", and
exposed through presigned download URLs. Deletion only accepts keys inside the channel the
caller names.
*/
package storage

import (
	"context"
	"io"
	"time"

	"chatsdk/pkg/models"
)

// DownloadURLExpiration is the lifetime of presigned download URLs (the S3 maximum).
const DownloadURLExpiration = 7 * 24 * time.Hour

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// S3Region defaults to "auto", which S3-compatible providers accept.
	S3Region string
}

// File is an attachment to upload.
type File struct {
	Name     string
	MimeType string
	Size     int64
	Body     io.Reader
}

// FileUploader stores and removes message attachments.
type FileUploader interface {
	// SendFile uploads any supported file type.
	SendFile(ctx context.Context, channelType, channelID, userID string, file File) (models.UploadedFile, error)

	// SendImage uploads an image.
	SendImage(ctx context.Context, channelType, channelID, userID string, file File) (models.UploadedFile, error)

	// DeleteFile removes a file uploaded to the channel.
	DeleteFile(ctx context.Context, channelType, channelID, key string) error

	// DeleteImage removes an image uploaded to the channel.
	DeleteImage(ctx context.Context, channelType, channelID, key string) error
}

// NewFileUploader is the factory function for FileUploader.
// Currently, only S3 compatible implementations are supported.
func NewFileUploader(ctx context.Context, cfg ServiceConfig) (FileUploader, error) {
	return newS3Client(ctx, cfg)
}
