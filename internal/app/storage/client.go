package storage

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chatsdk/internal/pkg/logx"
	"chatsdk/pkg/errs"
	"chatsdk/pkg/models"
)

const (
	kindFile  = "files"
	kindImage = "images"
)

type objectAPI interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type uploaderAPI interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// s3Client implements the FileUploader interface on S3-compatible storage.
type s3Client struct {
	bucket   string
	objects  objectAPI
	uploader uploaderAPI
	presign  presignAPI
	logger   zerolog.Logger
}

// newS3Client initializes the S3 client using a custom configuration that supports S3-compatible endpoints.
func newS3Client(ctx context.Context, cfg ServiceConfig) (*s3Client, error) {
	region := cfg.S3Region
	if region == "" {
		region = "auto"
	}

	sdkCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
		config.WithRegion(region),
	)
	if err != nil {
		logx.Error(err, "Failed to load AWS SDK config")
		return nil, errs.NewError(errs.ErrUploadFailed, err)
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = true
	})

	return &s3Client{
		bucket:   cfg.S3BucketName,
		objects:  client,
		uploader: manager.NewUploader(client),
		presign:  s3.NewPresignClient(client),
		logger:   logx.Component("Storage"),
	}, nil
}

func channelPrefix(channelType, channelID string) string {
	return channelType + "/" + channelID + "/"
}

func objectKey(channelType, channelID, kind, name string) string {
	return channelPrefix(channelType, channelID) + kind + "/" + uuid.NewString() + "-" + path.Base(name)
}

func (c *s3Client) SendFile(ctx context.Context, channelType, channelID, userID string, file File) (models.UploadedFile, error) {
	if err := models.ValidateFileType(file.Name, file.MimeType, false); err != nil {
		return models.UploadedFile{}, err
	}
	if err := models.ValidateFileSize(file.Size, models.MaxFileSize); err != nil {
		return models.UploadedFile{}, err
	}

	return c.upload(ctx, objectKey(channelType, channelID, kindFile, file.Name), userID, file)
}

func (c *s3Client) SendImage(ctx context.Context, channelType, channelID, userID string, file File) (models.UploadedFile, error) {
	if err := models.ValidateFileType(file.Name, file.MimeType, true); err != nil {
		return models.UploadedFile{}, err
	}
	if err := models.ValidateFileSize(file.Size, models.MaxImageSize); err != nil {
		return models.UploadedFile{}, err
	}

	uploaded, err := c.upload(ctx, objectKey(channelType, channelID, kindImage, file.Name), userID, file)
	if err != nil {
		return uploaded, err
	}
	uploaded.ThumbURL = uploaded.URL
	return uploaded, nil
}

func (c *s3Client) upload(ctx context.Context, key, userID string, file File) (models.UploadedFile, error) {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        &c.bucket,
		Key:           &key,
		Body:          file.Body,
		ContentType:   aws.String(file.MimeType),
		ContentLength: aws.Int64(file.Size),
		Metadata:      map[string]string{"uploaded-by": userID},
	})
	if err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("S3 upload failed")
		return models.UploadedFile{}, errs.NewError(errs.ErrUploadFailed, err)
	}

	presigned, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(DownloadURLExpiration))
	if err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("Failed to generate presigned download URL")
		return models.UploadedFile{}, errs.NewError(errs.ErrUploadFailed, err)
	}

	c.logger.Debug().Str("key", key).Int64("size", file.Size).Msg("Attachment uploaded")

	return models.UploadedFile{URL: presigned.URL, Key: key}, nil
}

func (c *s3Client) DeleteFile(ctx context.Context, channelType, channelID, key string) error {
	return c.delete(ctx, channelType, channelID, kindFile, key)
}

func (c *s3Client) DeleteImage(ctx context.Context, channelType, channelID, key string) error {
	return c.delete(ctx, channelType, channelID, kindImage, key)
}

// delete removes key after checking it belongs to the channel and exists.
func (c *s3Client) delete(ctx context.Context, channelType, channelID, kind, key string) error {
	expectedKeyPrefix := channelPrefix(channelType, channelID) + kind + "/"
	if !strings.HasPrefix(key, expectedKeyPrefix) || strings.Contains(key, "..") {
		return errs.NewError(errs.ErrInvalidAttachment, "key does not belong to the channel")
	}

	_, err := c.objects.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return errs.NewError(errs.ErrNotFound)
		}
		c.logger.Error().Err(err).Str("key", key).Msg("Failed to get S3 object metadata")
		return errs.NewError(errs.ErrUploadFailed, err)
	}

	if _, err := c.objects.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	}); err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("S3 delete failed")
		return errs.NewError(errs.ErrUploadFailed, err)
	}

	return nil
}
