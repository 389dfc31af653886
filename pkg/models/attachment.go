package models

import (
	"path/filepath"
	"strings"

	"chatsdk/pkg/errs"
)

const (
	// MaxImageSizeMB is the maximum allowed image size in megabytes.
	MaxImageSizeMB = 20

	// MaxImageSize is the maximum allowed image size in bytes.
	MaxImageSize = MaxImageSizeMB * 1024 * 1024

	// MaxFileSize is the maximum allowed size of a generic file attachment in bytes.
	MaxFileSize = 100 * 1024 * 1024
)

// Attachment types set on a message attachment.
const (
	AttachmentImage = "image"
	AttachmentFile  = "file"
	AttachmentVideo = "video"
	AttachmentAudio = "audio"
)

// ImageMIMETypes defines the permitted MIME types for image uploads.
var ImageMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
	"image/heic": {},
}

// ExtToMIME maps file extensions to their expected MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".heic": "image/heic",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".zip":  "application/zip",
	".mp4":  "video/mp4",
	".mp3":  "audio/mpeg",
}

// Attachment represents a file, image or rich link attached to a message.
type Attachment struct {
	Type      string         `json:"type,omitempty"`
	Title     string         `json:"title,omitempty"`
	AssetURL  string         `json:"asset_url,omitempty"`
	ImageURL  string         `json:"image_url,omitempty"`
	ThumbURL  string         `json:"thumb_url,omitempty"`
	MimeType  string         `json:"mime_type,omitempty"`
	FileSize  int64          `json:"file_size,omitempty"`
	ExtraData map[string]any `json:"extra_data,omitempty"`
}

// UploadedFile is the outcome of an attachment upload.
type UploadedFile struct {
	// URL is the download location of the uploaded file.
	URL string `json:"file"`

	// ThumbURL is an optional thumbnail location.
	ThumbURL string `json:"thumb_url,omitempty"`

	// Key is the storage key of the file, used to delete it.
	Key string `json:"key,omitempty"`
}

// ValidateFileSize checks that size is positive and does not exceed limit.
func ValidateFileSize(size, limit int64) error {
	if size <= 0 {
		return errs.NewError(errs.ErrInvalidAttachment, "file is empty")
	}

	if size > limit {
		return errs.NewError(errs.ErrInvalidAttachment, "file is too large")
	}

	return nil
}

// ValidateFileType checks that the extension of fileName matches mimeType.
// When imagesOnly is set the MIME type must also be a permitted image type.
func ValidateFileType(fileName, mimeType string, imagesOnly bool) error {
	lowerMimeType := strings.ToLower(mimeType)

	if imagesOnly {
		if _, ok := ImageMIMETypes[lowerMimeType]; !ok {
			return errs.NewError(errs.ErrInvalidAttachment, "unsupported image type "+mimeType)
		}
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) < 2 {
		return errs.NewError(errs.ErrInvalidAttachment, "missing file extension")
	}

	expectedMIME, ok := ExtToMIME[ext]
	if !ok {
		if imagesOnly {
			return errs.NewError(errs.ErrInvalidAttachment, "unsupported image extension "+ext)
		}
		return nil
	}

	if expectedMIME != lowerMimeType {
		return errs.NewError(errs.ErrInvalidAttachment, "extension "+ext+" does not match "+mimeType)
	}

	return nil
}
