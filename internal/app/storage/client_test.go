package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsdk/internal/pkg/logx"
	"chatsdk/pkg/errs"
)

type fakeS3 struct {
	uploaded map[string]string
	deleted  []string
	heads    map[string]bool
	failPut  error
}

func (f *fakeS3) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.failPut != nil {
		return nil, f.failPut
	}
	f.uploaded[*in.Key] = *in.ContentType
	f.heads[*in.Key] = true
	return &manager.UploadOutput{}, nil
}

func (f *fakeS3) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{URL: "https://cdn.example.com/" + *in.Key + "?sig=1"}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if !f.heads[*in.Key] {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, *in.Key)
	delete(f.heads, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func newFakeClient() (*s3Client, *fakeS3) {
	f := &fakeS3{uploaded: map[string]string{}, heads: map[string]bool{}}
	return &s3Client{
		bucket:   "attachments",
		objects:  f,
		uploader: f,
		presign:  f,
		logger:   logx.Component("Storage"),
	}, f
}

func TestSendImage(t *testing.T) {
	c, f := newFakeClient()

	uploaded, err := c.SendImage(context.Background(), "messaging", "general", "jc", File{
		Name: "cat.png", MimeType: "image/png", Size: 1024, Body: strings.NewReader("png"),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(uploaded.Key, "messaging/general/images/"))
	assert.True(t, strings.HasSuffix(uploaded.Key, "-cat.png"))
	assert.Equal(t, "image/png", f.uploaded[uploaded.Key])
	assert.Contains(t, uploaded.URL, uploaded.Key)
	assert.Equal(t, uploaded.URL, uploaded.ThumbURL)
}

func TestSendImageRejectsNonImage(t *testing.T) {
	c, f := newFakeClient()

	_, err := c.SendImage(context.Background(), "messaging", "general", "jc", File{
		Name: "notes.pdf", MimeType: "application/pdf", Size: 10, Body: strings.NewReader("pdf"),
	})

	assert.Equal(t, errs.ErrInvalidAttachment, errs.CodeOf(err))
	assert.Empty(t, f.uploaded)
}

func TestSendFileUploadFailure(t *testing.T) {
	c, f := newFakeClient()
	f.failPut = errors.New("bucket unavailable")

	_, err := c.SendFile(context.Background(), "messaging", "general", "jc", File{
		Name: "notes.pdf", MimeType: "application/pdf", Size: 10, Body: strings.NewReader("pdf"),
	})

	assert.Equal(t, errs.ErrUploadFailed, errs.CodeOf(err))
	assert.ErrorContains(t, err, "bucket unavailable")
}

func TestDeleteFile(t *testing.T) {
	c, f := newFakeClient()
	ctx := context.Background()

	uploaded, err := c.SendFile(ctx, "messaging", "general", "jc", File{
		Name: "notes.pdf", MimeType: "application/pdf", Size: 10, Body: strings.NewReader("pdf"),
	})
	require.NoError(t, err)

	err = c.DeleteFile(ctx, "messaging", "random", uploaded.Key)
	assert.Equal(t, errs.ErrInvalidAttachment, errs.CodeOf(err))

	require.NoError(t, c.DeleteFile(ctx, "messaging", "general", uploaded.Key))
	assert.Equal(t, []string{uploaded.Key}, f.deleted)

	err = c.DeleteFile(ctx, "messaging", "general", uploaded.Key)
	assert.Equal(t, errs.ErrNotFound, errs.CodeOf(err))
}
