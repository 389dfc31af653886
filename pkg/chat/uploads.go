package chat

import (
	"context"

	"chatsdk/pkg/call"
	"chatsdk/pkg/errs"
	"chatsdk/pkg/models"
)

// MsgUploadsDisabled is returned by the upload operations of a client created without uploader.
const MsgUploadsDisabled = "File uploads are not configured, use WithUploader"

// SendFile uploads a file to a channel on behalf of the current user.
func (c *Client) SendFile(channelType, channelID string, file File) call.Call[models.UploadedFile] {
	return c.upload(func(ctx context.Context, uploader Uploader, userID string) (models.UploadedFile, error) {
		return uploader.SendFile(ctx, channelType, channelID, userID, file)
	})
}

// SendImage uploads an image to a channel on behalf of the current user.
func (c *Client) SendImage(channelType, channelID string, file File) call.Call[models.UploadedFile] {
	return c.upload(func(ctx context.Context, uploader Uploader, userID string) (models.UploadedFile, error) {
		return uploader.SendImage(ctx, channelType, channelID, userID, file)
	})
}

// DeleteFile removes a file uploaded to a channel.
func (c *Client) DeleteFile(channelType, channelID, key string) call.Call[struct{}] {
	return c.remove(func(ctx context.Context, uploader Uploader) error {
		return uploader.DeleteFile(ctx, channelType, channelID, key)
	})
}

// DeleteImage removes an image uploaded to a channel.
func (c *Client) DeleteImage(channelType, channelID, key string) call.Call[struct{}] {
	return c.remove(func(ctx context.Context, uploader Uploader) error {
		return uploader.DeleteImage(ctx, channelType, channelID, key)
	})
}

func (c *Client) upload(send func(ctx context.Context, uploader Uploader, userID string) (models.UploadedFile, error)) call.Call[models.UploadedFile] {
	return call.New(func(ctx context.Context) call.Result[models.UploadedFile] {
		if c.opts.uploader == nil {
			return call.Failure[models.UploadedFile](errs.Generic(MsgUploadsDisabled))
		}

		user := c.currentUser()
		if user == nil {
			return call.Failure[models.UploadedFile](errs.Generic("User is not set, can't upload files"))
		}

		uploaded, err := send(ctx, c.opts.uploader, user.ID)
		if err != nil {
			c.logger.Warn().Err(err).Str("user_id", user.ID).Msg("Attachment upload failed")
			return call.Failure[models.UploadedFile](err)
		}
		return call.Success(uploaded)
	}, c.callOpts())
}

func (c *Client) remove(del func(ctx context.Context, uploader Uploader) error) call.Call[struct{}] {
	return call.New(func(ctx context.Context) call.Result[struct{}] {
		if c.opts.uploader == nil {
			return call.Failure[struct{}](errs.Generic(MsgUploadsDisabled))
		}
		if err := del(ctx, c.opts.uploader); err != nil {
			return call.Failure[struct{}](err)
		}
		return call.Success(struct{}{})
	}, c.callOpts())
}
