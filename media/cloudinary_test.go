package media

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUploader struct {
	uploadParams  uploader.UploadParams
	uploadBody    []byte
	uploadResult  *uploader.UploadResult
	uploadErr     error
	destroyParams uploader.DestroyParams
	destroyResult *uploader.DestroyResult
	destroyErr    error
	deadline      bool
}

func (s *stubUploader) Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	s.uploadParams = params
	_, s.deadline = ctx.Deadline()
	if r, ok := file.(io.Reader); ok {
		s.uploadBody, _ = io.ReadAll(r)
	}
	return s.uploadResult, s.uploadErr
}

func (s *stubUploader) Destroy(_ context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error) {
	s.destroyParams = params
	return s.destroyResult, s.destroyErr
}

func TestCloudinary_Upload(t *testing.T) {
	stub := &stubUploader{uploadResult: &uploader.UploadResult{
		SecureURL:    "https://res.cloudinary.com/demo/image/upload/v1/new-gen-music/images/abc.jpg",
		PublicID:     "new-gen-music/images/abc",
		ResourceType: "image",
	}}
	c := &Cloudinary{api: stub, timeout: time.Minute}

	asset, err := c.Upload(context.Background(), []byte("jpeg"), "new-gen-music/images", KindImage)
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/v1/new-gen-music/images/abc.jpg", asset.URL)
	assert.Equal(t, "new-gen-music/images/abc", asset.PublicID)
	assert.Equal(t, "new-gen-music/images", stub.uploadParams.Folder)
	assert.Equal(t, "image", stub.uploadParams.ResourceType)
	assert.Equal(t, []byte("jpeg"), stub.uploadBody)
	assert.True(t, stub.deadline)
}

func TestCloudinary_UploadFailures(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		result *uploader.UploadResult
		err    error
	}{
		{name: "empty data", data: nil},
		{name: "transport error", data: []byte("x"), err: errors.New("connection reset")},
		{name: "nil result", data: []byte("x")},
		{name: "api error", data: []byte("x"), result: func() *uploader.UploadResult {
			r := &uploader.UploadResult{}
			r.Error.Message = "Invalid image file"
			return r
		}()},
		{name: "missing url", data: []byte("x"), result: &uploader.UploadResult{PublicID: "p"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Cloudinary{api: &stubUploader{uploadResult: tt.result, uploadErr: tt.err}}
			asset, err := c.Upload(context.Background(), tt.data, "f", KindAuto)
			assert.Nil(t, asset)
			assert.ErrorIs(t, err, ErrUploadFailed)

			var uploadErr *UploadError
			require.ErrorAs(t, err, &uploadErr)
			assert.Equal(t, "f", uploadErr.Folder)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestCloudinary_Delete(t *testing.T) {
	stub := &stubUploader{destroyResult: &uploader.DestroyResult{Result: "ok"}}
	c := &Cloudinary{api: stub}

	require.NoError(t, c.Delete(context.Background(), Asset{}))
	assert.Empty(t, stub.destroyParams.PublicID)

	require.NoError(t, c.Delete(context.Background(), Asset{PublicID: "a/b"}))
	assert.Equal(t, "a/b", stub.destroyParams.PublicID)
	assert.Equal(t, "image", stub.destroyParams.ResourceType)

	require.NoError(t, c.Delete(context.Background(), Asset{PublicID: "a/c", ResourceType: "video"}))
	assert.Equal(t, "video", stub.destroyParams.ResourceType)

	stub.destroyErr = errors.New("boom")
	assert.Error(t, c.Delete(context.Background(), Asset{PublicID: "a/d"}))
}

func TestNewCloudinary_RequiresCredentials(t *testing.T) {
	_, err := NewCloudinary(CloudinaryConfig{CloudName: "demo"})
	assert.Error(t, err)

	c, err := NewCloudinary(CloudinaryConfig{CloudName: "demo", APIKey: "k", APISecret: "s", Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, time.Second, c.timeout)
}

func TestFake(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	img, err := f.Upload(ctx, []byte("x"), "root/images", KindImage)
	require.NoError(t, err)
	assert.Equal(t, "image", img.ResourceType)

	f.FailUploads(KindAuto, errors.New("quota"))
	_, err = f.Upload(ctx, []byte("x"), "root/media", KindAuto)
	assert.ErrorIs(t, err, ErrUploadFailed)

	f.FailUploads(KindAuto, nil)
	file, err := f.Upload(ctx, []byte("x"), "root/media", KindAuto)
	require.NoError(t, err)
	assert.NotEqual(t, img.PublicID, file.PublicID)

	require.NoError(t, f.Delete(ctx, *img))
	assert.Len(t, f.Uploads(), 2)
	assert.Equal(t, []Asset{*img}, f.Deleted())
}
