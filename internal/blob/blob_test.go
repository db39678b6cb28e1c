package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallest valid PNG header plus IHDR
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

func TestPolicy_Check(t *testing.T) {
	policy := Policy{MaxBytes: 5 << 20, Buckets: []string{"product", "catalog"}}

	t.Run("Accepts image", func(t *testing.T) {
		r := bytes.NewReader(pngBytes)
		ct, err := policy.Check("product", int64(len(pngBytes)), r)
		require.NoError(t, err)
		assert.Equal(t, "image/png", ct)

		rest, _ := io.ReadAll(r)
		assert.Equal(t, pngBytes, rest, "reader is rewound after sniffing")
	})

	t.Run("Rejects text", func(t *testing.T) {
		body := []byte("just some text")
		_, err := policy.Check("product", int64(len(body)), bytes.NewReader(body))
		assert.True(t, errors.Is(err, ErrNotImage))
	})

	t.Run("Rejects oversize", func(t *testing.T) {
		_, err := policy.Check("product", 5<<20+1, bytes.NewReader(pngBytes))
		assert.True(t, errors.Is(err, ErrTooLarge))
	})

	t.Run("Rejects bucket", func(t *testing.T) {
		_, err := policy.Check("secrets", 10, bytes.NewReader(pngBytes))
		assert.True(t, errors.Is(err, ErrBucketNotAllowed))
	})
}

func TestObjectPath(t *testing.T) {
	now := time.UnixMilli(1718000000123)

	assert.Equal(t, "products/u1-1718000000123.jpg", ObjectPath("products", "u1", now, "Photo.JPG"))
	assert.Equal(t, "u1-1718000000123", ObjectPath("", "u1", now, "noext"))
	assert.Equal(t, "a/b/u1-1718000000123.png", ObjectPath("/a/b/", "u1", now, "x.png"))
}

type fakeUploader struct {
	params uploader.UploadParams
	res    *uploader.UploadResult
	err    error
}

func (f *fakeUploader) Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	f.params = params
	return f.res, f.err
}

func TestCloudinary_Upload(t *testing.T) {
	fake := &fakeUploader{res: &uploader.UploadResult{SecureURL: "https://res.cloudinary.com/demo/product/p/u1-1.png"}}
	store := &Cloudinary{api: fake}

	url, err := store.Upload(context.Background(), "product", "p/u1-1.png", bytes.NewReader(pngBytes))

	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/product/p/u1-1.png", url)
	assert.Equal(t, "product/p/u1-1", fake.params.PublicID)
}

func TestCloudinary_UploadErrors(t *testing.T) {
	store := &Cloudinary{api: &fakeUploader{res: &uploader.UploadResult{Error: api.ErrorResp{Message: "Invalid image file"}}}}
	_, err := store.Upload(context.Background(), "product", "x.png", bytes.NewReader(pngBytes))
	assert.ErrorContains(t, err, "Invalid image file")

	store = &Cloudinary{api: &fakeUploader{err: errors.New("timeout")}}
	_, err = store.Upload(context.Background(), "product", "x.png", bytes.NewReader(pngBytes))
	assert.ErrorContains(t, err, "timeout")
}

func TestNewCloudinary_RequiresURL(t *testing.T) {
	_, err := NewCloudinary("")
	assert.True(t, errors.Is(err, ErrNotConfigured))

	_, err = Unconfigured{}.Upload(context.Background(), "b", "p", nil)
	assert.True(t, errors.Is(err, ErrNotConfigured))
}
