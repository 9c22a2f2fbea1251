package attachments

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockS3 struct {
	keys []string
	err  error
}

func (m *mockS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.keys = append(m.keys, *params.Key)
	if params.Body != nil {
		io.Copy(io.Discard, params.Body)
	}
	return &s3.PutObjectOutput{}, nil
}

func TestStoreUploadImageGetsPreview(t *testing.T) {
	s3c := &mockS3{}
	store := NewStore(s3c, "claimdesk-uploads", "https://files.claimdesk.co.il", nil)

	att, err := store.Upload(context.Background(), uuid.New(), "receipt.jpg", "image/jpeg", []byte("jpegdata"))
	require.NoError(t, err)

	assert.Equal(t, "receipt.jpg", att.Name)
	assert.Equal(t, CategoryImage, att.Category)
	assert.True(t, strings.HasPrefix(att.URL, "https://files.claimdesk.co.il/uploads/"))
	assert.True(t, strings.HasPrefix(att.Preview, "data:image/jpeg;base64,"))
	require.Len(t, s3c.keys, 1)
	assert.Contains(t, s3c.keys[0], "receipt.jpg")
}

func TestStoreUploadTextNoPreview(t *testing.T) {
	store := NewStore(&mockS3{}, "claimdesk-uploads", "", nil)

	att, err := store.Upload(context.Background(), uuid.New(), "contract.pdf", "application/pdf", []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, CategoryText, att.Category)
	assert.Empty(t, att.Preview)
	assert.True(t, strings.HasPrefix(att.URL, "s3://claimdesk-uploads/uploads/"))
}

func TestStoreUploadFailure(t *testing.T) {
	store := NewStore(&mockS3{err: assert.AnError}, "claimdesk-uploads", "", nil)
	_, err := store.Upload(context.Background(), uuid.New(), "x.bin", "application/octet-stream", []byte{1})
	assert.Error(t, err)
}

func TestCategorize(t *testing.T) {
	assert.Equal(t, CategoryImage, Categorize("image/png"))
	assert.Equal(t, CategoryText, Categorize("text/plain"))
	assert.Equal(t, CategoryText, Categorize("application/pdf"))
	assert.Equal(t, CategoryOther, Categorize("application/zip"))
	assert.Equal(t, CategoryOther, Categorize(""))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "my_receipt.jpg", sanitizeFilename("my receipt.jpg"))
	assert.Equal(t, "passwd", sanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "file", sanitizeFilename(""))
}
