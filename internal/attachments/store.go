package attachments

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/tomerlevy/claimdesk/pkg/logging"
)

// Categories for icon selection on the client.
const (
	CategoryImage = "image"
	CategoryText  = "text"
	CategoryOther = "other"
)

// previewMaxBytes caps inline data-URI previews.
const previewMaxBytes = 256 << 10

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Attachment is one uploaded evidence file.
type Attachment struct {
	Name     string `json:"fileName"`
	Type     string `json:"fileType"`
	Category string `json:"type"`
	URL      string `json:"url"`
	Preview  string `json:"preview,omitempty"`
}

// Store uploads evidence files to S3.
type Store struct {
	bucket       string
	publicPrefix string
	s3Client     S3API
	logger       *logging.Logger
}

// NewStore creates an attachment store.
func NewStore(s3Client S3API, bucket, publicPrefix string, logger *logging.Logger) *Store {
	if s3Client == nil {
		panic("attachments: s3 client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		bucket:       bucket,
		publicPrefix: strings.TrimRight(publicPrefix, "/"),
		s3Client:     s3Client,
		logger:       logger,
	}
}

// Upload stores one file under the session's prefix. Images get an inline
// data-URI preview decoded once here, at upload time.
func (s *Store) Upload(ctx context.Context, sessionID uuid.UUID, name, contentType string, data []byte) (*Attachment, error) {
	key := fmt.Sprintf("uploads/%s/%d_%s", sessionID, time.Now().UTC().UnixNano(), sanitizeFilename(name))

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("attachments: s3 put %s: %w", key, err)
	}

	att := &Attachment{
		Name:     name,
		Type:     contentType,
		Category: Categorize(contentType),
		URL:      s.objectURL(key),
	}
	if att.Category == CategoryImage && len(data) <= previewMaxBytes {
		att.Preview = fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
	}

	s.logger.Info("attachment uploaded", "session_id", sessionID, "s3_key", key, "type", contentType, "size", len(data))
	return att, nil
}

func (s *Store) objectURL(key string) string {
	if s.publicPrefix != "" {
		return s.publicPrefix + "/" + key
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key)
}

// Categorize maps a mime type to the client-facing category.
func Categorize(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return CategoryImage
	case strings.HasPrefix(contentType, "text/"),
		contentType == "application/pdf",
		contentType == "application/msword",
		strings.HasPrefix(contentType, "application/vnd.openxmlformats-officedocument"):
		return CategoryText
	default:
		return CategoryOther
	}
}

func sanitizeFilename(name string) string {
	name = path.Base(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', '\t', '\n':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." {
		return "file"
	}
	return name
}
