package s3blob

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alanyoungcy/tickbot/internal/domain"
)

// Writer implements domain.BlobWriter using an S3-compatible backend.
type Writer struct {
	client   *Client
	uploader *manager.Uploader
}

// NewWriter creates a new Writer that uploads objects to the given client's
// configured bucket. The upload manager switches to multipart on its own
// for large bodies and accepts readers of unknown length.
func NewWriter(c *Client) *Writer {
	return &Writer{
		client:   c,
		uploader: manager.NewUploader(c.S3()),
	}
}

// Put uploads data under the client's prefix.
func (w *Writer) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	key := w.client.Key(path)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.client.Bucket()),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentType),
	}

	if _, err := w.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("s3blob: put object %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.BlobWriter = (*Writer)(nil)
