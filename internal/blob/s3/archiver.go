package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sentientlabs/stockcast/internal/domain"
)

// minPartSize is the minimum allowed part size for S3 multipart uploads (5 MiB).
const minPartSize int64 = 5 * 1024 * 1024

// multipartThreshold is the payload size above which uploads switch to the
// concurrent multipart path.
const multipartThreshold = 8 * 1024 * 1024

// Archiver uploads purged predictions as JSONL objects before they are
// dropped from the primary store. One object is written per cleanup run,
// keyed by the run date, so re-running cleanup on the same day overwrites
// rather than duplicates.
type Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewArchiver creates an Archiver writing under the given key prefix in the
// client's bucket.
func NewArchiver(c *Client, prefix string) *Archiver {
	return &Archiver{
		client: c.S3(),
		bucket: c.Bucket(),
		prefix: prefix,
	}
}

// ArchivePurged serializes the purged predictions to JSONL and uploads them
// to {prefix}/predictions/{YYYY-MM-DD}.jsonl. It returns the object key.
func (a *Archiver) ArchivePurged(ctx context.Context, preds []domain.Prediction, runDate time.Time) (string, error) {
	if len(preds) == 0 {
		return "", nil
	}

	buf, err := marshalJSONL(preds)
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal purged predictions: %w", err)
	}

	key := fmt.Sprintf("%s/predictions/%s.jsonl", a.prefix, runDate.UTC().Format("2006-01-02"))
	if err := a.put(ctx, key, buf); err != nil {
		return "", err
	}
	return key, nil
}

func (a *Archiver) put(ctx context.Context, key string, payload []byte) error {
	if int64(len(payload)) > multipartThreshold {
		return a.putMultipart(ctx, key, bytes.NewReader(payload))
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put object %s: %w", key, err)
	}
	return nil
}

// putMultipart uploads via the S3 upload manager, which splits the payload
// into parts and uploads them concurrently.
func (a *Archiver) putMultipart(ctx context.Context, key string, data io.Reader) error {
	uploader := manager.NewUploader(a.client, func(u *manager.Uploader) {
		u.PartSize = minPartSize
	})

	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: multipart upload %s: %w", key, err)
	}
	return nil
}

// marshalJSONL encodes each prediction as one JSON line.
func marshalJSONL(preds []domain.Prediction) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range preds {
		if err := enc.Encode(&preds[i]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
