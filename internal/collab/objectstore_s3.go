package collab

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3RawEmailObjectStore archives inbound email payloads to a single
// S3 bucket, one object per key.
type S3RawEmailObjectStore struct {
	client *s3.Client
	bucket string
}

func NewS3RawEmailObjectStore(client *s3.Client, bucket string) *S3RawEmailObjectStore {
	return &S3RawEmailObjectStore{client: client, bucket: bucket}
}

func (s *S3RawEmailObjectStore) Put(ctx context.Context, key string, raw []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   bytes.NewReader(raw),
	})
	return err
}

func (s *S3RawEmailObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *S3RawEmailObjectStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	return err
}
