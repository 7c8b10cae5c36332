package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter is the part of *s3.Client the avatar store uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads avatars to an S3 (or S3-compatible) bucket.
type S3 struct {
	Client  ObjectPutter
	Bucket  string
	BaseURL string // public base, e.g. https://bucket.s3.eu-west-1.amazonaws.com or http://minio:9000/bucket
	Prefix  string
}

func NewS3(client ObjectPutter, bucket, baseURL string) (*S3, error) {
	if client == nil || bucket == "" || baseURL == "" {
		return nil, errors.New("s3 not configured")
	}
	return &S3{Client: client, Bucket: bucket, BaseURL: strings.TrimRight(baseURL, "/"), Prefix: "avatars"}, nil
}

func (s *S3) Put(ctx context.Context, localPath, name string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	key := path.Join(s.Prefix, name)
	_, err = s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(name)),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload %s: %w", key, err)
	}
	_ = os.Remove(localPath)
	return s.BaseURL + "/" + key, nil
}
