package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/cdil-bc/canvas-discussions/src/config"
	"github.com/cdil-bc/canvas-discussions/src/oops"
)

const MarkdownContentType = "text/markdown"
const HTMLContentType = "text/html"

var reIllegalFilenameChars = regexp.MustCompile(`[^\w\-.]`)

// The name of the Markdown export for a course.
func Filename(courseID string) string {
	return fmt.Sprintf("canvas-discussions-%s.md", reIllegalFilenameChars.ReplaceAllString(courseID, "_"))
}

// Somewhere to put a finished export. Write returns where the file ended up,
// for telling the user.
type Sink interface {
	Write(ctx context.Context, name string, contentType string, content []byte) (string, error)
}

type FileSink struct {
	Dir string
}

var _ Sink = FileSink{}

func (s FileSink) Write(ctx context.Context, name string, contentType string, content []byte) (string, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", oops.New(err, "failed to create export directory")
	}

	// Write then rename, so a crash never leaves half an export behind.
	dest := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", oops.New(err, "failed to create export file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", oops.New(err, "failed to write export file")
	}
	if err := tmp.Close(); err != nil {
		return "", oops.New(err, "failed to write export file")
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", oops.New(err, "failed to set export file permissions")
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", oops.New(err, "failed to save export file")
	}

	return dest, nil
}

// Uploads exports to S3, or anything that speaks S3 (DigitalOcean Spaces,
// MinIO, etc.)
type S3Sink struct {
	client *s3.Client
	bucket string
	prefix string
}

var _ Sink = &S3Sink{}

func NewS3Sink(ctx context.Context, cfg config.S3Config) (*S3Sink, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Key != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, ""),
		))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithEndpointResolver(aws.EndpointResolverFunc(func(service, region string) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL: cfg.Endpoint,
			}, nil
		})))
	}

	awscfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, oops.New(err, "failed to load S3 config")
	}
	client := s3.NewFromConfig(awscfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.Endpoint != ""
	})

	return &S3Sink{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (s *S3Sink) Write(ctx context.Context, name string, contentType string, content []byte) (string, error) {
	key := path.Join(s.prefix, name)

	upload := func() error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      &s.bucket,
			Key:         &key,
			Body:        bytes.NewReader(content),
			ContentType: &contentType,
		})
		return err
	}

	err := upload()
	if err != nil {
		var apiError smithy.APIError
		if errors.As(err, &apiError) && apiError.ErrorCode() == "NoSuchBucket" {
			_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{
				Bucket: &s.bucket,
			})
			if err != nil {
				return "", oops.New(err, "failed to create export bucket")
			}

			err = upload()
			if err != nil {
				return "", oops.New(err, "failed to upload export")
			}
		} else {
			return "", oops.New(err, "failed to upload export")
		}
	}

	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
