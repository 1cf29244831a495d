package avatars

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	BaseEndpoint string
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage uploads avatars to a bucket. PutObject is atomic, so a
// partially written object is never visible.
type S3Storage struct {
	client   putObjectAPI
	bucket   string
	endpoint string
}

// NewS3Storage builds a path-style client against cfg.BaseEndpoint, which
// suits MinIO as well as AWS.
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return newS3Storage(client, cfg.Bucket, cfg.BaseEndpoint), nil
}

func newS3Storage(client putObjectAPI, bucket, endpoint string) *S3Storage {
	return &S3Storage{client: client, bucket: bucket, endpoint: strings.TrimRight(endpoint, "/")}
}

func (s *S3Storage) Store(ctx context.Context, localPath, name string) error {
	if err := checkName(name); err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(name),
		Body:          f,
		ContentLength: aws.Int64(fi.Size()),
		ContentType:   aws.String("image/jpeg"),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s/%s: %w", s.bucket, name, err)
	}

	return nil
}

// URL ignores origin: objects are served by the storage endpoint.
func (s *S3Storage) URL(origin, name string) string {
	return s.endpoint + "/" + s.bucket + "/" + url.PathEscape(name)
}
