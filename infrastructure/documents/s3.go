package documents

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures the S3 document lister.
type S3Config struct {
	Bucket          string // Bucket holding customer uploads
	Root            string // Optional key prefix above the owner segment
	Region          string // AWS region (default: us-east-1)
	AccessKeyID     string // Optional: uses the default credential chain if empty
	SecretAccessKey string // Optional: AWS secret key
	SessionToken    string // Optional: AWS session token
	Endpoint        string // Optional: custom endpoint for S3-compatible storage
}

type s3Source struct {
	client s3.ListObjectsV2APIClient
	bucket string
}

// NewS3Lister creates a document lister backed by AWS S3.
func NewS3Lister(ctx context.Context, cfg S3Config) (*Lister, error) {
	if cfg.Bucket == "" {
		return nil, ErrBucketRequired
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			cfg.SessionToken,
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return newS3Lister(s3.NewFromConfig(awsCfg, s3Opts...), cfg.Bucket, cfg.Root), nil
}

func newS3Lister(client s3.ListObjectsV2APIClient, bucket, root string) *Lister {
	return newLister(&s3Source{client: client, bucket: bucket}, "aws-s3", root)
}

func (s *s3Source) listObjects(ctx context.Context, prefix string) ([]objectInfo, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var objects []objectInfo
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			info := objectInfo{Key: aws.ToString(obj.Key)}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			objects = append(objects, info)
		}
	}
	return objects, nil
}
