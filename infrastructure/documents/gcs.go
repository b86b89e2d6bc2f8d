package documents

import (
	"context"
	"errors"
	"fmt"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSConfig configures the Google Cloud Storage document lister.
type GCSConfig struct {
	Bucket          string // Bucket holding customer uploads
	Root            string // Optional object prefix above the owner segment
	CredentialsFile string // Optional: path to service account JSON file
	CredentialsJSON []byte // Optional: service account JSON content
}

type gcsSource struct {
	client *gcs.Client
	bucket string
}

// NewGCSLister creates a document lister backed by Google Cloud Storage.
// Without credentials it uses Application Default Credentials.
func NewGCSLister(ctx context.Context, cfg GCSConfig) (*Lister, error) {
	if cfg.Bucket == "" {
		return nil, ErrBucketRequired
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	} else if len(cfg.CredentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(cfg.CredentialsJSON))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return newLister(&gcsSource{client: client, bucket: cfg.Bucket}, "gcp-storage", cfg.Root), nil
}

func (s *gcsSource) listObjects(ctx context.Context, prefix string) ([]objectInfo, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})

	var objects []objectInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		objects = append(objects, objectInfo{Key: attrs.Name, LastModified: attrs.Updated})
	}
	return objects, nil
}
