package documents

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// AzureConfig configures the Azure Blob Storage document lister. Without
// an account key or connection string it uses DefaultAzureCredential.
type AzureConfig struct {
	Container        string // Container holding customer uploads
	Root             string // Optional blob prefix above the owner segment
	AccountName      string // Azure Storage account name
	AccountKey       string // Optional: storage account key
	ConnectionString string // Optional: full connection string
	MaxRetries       int32  // Optional: SDK retry count for list calls
}

type azureSource struct {
	client    *azblob.Client
	container string
}

// NewAzureLister creates a document lister backed by Azure Blob Storage.
func NewAzureLister(cfg AzureConfig) (*Lister, error) {
	if cfg.Container == "" {
		return nil, ErrBucketRequired
	}
	if cfg.AccountName == "" && cfg.ConnectionString == "" {
		return nil, fmt.Errorf("account name or connection string is required")
	}

	clientOpts := &azblob.ClientOptions{}
	if cfg.MaxRetries > 0 {
		clientOpts.Retry = policy.RetryOptions{MaxRetries: cfg.MaxRetries}
	}

	var client *azblob.Client
	var err error
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)

	switch {
	case cfg.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, clientOpts)
	case cfg.AccountKey != "":
		cred, credErr := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if credErr != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", credErr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, clientOpts)
	default:
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("failed to create default credential: %w", credErr)
		}
		client, err = azblob.NewClient(serviceURL, cred, clientOpts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return newLister(&azureSource{client: client, container: cfg.Container}, "azure-blob", cfg.Root), nil
}

func (s *azureSource) listObjects(ctx context.Context, prefix string) ([]objectInfo, error) {
	containerClient := s.client.ServiceClient().NewContainerClient(s.container)
	pager := containerClient.NewListBlobsFlatPager(&container.ListBlobsFlatOptions{Prefix: &prefix})

	var objects []objectInfo
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list blobs: %w", err)
		}
		for _, b := range resp.Segment.BlobItems {
			if b.Name == nil {
				continue
			}
			info := objectInfo{Key: *b.Name}
			if b.Properties != nil && b.Properties.LastModified != nil {
				info.LastModified = *b.Properties.LastModified
			}
			objects = append(objects, info)
		}
	}
	return objects, nil
}
