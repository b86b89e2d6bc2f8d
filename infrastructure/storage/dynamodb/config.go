// Package dynamodb provides a DynamoDB-backed record store.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrTableSchema is returned when an existing records table does not have
// the key schema the store queries with.
var ErrTableSchema = errors.New("dynamodb: records table schema mismatch")

// Config configures the records table and its client.
type Config struct {
	// Region is the AWS region.
	Region string

	// Endpoint overrides the service endpoint, e.g. DynamoDB Local.
	Endpoint string

	// QueryTimeout bounds every store call.
	QueryTimeout time.Duration

	// RecordsTableName is the table holding one item per record.
	RecordsTableName string

	// ReadCapacity and WriteCapacity provision the table and its owner
	// index. Zero for both selects on-demand billing.
	ReadCapacity  int64
	WriteCapacity int64
}

// DefaultConfig returns an on-demand orderflow_records table in us-east-1.
func DefaultConfig() Config {
	return Config{
		Region:           "us-east-1",
		QueryTimeout:     30 * time.Second,
		RecordsTableName: "orderflow_records",
	}
}

// ConfigOption configures the client.
type ConfigOption func(*Config)

// WithRegion sets the AWS region.
func WithRegion(region string) ConfigOption {
	return func(c *Config) { c.Region = region }
}

// WithEndpoint sets the service endpoint.
func WithEndpoint(endpoint string) ConfigOption {
	return func(c *Config) { c.Endpoint = endpoint }
}

// WithQueryTimeout sets the per-call timeout.
func WithQueryTimeout(d time.Duration) ConfigOption {
	return func(c *Config) { c.QueryTimeout = d }
}

// WithRecordsTableName sets the records table name.
func WithRecordsTableName(name string) ConfigOption {
	return func(c *Config) { c.RecordsTableName = name }
}

// WithProvisionedCapacity provisions the table instead of on-demand billing.
func WithProvisionedCapacity(read, write int64) ConfigOption {
	return func(c *Config) {
		c.ReadCapacity = read
		c.WriteCapacity = write
	}
}

// tableAPI is the subset of the client used to manage the records table.
type tableAPI interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Client wraps a DynamoDB client with the records table configuration.
type Client struct {
	client *dynamodb.Client
	tables tableAPI
	config Config
}

// NewClient creates a client from the default AWS credential chain.
func NewClient(ctx context.Context, opts ...ConfigOption) (*Client, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if (cfg.ReadCapacity > 0) != (cfg.WriteCapacity > 0) {
		return nil, fmt.Errorf("dynamodb: read and write capacity must be set together")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, err
	}

	var ddbOpts []func(*dynamodb.Options)
	if cfg.Endpoint != "" {
		ddbOpts = append(ddbOpts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	client := dynamodb.NewFromConfig(awsCfg, ddbOpts...)

	return &Client{client: client, tables: client, config: cfg}, nil
}

// DynamoDB returns the underlying DynamoDB client.
func (c *Client) DynamoDB() *dynamodb.Client {
	return c.client
}

// EnsureRecordsTable creates the records table when it is missing and
// waits for it to become active. An existing table must be keyed on id and
// carry the owner index, or ErrTableSchema is returned.
func (c *Client) EnsureRecordsTable(ctx context.Context) error {
	name := c.config.RecordsTableName
	out, err := c.tables.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
	if err == nil {
		return checkRecordsTable(out.Table)
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return err
	}

	if _, err := c.tables.CreateTable(ctx, recordsTableInput(c.config)); err != nil {
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return err
		}
	}
	waiter := dynamodb.NewTableExistsWaiter(c.tables)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, 2*time.Minute)
}

// recordsTableInput describes the records table: items keyed by record ID,
// owner listings served by an owner_id/created_at index.
func recordsTableInput(cfg Config) *dynamodb.CreateTableInput {
	index := types.GlobalSecondaryIndex{
		IndexName: aws.String(ownerIndexName),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("owner_id"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("created_at"), KeyType: types.KeyTypeRange},
		},
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
	input := &dynamodb.CreateTableInput{
		TableName: aws.String(cfg.RecordsTableName),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("owner_id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("created_at"), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: types.BillingModePayPerRequest,
	}

	if cfg.ReadCapacity > 0 {
		throughput := &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(cfg.ReadCapacity),
			WriteCapacityUnits: aws.Int64(cfg.WriteCapacity),
		}
		input.BillingMode = types.BillingModeProvisioned
		input.ProvisionedThroughput = throughput
		index.ProvisionedThroughput = throughput
	}
	input.GlobalSecondaryIndexes = []types.GlobalSecondaryIndex{index}
	return input
}

func checkRecordsTable(table *types.TableDescription) error {
	if table == nil {
		return fmt.Errorf("%w: no table description", ErrTableSchema)
	}
	if len(table.KeySchema) != 1 || aws.ToString(table.KeySchema[0].AttributeName) != "id" ||
		table.KeySchema[0].KeyType != types.KeyTypeHash {
		return fmt.Errorf("%w: %s must be keyed on id alone", ErrTableSchema, aws.ToString(table.TableName))
	}
	for _, gsi := range table.GlobalSecondaryIndexes {
		if aws.ToString(gsi.IndexName) == ownerIndexName {
			return nil
		}
	}
	return fmt.Errorf("%w: %s lacks index %s", ErrTableSchema, aws.ToString(table.TableName), ownerIndexName)
}
