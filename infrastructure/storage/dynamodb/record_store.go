package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/felixgeelhaar/orderflow/domain/order"
	"github.com/felixgeelhaar/orderflow/domain/record"
)

const ownerIndexName = "owner_id-created_at-index"

// recordItem represents a record in DynamoDB.
type recordItem struct {
	ID        string `dynamodbav:"id"`
	OwnerID   string `dynamodbav:"owner_id"`
	Product   string `dynamodbav:"product"`
	Status    string `dynamodbav:"status"`
	Version   int64  `dynamodbav:"version"`
	Data      string `dynamodbav:"data"`
	CreatedAt string `dynamodbav:"created_at"`
}

// dynamoAPI is the subset of the DynamoDB client used by the store.
type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// RecordStore is a DynamoDB-backed implementation of record.Store.
type RecordStore struct {
	client       dynamoAPI
	tableName    string
	queryTimeout time.Duration
	now          func() time.Time
}

// NewRecordStore creates a new DynamoDB record store.
func NewRecordStore(client *Client) *RecordStore {
	return &RecordStore{
		client:       client.DynamoDB(),
		tableName:    client.config.RecordsTableName,
		queryTimeout: client.config.QueryTimeout,
		now:          time.Now,
	}
}

// Create persists a new record.
func (s *RecordStore) Create(ctx context.Context, rec *order.Record) error {
	if rec == nil || rec.ID == "" {
		return record.ErrInvalidRecordID
	}

	av, err := marshalRecord(rec)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return record.ErrRecordExists
		}
		return s.wrapError(err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *RecordStore) Get(ctx context.Context, id string) (*order.Record, error) {
	if id == "" {
		return nil, record.ErrInvalidRecordID
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, s.wrapError(err)
	}
	if result.Item == nil {
		return nil, record.ErrRecordNotFound
	}
	return unmarshalRecord(result.Item)
}

// Update writes the patched record under a condition on the status and
// version read, so a concurrent writer fails the precondition.
func (s *RecordStore) Update(ctx context.Context, id string, patch order.Patch, expect record.Expect) (*order.Record, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !expect.Met(rec) {
		return nil, record.ErrPreconditionFailed
	}

	readVersion := rec.Version
	patch.Apply(rec, s.now())
	av, err := marshalRecord(rec)
	if err != nil {
		return nil, err
	}

	expr, err := expression.NewBuilder().WithCondition(casCondition(expect.Status, readVersion)).Build()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return nil, record.ErrPreconditionFailed
		}
		return nil, s.wrapError(err)
	}
	return rec, nil
}

// List returns records matching the filter, oldest first. Owner-scoped
// listings query the owner index; everything else scans.
func (s *RecordStore) List(ctx context.Context, filter record.ListFilter) ([]*order.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	expr, hasExpr, err := listExpression(filter)
	if err != nil {
		return nil, err
	}

	var items []map[string]types.AttributeValue
	if filter.OwnerID != "" {
		input := &dynamodb.QueryInput{
			TableName:                 aws.String(s.tableName),
			IndexName:                 aws.String(ownerIndexName),
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		}
		paginator := dynamodb.NewQueryPaginator(s.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, s.wrapError(err)
			}
			items = append(items, page.Items...)
		}
	} else {
		input := &dynamodb.ScanInput{TableName: aws.String(s.tableName)}
		if hasExpr {
			input.FilterExpression = expr.Filter()
			input.ExpressionAttributeNames = expr.Names()
			input.ExpressionAttributeValues = expr.Values()
		}
		paginator := dynamodb.NewScanPaginator(s.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, s.wrapError(err)
			}
			items = append(items, page.Items...)
		}
	}

	records := make([]*order.Record, 0, len(items))
	for _, item := range items {
		rec, err := unmarshalRecord(item)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	// DynamoDB applies Limit before filtering, so it is enforced here.
	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[:filter.Limit]
	}
	return records, nil
}

func casCondition(expected order.Status, version int64) expression.ConditionBuilder {
	return expression.Name("status").Equal(expression.Value(string(expected))).
		And(expression.Name("version").Equal(expression.Value(version)))
}

// listExpression builds the key condition and filter for a listing. The
// boolean is false when the filter selects everything.
func listExpression(filter record.ListFilter) (expression.Expression, bool, error) {
	builder := expression.NewBuilder()
	hasExpr := false

	if filter.OwnerID != "" {
		builder = builder.WithKeyCondition(expression.Key("owner_id").Equal(expression.Value(filter.OwnerID)))
		hasExpr = true
	}

	var cond expression.ConditionBuilder
	hasCond := false
	if filter.Product != "" {
		cond = expression.Name("product").Equal(expression.Value(string(filter.Product)))
		hasCond = true
	}
	if len(filter.Statuses) > 0 {
		var statusCond expression.ConditionBuilder
		for i, st := range filter.Statuses {
			c := expression.Name("status").Equal(expression.Value(string(st)))
			if i == 0 {
				statusCond = c
			} else {
				statusCond = statusCond.Or(c)
			}
		}
		if hasCond {
			cond = cond.And(statusCond)
		} else {
			cond = statusCond
		}
		hasCond = true
	}
	if hasCond {
		builder = builder.WithFilter(cond)
		hasExpr = true
	}

	if !hasExpr {
		return expression.Expression{}, false, nil
	}
	expr, err := builder.Build()
	return expr, true, err
}

func marshalRecord(rec *order.Record) (map[string]types.AttributeValue, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return attributevalue.MarshalMap(&recordItem{
		ID:        rec.ID,
		OwnerID:   rec.OwnerID,
		Product:   string(rec.Product),
		Status:    string(rec.Status),
		Version:   rec.Version,
		Data:      string(data),
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

func unmarshalRecord(av map[string]types.AttributeValue) (*order.Record, error) {
	var item recordItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, err
	}
	var rec order.Record
	if err := json.Unmarshal([]byte(item.Data), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// wrapError wraps DynamoDB errors with domain errors.
func (s *RecordStore) wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(record.ErrOperationTimeout, err)
	}
	return errors.Join(record.ErrConnectionFailed, err)
}

var _ record.Store = (*RecordStore)(nil)
