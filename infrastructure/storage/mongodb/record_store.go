package mongodb

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/felixgeelhaar/orderflow/domain/order"
	"github.com/felixgeelhaar/orderflow/domain/record"
)

// recordDocument is the MongoDB document representation of a record.
// Filter fields are top-level; the record itself is kept as JSON so
// decimals and timestamp maps round-trip exactly.
type recordDocument struct {
	ID        string    `bson:"_id"`
	OwnerID   string    `bson:"owner_id"`
	Product   string    `bson:"product"`
	Status    string    `bson:"status"`
	Version   int64     `bson:"version"`
	Data      string    `bson:"data"`
	CreatedAt time.Time `bson:"created_at"`
}

// RecordStore is a MongoDB-backed implementation of record.Store.
type RecordStore struct {
	collection   *mongo.Collection
	queryTimeout time.Duration
	now          func() time.Time
}

// NewRecordStore creates a new MongoDB record store.
func NewRecordStore(client *Client, collectionName string) *RecordStore {
	if collectionName == "" {
		collectionName = "records"
	}
	return &RecordStore{
		collection:   client.Collection(collectionName),
		queryTimeout: client.config.QueryTimeout,
		now:          time.Now,
	}
}

// Create persists a new record.
func (s *RecordStore) Create(ctx context.Context, rec *order.Record) error {
	if rec == nil || rec.ID == "" {
		return record.ErrInvalidRecordID
	}

	doc, err := toDocument(rec)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
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

	var doc recordDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, record.ErrRecordNotFound
		}
		return nil, s.wrapError(err)
	}
	return fromDocument(&doc)
}

// Update replaces the document only if status and version are still
// the ones read, which makes the status precondition a compare-and-swap.
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
	doc, err := toDocument(rec)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	result, err := s.collection.ReplaceOne(ctx, casFilter(id, expect.Status, readVersion), doc)
	if err != nil {
		return nil, s.wrapError(err)
	}
	if result.MatchedCount == 0 {
		return nil, record.ErrPreconditionFailed
	}
	return rec, nil
}

// List returns records matching the filter, oldest first.
func (s *RecordStore) List(ctx context.Context, filter record.ListFilter) ([]*order.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := s.collection.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var out []*order.Record
	for cursor.Next(ctx) {
		var doc recordDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, s.wrapError(err)
		}
		rec, err := fromDocument(&doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, s.wrapError(err)
	}
	return out, nil
}

func casFilter(id string, expected order.Status, version int64) bson.M {
	return bson.M{"_id": id, "status": string(expected), "version": version}
}

// buildFilter converts the domain filter to a MongoDB filter.
func buildFilter(filter record.ListFilter) bson.M {
	f := bson.M{}
	if filter.OwnerID != "" {
		f["owner_id"] = filter.OwnerID
	}
	if filter.Product != "" {
		f["product"] = string(filter.Product)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		f["status"] = bson.M{"$in": statuses}
	}
	return f
}

func toDocument(rec *order.Record) (*recordDocument, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return &recordDocument{
		ID:        rec.ID,
		OwnerID:   rec.OwnerID,
		Product:   string(rec.Product),
		Status:    string(rec.Status),
		Version:   rec.Version,
		Data:      string(data),
		CreatedAt: rec.CreatedAt,
	}, nil
}

func fromDocument(doc *recordDocument) (*order.Record, error) {
	var rec order.Record
	if err := json.Unmarshal([]byte(doc.Data), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// wrapError wraps MongoDB errors with domain errors.
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
