package mongodb

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/shopspring/decimal"

	"github.com/felixgeelhaar/orderflow/domain/order"
	"github.com/felixgeelhaar/orderflow/domain/record"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	for _, opt := range []ConfigOption{WithURI("mongodb://db:27017"), WithDatabase("fx")} {
		opt(&cfg)
	}
	if cfg.URI != "mongodb://db:27017" || cfg.Database != "fx" {
		t.Errorf("options not applied: %+v", cfg)
	}
	if cfg.QueryTimeout <= 0 || cfg.ConnectTimeout <= 0 {
		t.Error("timeouts should default to positive values")
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	t.Parallel()

	rec := order.NewRecord("fx-1", "owner-1", order.ProductCurrencyExchange, decimal.RequireFromString("4100.25"))
	rec.AdvanceReference = "ADV-9"

	doc, err := toDocument(rec)
	if err != nil {
		t.Fatalf("toDocument() error = %v", err)
	}
	if doc.ID != "fx-1" || doc.Status != "draft" || doc.Version != 1 {
		t.Errorf("doc = %+v", doc)
	}

	got, err := fromDocument(doc)
	if err != nil {
		t.Fatalf("fromDocument() error = %v", err)
	}
	if !got.AmountUSD.Equal(rec.AmountUSD) || got.AdvanceReference != "ADV-9" {
		t.Errorf("round trip lost data: %+v", got)
	}
}

func TestBuildFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		filter record.ListFilter
		want   bson.M
	}{
		{"empty", record.ListFilter{}, bson.M{}},
		{"owner", record.ListFilter{OwnerID: "o-1"}, bson.M{"owner_id": "o-1"}},
		{
			"product and statuses",
			record.ListFilter{Product: order.ProductRemittance, Statuses: []order.Status{order.StatusCompleted}},
			bson.M{"product": "remittance", "status": bson.M{"$in": []string{"completed"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := buildFilter(tt.filter); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("buildFilter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCASFilter(t *testing.T) {
	t.Parallel()

	got := casFilter("fx-1", order.StatusApproved, 4)
	want := bson.M{"_id": "fx-1", "status": "approved", "version": int64(4)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("casFilter() = %v, want %v", got, want)
	}
}

func TestRecordStore_Validation(t *testing.T) {
	t.Parallel()

	store := &RecordStore{}
	ctx := context.Background()

	if err := store.Create(ctx, &order.Record{}); !errors.Is(err, record.ErrInvalidRecordID) {
		t.Errorf("Create() error = %v, want ErrInvalidRecordID", err)
	}
	if _, err := store.Get(ctx, ""); !errors.Is(err, record.ErrInvalidRecordID) {
		t.Errorf("Get() error = %v, want ErrInvalidRecordID", err)
	}
	if _, err := store.Update(ctx, "", order.Patch{}, record.Expect{Status: order.StatusDraft}); !errors.Is(err, record.ErrInvalidRecordID) {
		t.Errorf("Update() error = %v, want ErrInvalidRecordID", err)
	}
}
