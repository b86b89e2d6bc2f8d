package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/orderflow/domain/customer"
	"github.com/felixgeelhaar/orderflow/domain/order"
	"github.com/felixgeelhaar/orderflow/infrastructure/storage/memory"
)

func TestCustomerStore_Profiles(t *testing.T) {
	t.Parallel()

	store := memory.NewCustomerStore()
	ctx := context.Background()

	if _, err := store.GetProfile(ctx, "owner-1"); !errors.Is(err, customer.ErrProfileNotFound) {
		t.Fatalf("GetProfile() error = %v, want ErrProfileNotFound", err)
	}

	store.PutProfile(order.Profile{OwnerID: "owner-1", KYCStatus: order.KYCSubmitted})
	if err := store.SetKYCStatus("owner-1", order.KYCVerified); err != nil {
		t.Fatalf("SetKYCStatus() error = %v", err)
	}

	p, err := store.GetProfile(ctx, "owner-1")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if p.KYCStatus != order.KYCVerified {
		t.Errorf("KYCStatus = %s, want verified", p.KYCStatus)
	}

	if err := store.SetKYCStatus("owner-2", order.KYCVerified); !errors.Is(err, customer.ErrProfileNotFound) {
		t.Errorf("SetKYCStatus(unknown) error = %v, want ErrProfileNotFound", err)
	}
}

func TestCustomerStore_Documents(t *testing.T) {
	t.Parallel()

	store := memory.NewCustomerStore()
	ctx := context.Background()

	docs, err := store.ListDocuments(ctx, "owner-1", order.ProductRemittance, "rec-1")
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("ListDocuments() = %v, want empty", docs)
	}

	store.AttachDocument("rec-1", order.Document{Type: "passport", UploadedAt: time.Now()})
	docs, _ = store.ListDocuments(ctx, "owner-1", order.ProductRemittance, "rec-1")
	if len(docs) != 1 || docs[0].Type != "passport" {
		t.Errorf("ListDocuments() = %v, want one passport", docs)
	}
}
