package api_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	api "github.com/felixgeelhaar/orderflow/interfaces/api"
)

func TestFromConfig(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := api.DefaultPortalConfig()
	cfg.Notification.Enabled = false

	built, err := api.FromConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	defer func() { _ = built.Close(ctx) }()

	rec, err := built.Service.Create(ctx, "owner-1", "travel_insurance", decimal.NewFromInt(80), api.Admin("admin-1"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if rec.Status != "applied" {
		t.Errorf("Status = %s, want applied", rec.Status)
	}

	res := built.Service.RequestTransition(ctx, rec.ID, "approved", api.Owner("owner-1"), api.Extras{})
	if res.OK {
		t.Fatal("owner should not approve an application")
	}
	if res.Code != api.CodeInvalidTransition && res.Code != api.CodeForbidden {
		t.Errorf("Code = %s", res.Code)
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw      string
		want     api.Status
		terminal bool
	}{
		{"approved", "approved", false},
		{"canceled", "cancelled", true},
		{"in_review", "under_review", false},
		{"mystery_state", "mystery_state", false},
	}
	for _, tt := range tests {
		info := api.Describe(tt.raw)
		if info.Status != tt.want || info.Terminal != tt.terminal {
			t.Errorf("Describe(%q) = %+v, want %s terminal=%v", tt.raw, info, tt.want, tt.terminal)
		}
	}
}
