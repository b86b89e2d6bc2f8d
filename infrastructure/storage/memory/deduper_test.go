package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/orderflow/infrastructure/storage/memory"
)

func TestDeduper_Claim(t *testing.T) {
	t.Parallel()

	d := memory.NewDeduper()
	ctx := context.Background()

	first, err := d.Claim(ctx, "rec-1:2")
	if err != nil || !first {
		t.Fatalf("first Claim() = %v, %v; want true, nil", first, err)
	}
	second, err := d.Claim(ctx, "rec-1:2")
	if err != nil || second {
		t.Errorf("second Claim() = %v, %v; want false, nil", second, err)
	}
	other, _ := d.Claim(ctx, "rec-1:3")
	if !other {
		t.Error("Claim() of a different version should succeed")
	}
}

func TestDeduper_Expiry(t *testing.T) {
	t.Parallel()

	d := memory.NewDeduper(memory.WithClaimTTL(time.Millisecond))
	ctx := context.Background()

	_, _ = d.Claim(ctx, "rec-1:2")
	time.Sleep(5 * time.Millisecond)

	again, _ := d.Claim(ctx, "rec-1:2")
	if !again {
		t.Error("Claim() after TTL should succeed")
	}
}

func TestDeduper_Eviction(t *testing.T) {
	t.Parallel()

	d := memory.NewDeduper(memory.WithMaxClaims(2))
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, _ = d.Claim(ctx, id)
	}
	if d.Size() != 2 {
		t.Errorf("Size() = %d, want 2", d.Size())
	}
}
