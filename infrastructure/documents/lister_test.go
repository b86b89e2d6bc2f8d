package documents

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/felixgeelhaar/orderflow/domain/customer"
	"github.com/felixgeelhaar/orderflow/domain/order"
)

type fakeSource struct {
	objects   []objectInfo
	err       error
	gotPrefix string
}

func (f *fakeSource) listObjects(_ context.Context, prefix string) ([]objectInfo, error) {
	f.gotPrefix = prefix
	return f.objects, f.err
}

// fakeS3 serves ListObjectsV2 in two pages.
type fakeS3 struct {
	pages [][]types.Object
	calls int
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	i := f.calls
	f.calls++
	out := &s3.ListObjectsV2Output{Contents: f.pages[i], Prefix: in.Prefix}
	if i+1 < len(f.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String("next")
	}
	return out, nil
}

func TestLister_RecordPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		root string
		want string
	}{
		{"", "cust-1/forex_card/fx-9/"},
		{"uploads", "uploads/cust-1/forex_card/fx-9/"},
		{"/uploads/", "uploads/cust-1/forex_card/fx-9/"},
	}
	for _, tt := range tests {
		l := newLister(&fakeSource{}, "test", tt.root)
		if got := l.RecordPrefix("cust-1", order.ProductForexCard, "fx-9"); got != tt.want {
			t.Errorf("RecordPrefix(root=%q) = %s, want %s", tt.root, got, tt.want)
		}
	}
}

func TestLister_ListDocuments(t *testing.T) {
	t.Parallel()

	jan := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)
	prefix := "cust-1/education_loan/ed-1/"

	src := &fakeSource{objects: []objectInfo{
		{Key: prefix + "passport.pdf", LastModified: jan},
		{Key: prefix + "passport.jpg", LastModified: feb},
		{Key: prefix + "admission_letter.pdf", LastModified: jan},
		{Key: prefix + "bank_statement/page1.png", LastModified: jan},
		{Key: prefix + "bank_statement/page2.png", LastModified: feb},
		{Key: prefix + "scratch/", LastModified: feb},
		{Key: prefix, LastModified: feb},
	}}
	l := newLister(src, "test", "")

	docs, err := l.ListDocuments(context.Background(), "cust-1", order.ProductEducationLoan, "ed-1")
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if src.gotPrefix != prefix {
		t.Errorf("listed prefix %s, want %s", src.gotPrefix, prefix)
	}

	want := []order.Document{
		{Type: "admission_letter", UploadedAt: jan},
		{Type: "bank_statement", UploadedAt: feb},
		{Type: "passport", UploadedAt: feb},
	}
	if len(docs) != len(want) {
		t.Fatalf("got %d documents %v, want %d", len(docs), docs, len(want))
	}
	for i := range want {
		if docs[i].Type != want[i].Type || !docs[i].UploadedAt.Equal(want[i].UploadedAt) {
			t.Errorf("doc %d = %+v, want %+v", i, docs[i], want[i])
		}
	}
}

func TestLister_ErrorWrapsLookupFailed(t *testing.T) {
	t.Parallel()

	l := newLister(&fakeSource{err: errors.New("access denied")}, "test", "")
	_, err := l.ListDocuments(context.Background(), "cust-1", order.ProductForexCard, "fx-1")
	if !errors.Is(err, customer.ErrLookupFailed) {
		t.Errorf("ListDocuments() error = %v, want ErrLookupFailed", err)
	}
}

func TestS3Lister_Paginates(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	client := &fakeS3{pages: [][]types.Object{
		{{Key: aws.String("c/forex_card/fx-1/passport.pdf"), LastModified: &now}},
		{{Key: aws.String("c/forex_card/fx-1/visa.pdf")}},
	}}
	l := newS3Lister(client, "uploads", "")

	docs, err := l.ListDocuments(context.Background(), "c", order.ProductForexCard, "fx-1")
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if client.calls != 2 {
		t.Errorf("ListObjectsV2 called %d times, want 2", client.calls)
	}
	if len(docs) != 2 || docs[0].Type != "passport" || docs[1].Type != "visa" {
		t.Errorf("docs = %+v", docs)
	}
	if l.Provider() != "aws-s3" {
		t.Errorf("Provider() = %s", l.Provider())
	}
}

func TestConstructors_RequireBucket(t *testing.T) {
	t.Parallel()

	if _, err := NewS3Lister(context.Background(), S3Config{}); !errors.Is(err, ErrBucketRequired) {
		t.Errorf("NewS3Lister() error = %v", err)
	}
	if _, err := NewGCSLister(context.Background(), GCSConfig{}); !errors.Is(err, ErrBucketRequired) {
		t.Errorf("NewGCSLister() error = %v", err)
	}
	if _, err := NewAzureLister(AzureConfig{}); !errors.Is(err, ErrBucketRequired) {
		t.Errorf("NewAzureLister() error = %v", err)
	}
	if _, err := NewAzureLister(AzureConfig{Container: "docs"}); err == nil {
		t.Error("NewAzureLister() without account should fail")
	}
}

func TestFilesystemLister(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	recordDir := filepath.Join(dir, "uploads", "cust-1", "forex_card", "fx-1")
	if err := os.MkdirAll(filepath.Join(recordDir, "bank_statement"), 0o750); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"passport.pdf", "visa.png", filepath.Join("bank_statement", "jan.pdf")} {
		if err := os.WriteFile(filepath.Join(recordDir, name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	l, err := NewFilesystemLister(dir, "uploads")
	if err != nil {
		t.Fatalf("NewFilesystemLister() error = %v", err)
	}
	docs, err := l.ListDocuments(context.Background(), "cust-1", order.ProductForexCard, "fx-1")
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(docs) != 3 || docs[0].Type != "bank_statement" || docs[1].Type != "passport" || docs[2].Type != "visa" {
		t.Errorf("docs = %+v", docs)
	}
	if docs[0].UploadedAt.IsZero() {
		t.Error("UploadedAt should come from the file modification time")
	}

	none, err := l.ListDocuments(context.Background(), "cust-2", order.ProductForexCard, "fx-2")
	if err != nil || len(none) != 0 {
		t.Errorf("missing record directory = %v, %v; want no documents", none, err)
	}

	if _, err := NewFilesystemLister("", ""); !errors.Is(err, ErrDirRequired) {
		t.Errorf("NewFilesystemLister(\"\") error = %v", err)
	}
}
