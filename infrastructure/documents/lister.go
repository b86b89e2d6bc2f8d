// Package documents lists the documents a customer uploaded for a record
// from object storage. Objects live under owner/product/record/ and the
// document type is the object's file name without extension, so
// "cust-1/forex_card/fx-9/passport.pdf" is a "passport".
package documents

import (
	"context"
	"errors"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/felixgeelhaar/orderflow/domain/customer"
	"github.com/felixgeelhaar/orderflow/domain/order"
)

// ErrBucketRequired is returned when a lister is built without a bucket.
var ErrBucketRequired = errors.New("documents: bucket is required")

// objectInfo is the provider-neutral view of one stored object.
type objectInfo struct {
	Key          string
	LastModified time.Time
}

// objectSource lists object keys under a prefix.
type objectSource interface {
	listObjects(ctx context.Context, prefix string) ([]objectInfo, error)
}

// Lister implements customer.DocumentLister over an object store.
type Lister struct {
	source   objectSource
	provider string
	root     string
}

func newLister(source objectSource, provider, root string) *Lister {
	return &Lister{source: source, provider: provider, root: strings.Trim(root, "/")}
}

// Provider names the backing object store.
func (l *Lister) Provider() string {
	return l.provider
}

// RecordPrefix returns the object prefix holding a record's documents.
func (l *Lister) RecordPrefix(ownerID string, product order.Product, recordID string) string {
	p := ownerID + "/" + string(product) + "/" + recordID + "/"
	if l.root != "" {
		p = l.root + "/" + p
	}
	return p
}

// ListDocuments returns one document per type, keeping the most recent
// upload of each, ordered by type.
func (l *Lister) ListDocuments(ctx context.Context, ownerID string, product order.Product, recordID string) ([]order.Document, error) {
	prefix := l.RecordPrefix(ownerID, product, recordID)
	objects, err := l.source.listObjects(ctx, prefix)
	if err != nil {
		return nil, errors.Join(customer.ErrLookupFailed, err)
	}
	return documentsFromObjects(prefix, objects), nil
}

func documentsFromObjects(prefix string, objects []objectInfo) []order.Document {
	latest := make(map[string]time.Time)
	for _, obj := range objects {
		docType := documentType(strings.TrimPrefix(obj.Key, prefix))
		if docType == "" {
			continue
		}
		if cur, ok := latest[docType]; !ok || obj.LastModified.After(cur) {
			latest[docType] = obj.LastModified
		}
	}

	docs := make([]order.Document, 0, len(latest))
	for t, at := range latest {
		docs = append(docs, order.Document{Type: t, UploadedAt: at})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Type < docs[j].Type })
	return docs
}

// documentType maps a key relative to the record prefix to a document
// type. Nested keys use their first segment; directory markers are skipped.
func documentType(rel string) string {
	if rel == "" || strings.HasSuffix(rel, "/") {
		return ""
	}
	if i := strings.Index(rel, "/"); i >= 0 {
		return rel[:i]
	}
	return strings.TrimSuffix(rel, path.Ext(rel))
}

var _ customer.DocumentLister = (*Lister)(nil)
