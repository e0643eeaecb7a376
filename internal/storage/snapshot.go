package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"time"
)

const snapshotContentType = "application/gzip"

// SnapshotSource is a vector store that can serialise itself.
type SnapshotSource interface {
	Exists() bool
	Snapshot(ctx context.Context, w io.Writer) error
}

// ObjectUploader is the subset of S3Client used for snapshots.
type ObjectUploader interface {
	EnsureBucket(ctx context.Context) error
	PutObject(ctx context.Context, key string, body io.Reader, contentType string) error
	ObjectURI(key string) string
}

// SnapshotBackup uploads the current index to object storage before it is
// rebuilt.
type SnapshotBackup struct {
	source     SnapshotSource
	uploader   ObjectUploader
	collection string
	now        func() time.Time
}

func NewSnapshotBackup(source SnapshotSource, uploader ObjectUploader, collection string) *SnapshotBackup {
	return &SnapshotBackup{
		source:     source,
		uploader:   uploader,
		collection: collection,
		now:        time.Now,
	}
}

// SnapshotKey is the object key for a snapshot taken at t.
func SnapshotKey(collection string, t time.Time) string {
	return fmt.Sprintf("snapshots/%s-%s.gob.gz", collection, t.UTC().Format("20060102T150405Z"))
}

// Backup returns the URI of the uploaded snapshot, or "" when there is no
// index yet.
func (b *SnapshotBackup) Backup(ctx context.Context) (string, error) {
	if !b.source.Exists() {
		return "", nil
	}

	var buf bytes.Buffer
	if err := b.source.Snapshot(ctx, &buf); err != nil {
		return "", fmt.Errorf("failed to snapshot store: %w", err)
	}

	if err := b.uploader.EnsureBucket(ctx); err != nil {
		return "", err
	}

	key := SnapshotKey(b.collection, b.now())
	if err := b.uploader.PutObject(ctx, key, bytes.NewReader(buf.Bytes()), snapshotContentType); err != nil {
		return "", err
	}

	uri := b.uploader.ObjectURI(key)
	log.Printf("storage: uploaded %d byte snapshot to %s", buf.Len(), uri)
	return uri, nil
}
