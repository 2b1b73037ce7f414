package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/minio/minio-go/v7"

	"github.com/ktlog/auditor/tree/transparency"
)

// objectPrefix names every object an ObjectStore writes, so a single
// bucket can safely be shared with other tenants.
const objectPrefix = "head_"

// ObjectStore is an Adaptor backed by an S3-compatible object store. It
// never overwrites an existing object: each commit writes a new
// head_<size>_<root> object, and Load takes the lexicographically-last one.
// Size is encoded as 16 zero-padded hex digits, so lexicographic order and
// size order coincide — an attacker who can only add objects, not delete
// them, cannot make Load go backwards. Grounded on
// original_source/src/bin/signal-auditor/storage/gcp.rs's "always trust
// the newest object" design, generalized from GCS's generation-locked
// single object to a real corpus object-store client.
type ObjectStore struct {
	client *minio.Client
	bucket string
	macKey []byte
}

// NewObjectStore returns an ObjectStore writing to bucket via client.
func NewObjectStore(client *minio.Client, bucket string, macKey []byte) *ObjectStore {
	return &ObjectStore{client: client, bucket: bucket, macKey: macKey}
}

func objectName(size uint64, root [32]byte) string {
	return fmt.Sprintf("%s%016x_%x", objectPrefix, size, root)
}

// latestObject returns the lexicographically-last key under objectPrefix,
// or "" if the bucket holds no committed snapshot yet.
func (s *ObjectStore) latestObject(ctx context.Context) (string, error) {
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: objectPrefix}) {
		if obj.Err != nil {
			return "", obj.Err
		}
		names = append(names, obj.Key)
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return names[len(names)-1], nil
}

// Load implements Adaptor.
func (s *ObjectStore) Load() (*transparency.Snapshot, error) {
	ctx := context.Background()

	name, err := s.latestObject(ctx)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, nil
	}

	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	raw, err := io.ReadAll(obj)
	if err != nil {
		return nil, err
	}

	payload, err := openEnvelope(raw, s.macKey)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(payload)
}

// Commit implements Adaptor by writing a new, never-overwritten object
// named after the snapshot's size and resulting log root.
func (s *ObjectStore) Commit(snap *transparency.Snapshot) error {
	ctx := context.Background()

	root, err := snapshotRoot(snap)
	if err != nil {
		return err
	}
	envelope := sealEnvelope(encodeSnapshot(snap), s.macKey)

	_, err = s.client.PutObject(
		ctx,
		s.bucket,
		objectName(snap.PrefixSize, root),
		bytes.NewReader(envelope),
		int64(len(envelope)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"},
	)
	return err
}
