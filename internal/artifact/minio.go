package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// metaInstanceID is the user-metadata key carrying the producing instance.
// S3 returns user metadata with the X-Amz-Meta- prefix and canonical casing.
const metaInstanceID = "Instance-Id"

// MinioConfig configures the S3-backed store.
type MinioConfig struct {
	// Endpoint is host:port, no scheme.
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
	// Retain leaves objects in place on Clear, for setups where retention
	// is handled by bucket lifecycle rules.
	Retain bool
}

// Validate checks the config before a client is built.
func (c MinioConfig) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("bucket is required")
	}
	return nil
}

// MinioStore keeps one run's artifacts under a run-id key prefix in a
// MinIO/S3 bucket.
type MinioStore struct {
	client *minio.Client
	cfg    MinioConfig
	runID  string
}

// NewMinioStore builds a store for the given run. It ensures the bucket
// exists so the first upload does not fail on a fresh deployment.
func NewMinioStore(ctx context.Context, cfg MinioConfig, runID string) (*MinioStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("artifact store config: %w", err)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("creating bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &MinioStore{client: client, cfg: cfg, runID: runID}, nil
}

// Put implements Store. Overwriting the same key is the bucket's native
// last-write-wins behavior.
func (s *MinioStore) Put(ctx context.Context, name, instanceID string, data []byte) error {
	_, err := s.client.PutObject(
		ctx,
		s.cfg.Bucket,
		s.key(name),
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{
			ContentType:  "application/octet-stream",
			UserMetadata: map[string]string{metaInstanceID: instanceID},
		},
	)
	if err != nil {
		return fmt.Errorf("storing artifact %q: %w", name, err)
	}
	return nil
}

// GetAll implements Store.
func (s *MinioStore) GetAll(ctx context.Context, prefix string) ([]Entry, error) {
	var out []Entry
	objects := s.client.ListObjects(ctx, s.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:    s.key(prefix),
		Recursive: true,
	})
	for info := range objects {
		if info.Err != nil {
			return nil, fmt.Errorf("listing artifacts with prefix %q: %w", prefix, info.Err)
		}
		entry, err := s.fetch(ctx, info.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// List implements Store.
func (s *MinioStore) List(ctx context.Context) ([]string, error) {
	var names []string
	objects := s.client.ListObjects(ctx, s.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:    s.key(""),
		Recursive: true,
	})
	for info := range objects {
		if info.Err != nil {
			return nil, fmt.Errorf("listing artifacts: %w", info.Err)
		}
		names = append(names, s.name(info.Key))
	}
	sort.Strings(names)
	return names, nil
}

// Clear implements Store. With Retain set this is a no-op; retention then
// belongs to the bucket's lifecycle configuration.
func (s *MinioStore) Clear(ctx context.Context) error {
	if s.cfg.Retain {
		return nil
	}
	objects := s.client.ListObjects(ctx, s.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:    s.key(""),
		Recursive: true,
	})
	for info := range objects {
		if info.Err != nil {
			return fmt.Errorf("listing artifacts for removal: %w", info.Err)
		}
		if err := s.client.RemoveObject(ctx, s.cfg.Bucket, info.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("removing artifact %q: %w", s.name(info.Key), err)
		}
	}
	return nil
}

// fetch downloads one object and rebuilds its Entry.
func (s *MinioStore) fetch(ctx context.Context, key string) (Entry, error) {
	name := s.name(key)

	stat, err := s.client.StatObject(ctx, s.cfg.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return Entry{}, fmt.Errorf("reading artifact %q metadata: %w", name, err)
	}
	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return Entry{}, fmt.Errorf("fetching artifact %q: %w", name, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return Entry{}, fmt.Errorf("reading artifact %q: %w", name, err)
	}
	return Entry{
		Name:       name,
		InstanceID: stat.UserMetadata[metaInstanceID],
		Data:       data,
		StoredAt:   stat.LastModified,
	}, nil
}

// key maps an artifact name into the run's bucket namespace.
func (s *MinioStore) key(name string) string {
	return s.runID + "/" + name
}

// name is the inverse of key.
func (s *MinioStore) name(key string) string {
	return strings.TrimPrefix(key, s.runID+"/")
}

var _ Store = (*MinioStore)(nil)
var _ Store = (*MemoryStore)(nil)
