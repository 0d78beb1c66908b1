// Package objstore reads structure files from S3-compatible object storage.
// Paths take the form s3://bucket/key; a key ending in "/" (or naming no
// object) is treated as a prefix when listing.
package objstore

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

// Scheme prefixes every object-store path.
const Scheme = "s3://"

// Config holds the connection settings, read from the object_store section.
type Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	Secure    bool   `mapstructure:"secure"`
}

// Enabled reports whether an endpoint is configured.
func (c Config) Enabled() bool { return strings.TrimSpace(c.Endpoint) != "" }

// Source implements mol2.Source on top of a minio client.
type Source struct {
	client *minio.Client
}

// New connects lazily; no request is made until the first Open or List.
func New(cfg Config) (*Source, error) {
	if !cfg.Enabled() {
		return nil, apperr.Config("object store endpoint is empty")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeConfig, "object store client for %s", cfg.Endpoint)
	}
	return &Source{client: client}, nil
}

// ParseURL splits s3://bucket/key.
func ParseURL(path string) (bucket, key string, err error) {
	if !strings.HasPrefix(path, Scheme) {
		return "", "", apperr.Config("%q is not an %s path", path, Scheme)
	}
	rest := strings.TrimPrefix(path, Scheme)
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", apperr.Config("%q has no bucket", path)
	}
	return bucket, key, nil
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

// Open streams one object.
func (s *Source) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	bucket, key, err := ParseURL(path)
	if err != nil {
		return nil, err
	}
	if _, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil, apperr.IO(err, "object %s does not exist", path)
		}
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// List returns path itself when it names an object, otherwise every object
// under the prefix, as s3:// paths sorted by key.
func (s *Source) List(ctx context.Context, path string) ([]string, error) {
	bucket, key, err := ParseURL(path)
	if err != nil {
		return nil, err
	}
	if key != "" && !strings.HasSuffix(key, "/") {
		if _, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{}); err == nil {
			return []string{path}, nil
		} else if !isNotFound(err) {
			return nil, err
		}
		key += "/"
	}
	var out []string
	for obj := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: key}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		out = append(out, Scheme+bucket+"/"+obj.Key)
	}
	sort.Strings(out)
	return out, nil
}
