// Package storage uploads generated images to Cloudflare R2 (or any
// S3-compatible store) and builds their public URLs.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/httputil"
	"github.com/northbynortheast/signmaker/pkg/observability"
)

// DefaultBucket is the bucket used when none is configured.
const DefaultBucket = "productimages"

// Uploader is the subset of storage used by image generation.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	PublicURL(key string) string
}

// Options configures an R2 client.
type Options struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string

	// PublicURL is the base under which objects are served, e.g. the r2.dev
	// domain or a custom domain. Empty falls back to the endpoint URL.
	PublicURL string

	// Endpoint overrides the R2 endpoint host (host[:port]), e.g. a local
	// MinIO for testing.
	Endpoint string
	Insecure bool

	// CreateBucket makes the bucket when it does not exist.
	CreateBucket bool

	Logger *log.Logger
}

// Configured reports whether credentials and a target are present.
func (o Options) Configured() bool {
	return o.AccessKeyID != "" && o.SecretAccessKey != "" && (o.AccountID != "" || o.Endpoint != "")
}

// ValidateAndSetDefaults checks required fields.
func (o *Options) ValidateAndSetDefaults() error {
	if !o.Configured() {
		return errors.New(errors.ErrCodeConfiguration, "storage requires R2_ACCOUNT_ID (or an endpoint), R2_ACCESS_KEY_ID and R2_SECRET_ACCESS_KEY")
	}
	if o.Bucket == "" {
		o.Bucket = DefaultBucket
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// EndpointHost returns the S3 API host.
func (o Options) EndpointHost() string {
	if o.Endpoint != "" {
		return o.Endpoint
	}
	return o.AccountID + ".r2.cloudflarestorage.com"
}

// R2 is an S3 client bound to one bucket.
type R2 struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    *log.Logger
}

// NewR2 builds a client. With CreateBucket set it also ensures the bucket
// exists, which needs network access.
func NewR2(ctx context.Context, opts Options) (*R2, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	client, err := minio.New(opts.EndpointHost(), &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: !opts.Insecure,
		Region: "auto",
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "create storage client")
	}

	r := &R2{client: client, bucket: opts.Bucket, logger: opts.Logger}
	r.publicURL = strings.TrimRight(opts.PublicURL, "/")
	if r.publicURL == "" {
		scheme := "https"
		if opts.Insecure {
			scheme = "http"
		}
		r.publicURL = fmt.Sprintf("%s://%s/%s", scheme, opts.EndpointHost(), opts.Bucket)
	}

	if opts.CreateBucket {
		exists, err := client.BucketExists(ctx, opts.Bucket)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "check bucket %s", opts.Bucket)
		}
		if !exists {
			if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
				return nil, errors.Wrap(errors.ErrCodeStorage, err, "create bucket %s", opts.Bucket)
			}
			r.logger.Info("created bucket", "bucket", opts.Bucket)
		}
	}
	return r, nil
}

// Bucket returns the bucket name.
func (r *R2) Bucket() string { return r.bucket }

// PublicURL returns the URL an object is served from. The key is
// percent-encoded per path segment, so spaces become %20.
func (r *R2) PublicURL(key string) string {
	return JoinURL(r.publicURL, key)
}

// JoinURL appends an escaped object key to base.
func JoinURL(base, key string) string {
	segs := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segs, "/")
}

// Upload stores data under key and returns its public URL. Transient
// failures are retried with backoff.
func (r *R2) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = ContentType(key)
	}
	start := time.Now()
	err := httputil.RetryWithBackoff(ctx, func() error {
		_, err := r.client.PutObject(ctx, r.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: contentType,
		})
		return classify(err)
	})
	observability.Upload().OnUpload(ctx, r.bucket, key, int64(len(data)), time.Since(start), err)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "upload %s", key)
	}
	r.logger.Debug("uploaded", "bucket", r.bucket, "key", key, "bytes", len(data))
	return r.PublicURL(key), nil
}

// Delete removes key. Removing a missing key is not an error.
func (r *R2) Delete(ctx context.Context, key string) error {
	if err := r.client.RemoveObject(ctx, r.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete %s", key)
	}
	return nil
}

// Object describes a stored object.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	URL          string    `json:"url"`
}

// List returns objects whose key starts with prefix.
func (r *R2) List(ctx context.Context, prefix string) ([]Object, error) {
	var out []Object
	for info := range r.client.ListObjects(ctx, r.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, info.Err, "list %s", prefix)
		}
		out = append(out, Object{Key: info.Key, Size: info.Size, LastModified: info.LastModified, URL: r.PublicURL(info.Key)})
	}
	return out, nil
}

// Exists reports whether key is present.
func (r *R2) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.client.StatObject(ctx, r.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, errors.Wrap(errors.ErrCodeStorage, err, "stat %s", key)
}

// classify marks throttling and server errors as retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode == 0 || httputil.IsTransientStatus(resp.StatusCode) {
		return httputil.Retryable(err)
	}
	return err
}

// ContentType guesses the media type from the key's extension.
func ContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".svg":
		return "image/svg+xml"
	case ".zip":
		return "application/zip"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	}
	return "application/octet-stream"
}

var _ Uploader = (*R2)(nil)
