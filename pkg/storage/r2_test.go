package storage

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	smerrors "github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/httputil"
)

func TestOptionsValidation(t *testing.T) {
	var o Options
	err := o.ValidateAndSetDefaults()
	assert.True(t, smerrors.Is(err, smerrors.ErrCodeConfiguration), "err = %v", err)

	o = Options{AccountID: "abc123", AccessKeyID: "k", SecretAccessKey: "s"}
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.Equal(t, DefaultBucket, o.Bucket)
	assert.Equal(t, "abc123.r2.cloudflarestorage.com", o.EndpointHost())

	o.Endpoint = "localhost:9000"
	assert.Equal(t, "localhost:9000", o.EndpointHost())
}

func TestPublicURL(t *testing.T) {
	r, err := NewR2(context.Background(), Options{
		AccountID: "abc123", AccessKeyID: "k", SecretAccessKey: "s",
		PublicURL: "https://pub-xyz.r2.dev/",
	})
	require.NoError(t, err)

	tests := []struct {
		key  string
		want string
	}{
		{"M1001 - 001.png", "https://pub-xyz.r2.dev/M1001%20-%20001.png"},
		{"exports/M1001 - 004.png", "https://pub-xyz.r2.dev/exports/M1001%20-%20004.png"},
	}
	for _, tt := range tests {
		if got := r.PublicURL(tt.key); got != tt.want {
			t.Errorf("PublicURL(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestPublicURLFallback(t *testing.T) {
	r, err := NewR2(context.Background(), Options{
		Endpoint: "localhost:9000", Insecure: true, AccessKeyID: "k", SecretAccessKey: "s", Bucket: "signs",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/signs/M1001%20-%20001.png", r.PublicURL("M1001 - 001.png"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"network", errors.New("connection reset"), true},
		{"server", minio.ErrorResponse{StatusCode: http.StatusServiceUnavailable, Code: "SlowDown"}, true},
		{"throttled", minio.ErrorResponse{StatusCode: http.StatusTooManyRequests}, true},
		{"denied", minio.ErrorResponse{StatusCode: http.StatusForbidden, Code: "AccessDenied"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := httputil.IsRetryable(classify(tt.err)); got != tt.retryable {
				t.Errorf("retryable = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"M1001 - 001.png": "image/png",
		"a.JPG":           "image/jpeg",
		"master.svg":      "image/svg+xml",
		"folders.zip":     "application/zip",
		"amazon.xlsx":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"no-extension":    "application/octet-stream",
	}
	for key, want := range tests {
		if got := ContentType(key); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", key, got, want)
		}
	}
}
