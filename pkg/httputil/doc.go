// Package httputil holds small helpers for talking to remote HTTP services,
// currently the S3-compatible object store.
//
// [Retry] re-runs an operation with exponential backoff, but only when the
// failure was marked transient with [Retryable]:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    _, err := client.PutObject(ctx, bucket, key, r, size, opts)
//	    if err != nil && httputil.IsTransientStatus(statusOf(err)) {
//	        return httputil.Retryable(err)
//	    }
//	    return err
//	})
package httputil
