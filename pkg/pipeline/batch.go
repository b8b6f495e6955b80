package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/product"
)

// Uploader stores a generated image and returns its public URL.
// *storage.R2 satisfies it.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Failure is a variant that could not be produced or published.
type Failure struct {
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
	Err  string `json:"error"`
}

// NewFailure records err against name.
func NewFailure(name string, err error) Failure {
	return Failure{Name: name, Code: string(errors.GetCode(err)), Err: err.Error()}
}

// BatchOptions says where generated images go. Both destinations are
// optional; with neither set the batch only warms the cache.
type BatchOptions struct {
	// OutDir receives "{m} - {code}.png" files.
	OutDir string
	// Uploader publishes each image under its file name.
	Uploader Uploader
	// Progress is called after each product.
	Progress func(p *product.Product, results []Result)
}

// BatchReport summarizes a batch.
type BatchReport struct {
	Products int       `json:"products"`
	Images   int       `json:"images"`
	Uploaded []string  `json:"uploaded,omitempty"`
	Written  []string  `json:"written,omitempty"`
	Failures []Failure `json:"failures,omitempty"`
}

// Batch generates every product in order. Variant, write and upload
// failures are collected in the report; only a cancelled ctx or an
// unusable OutDir ends the batch early.
func (r *Runner) Batch(ctx context.Context, products []*product.Product, opts BatchOptions) (BatchReport, error) {
	var rep BatchReport
	if opts.OutDir != "" {
		if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
			return rep, errors.Wrap(errors.ErrCodeStorage, err, "create %s", opts.OutDir)
		}
	}

	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		results := r.GenerateAll(ctx, p)
		rep.Products++
		for _, res := range results {
			if res.Err != nil {
				rep.Failures = append(rep.Failures, NewFailure(res.Key.Name(), res.Err))
				continue
			}
			rep.Images++
			name := res.Key.FileName()

			if opts.OutDir != "" {
				path := filepath.Join(opts.OutDir, name)
				if err := os.WriteFile(path, res.Image.Data, 0o644); err != nil {
					rep.Failures = append(rep.Failures, NewFailure(res.Key.Name(), errors.Wrap(errors.ErrCodeStorage, err, "write %s", path)))
				} else {
					rep.Written = append(rep.Written, path)
				}
			}
			if opts.Uploader != nil {
				url, err := opts.Uploader.Upload(ctx, name, res.Image.Data, "image/png")
				if err != nil {
					rep.Failures = append(rep.Failures, NewFailure(res.Key.Name(), err))
				} else {
					rep.Uploaded = append(rep.Uploaded, url)
				}
			}
		}
		if opts.Progress != nil {
			opts.Progress(p, results)
		}
	}

	r.Logger.Info("batch complete",
		"products", rep.Products,
		"images", rep.Images,
		"uploaded", len(rep.Uploaded),
		"failures", len(rep.Failures))
	return rep, nil
}
