package io

import (
	"context"

	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/product"
)

// LoadReport counts what [Load] did.
type LoadReport struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Load writes products to store. Existing M Numbers are skipped, or
// overwritten field by field when overwrite is set. It stops at the first
// store error other than a conflict.
func Load(ctx context.Context, store product.Store, products []*product.Product, overwrite bool) (LoadReport, error) {
	var rep LoadReport
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		err := store.Create(ctx, p)
		switch {
		case err == nil:
			rep.Created++
		case errors.Is(err, errors.ErrCodeConflict) && overwrite:
			if _, err := store.Update(ctx, p.MNumber, replacement(p)); err != nil {
				return rep, err
			}
			rep.Updated++
		case errors.Is(err, errors.ErrCodeConflict):
			rep.Skipped++
		default:
			return rep, err
		}
	}
	return rep, nil
}

// replacement is a patch setting every editable field to p's value.
func replacement(p *product.Product) product.Patch {
	icons := append([]string(nil), p.Icons...)
	lines := append([]product.TextLine(nil), p.TextLines...)
	return product.Patch{
		Description: &p.Description,
		Color:       &p.Color,
		Size:        &p.Size,
		Orientation: &p.Orientation,
		Mounting:    &p.Mounting,
		LayoutMode:  &p.LayoutMode,
		Font:        &p.Font,
		Icons:       &icons,
		TextLines:   &lines,
		IconScale:   &p.IconScale,
		TextScale:   &p.TextScale,
		IconOffsetX: &p.IconOffsetX,
		IconOffsetY: &p.IconOffsetY,
		EAN:         &p.EAN,
		QAStatus:    &p.QAStatus,
		QAComment:   &p.QAComment,
	}
}
