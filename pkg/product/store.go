package product

import (
	"context"
	"time"

	"github.com/northbynortheast/signmaker/pkg/errors"
)

// Store persists products. Implementations must be safe for concurrent use.
//
// Lookups by an unknown M Number return a PRODUCT_NOT_FOUND error; creating
// a duplicate M Number returns CONFLICT.
type Store interface {
	// List returns products ordered by M Number.
	List(ctx context.Context, f Filter) ([]*Product, error)

	// Get returns a single product.
	Get(ctx context.Context, mNumber string) (*Product, error)

	// Create inserts p and sets its ID and timestamps.
	Create(ctx context.Context, p *Product) error

	// Update applies the non-nil fields of patch and returns the result.
	Update(ctx context.Context, mNumber string, patch Patch) (*Product, error)

	// Delete removes a product.
	Delete(ctx context.Context, mNumber string) error

	// Close releases the underlying connection.
	Close() error
}

// Filter narrows List results. The zero Filter matches everything.
type Filter struct {
	QAStatus QAStatus
	MNumbers []string
}

// Approved returns approved products, or every product when none are
// approved yet. Generation and export jobs use this selection.
func Approved(ctx context.Context, s Store) ([]*Product, error) {
	products, err := s.List(ctx, Filter{QAStatus: QAApproved})
	if err != nil {
		return nil, err
	}
	if len(products) > 0 {
		return products, nil
	}
	return s.List(ctx, Filter{})
}

// Select loads the named products in order, or the Approved set when none
// are named. An unknown M Number or an empty database is an error.
func Select(ctx context.Context, s Store, mNumbers []string) ([]*Product, error) {
	if len(mNumbers) == 0 {
		products, err := Approved(ctx, s)
		if err != nil {
			return nil, err
		}
		if len(products) == 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "no products in the database")
		}
		return products, nil
	}
	out := make([]*Product, 0, len(mNumbers))
	for _, m := range mNumbers {
		p, err := s.Get(ctx, m)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Description *string      `json:"description,omitempty"`
	Color       *Color       `json:"color,omitempty"`
	Size        *Size        `json:"size,omitempty"`
	Orientation *Orientation `json:"orientation,omitempty"`
	Mounting    *Mounting    `json:"mounting_type,omitempty"`
	LayoutMode  *LayoutMode  `json:"layout_mode,omitempty"`
	Font        *Font        `json:"font,omitempty"`
	Icons       *[]string    `json:"icon_files,omitempty"`
	TextLines   *[]TextLine  `json:"text_lines,omitempty"`
	IconScale   *float64     `json:"icon_scale,omitempty"`
	TextScale   *float64     `json:"text_scale,omitempty"`
	IconOffsetX *float64     `json:"icon_offset_x,omitempty"`
	IconOffsetY *float64     `json:"icon_offset_y,omitempty"`
	EAN         *string      `json:"ean,omitempty"`
	QAStatus    *QAStatus    `json:"qa_status,omitempty"`
	QAComment   *string      `json:"qa_comment,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (pt Patch) Empty() bool {
	return pt == Patch{}
}

// Apply writes the non-nil fields into p, normalizes and validates the
// result. p is left untouched when validation fails.
func (pt Patch) Apply(p *Product) error {
	next := p.Clone()
	if pt.Description != nil {
		next.Description = *pt.Description
	}
	if pt.Color != nil {
		next.Color = *pt.Color
	}
	if pt.Size != nil {
		next.Size = *pt.Size
	}
	if pt.Orientation != nil {
		next.Orientation = *pt.Orientation
	}
	if pt.Mounting != nil {
		next.Mounting = *pt.Mounting
	}
	if pt.LayoutMode != nil {
		next.LayoutMode = *pt.LayoutMode
	}
	if pt.Font != nil {
		next.Font = *pt.Font
	}
	if pt.Icons != nil {
		next.Icons = append([]string(nil), (*pt.Icons)...)
	}
	if pt.TextLines != nil {
		next.TextLines = append([]TextLine(nil), (*pt.TextLines)...)
	}
	if pt.IconScale != nil {
		next.IconScale = *pt.IconScale
	}
	if pt.TextScale != nil {
		next.TextScale = *pt.TextScale
	}
	if pt.IconOffsetX != nil {
		next.IconOffsetX = *pt.IconOffsetX
	}
	if pt.IconOffsetY != nil {
		next.IconOffsetY = *pt.IconOffsetY
	}
	if pt.EAN != nil {
		next.EAN = *pt.EAN
	}
	if pt.QAStatus != nil {
		next.QAStatus = *pt.QAStatus
	}
	if pt.QAComment != nil {
		next.QAComment = *pt.QAComment
	}

	next.Normalize()
	if err := next.Validate(); err != nil {
		return err
	}
	next.UpdatedAt = time.Now().UTC()
	*p = *next
	return nil
}
