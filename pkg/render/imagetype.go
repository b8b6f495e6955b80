package render

import (
	"github.com/northbynortheast/signmaker/pkg/bounds"
	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/product"
)

// ImageType names a template family. The string is the template suffix.
type ImageType string

const (
	ImageMain         ImageType = "main"
	ImageDimensions   ImageType = "dimensions"
	ImagePeelAndStick ImageType = "peel_and_stick"
	ImageRear         ImageType = "rear"

	// ImageMaster is the print master used by the folder export. It has no
	// marketplace code.
	ImageMaster ImageType = "master_design_file"
)

// MarketplaceTypes are the rendered marketplace images in code order.
// Codes 005 and 006 are reserved and never produced here.
var MarketplaceTypes = []ImageType{ImageMain, ImageDimensions, ImagePeelAndStick, ImageRear}

var imageCodes = map[ImageType]string{
	ImageMain:         "001",
	ImageDimensions:   "002",
	ImagePeelAndStick: "003",
	ImageRear:         "004",
}

// Code returns the three-digit marketplace code, or "" for ImageMaster.
func (t ImageType) Code() string { return imageCodes[t] }

// ParseImageType accepts either the name ("main") or the code ("001").
func ParseImageType(s string) (ImageType, error) {
	for t, code := range imageCodes {
		if s == string(t) || s == code {
			return t, nil
		}
	}
	if s == string(ImageMaster) {
		return ImageMaster, nil
	}
	switch s {
	case "005", "006":
		return "", errors.New(errors.ErrCodeInvalidImageType, "image type %s is reserved and not rendered", s)
	}
	return "", errors.New(errors.ErrCodeInvalidImageType, "invalid image type: %q (must be one of main, dimensions, peel_and_stick, rear or 001-004)", s)
}

// InstructionType picks the bounds variant for an image: the peel-and-stick
// image always uses its own geometry, everything else follows the mounting.
func InstructionType(t ImageType, m product.Mounting) bounds.InstructionType {
	if t == ImagePeelAndStick {
		return bounds.PeelAndStick
	}
	return bounds.ForMounting(m)
}
