package io

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/product"
)

// Format is a catalogue file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", errors.New(errors.ErrCodeInvalidPath, "unsupported catalogue file %q (want .json or .csv)", path)
}

// ReadJSON decodes a JSON catalogue from r.
func ReadJSON(r io.Reader) ([]*product.Product, error) {
	var data catalogue
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode catalogue")
	}
	return checked(data.Products)
}

// ReadCSV decodes a CSV catalogue from r.
func ReadCSV(r io.Reader) ([]*product.Product, error) {
	var rows []*csvRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode catalogue")
	}
	products := make([]*product.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.product())
	}
	return checked(products)
}

// Read decodes a catalogue in the given format.
func Read(r io.Reader, f Format) ([]*product.Product, error) {
	if f == FormatCSV {
		return ReadCSV(r)
	}
	return ReadJSON(r)
}

// ImportFile reads the catalogue at path.
func ImportFile(path string) ([]*product.Product, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer file.Close()
	return Read(file, f)
}

// checked normalizes and validates every product and rejects duplicate
// M Numbers. Errors name the offending row (1-based).
func checked(products []*product.Product) ([]*product.Product, error) {
	seen := make(map[string]int, len(products))
	for i, p := range products {
		if p == nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "product %d: empty entry", i+1)
		}
		p.Normalize()
		if err := p.Validate(); err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "product %d (%s)", i+1, p.MNumber)
		}
		if first, ok := seen[p.MNumber]; ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "product %d: %s already appears as product %d", i+1, p.MNumber, first)
		}
		seen[p.MNumber] = i + 1
	}
	return products, nil
}
