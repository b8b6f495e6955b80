package export

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/pipeline"
	"github.com/northbynortheast/signmaker/pkg/product"
)

// ErrorsFile lists failed variants inside a bundle.
const ErrorsFile = "ERRORS.txt"

// Staff folder tree inside each product directory.
const (
	folderMaster = "001 Design/001 MASTER FILE"
	folderMutoh  = "001 Design/002 MUTOH"
	folderMimaki = "001 Design/003 MIMAKI"
	folderImages = "002 Images"
	folderBlanks = "003 Blanks"
)

// Failure is a variant or master that could not be produced.
type Failure = pipeline.Failure

// Summary reports what a bundle contains.
type Summary struct {
	Products int       `json:"products"`
	Images   int       `json:"images"`
	Failures []Failure `json:"failures,omitempty"`
}

func (s *Summary) fail(name string, err error) {
	s.Failures = append(s.Failures, pipeline.NewFailure(name, err))
}

// SafeName makes s usable as a single path element inside a ZIP.
func SafeName(s string) string {
	s = strings.NewReplacer("/", "-", "\\", "-", ":", "-").Replace(s)
	return strings.TrimSpace(s)
}

// WriteImagesZip writes the four PNGs of p to w. Failed variants are listed
// in ERRORS.txt instead.
func WriteImagesZip(ctx context.Context, w io.Writer, gen Generator, p *product.Product) (Summary, error) {
	zw := zip.NewWriter(w)
	sum := Summary{Products: 1}

	for _, res := range gen.GenerateAll(ctx, p) {
		if res.Err != nil {
			sum.fail(res.Key.Name(), res.Err)
			continue
		}
		if err := addFile(zw, res.Key.FileName(), res.Image.Data); err != nil {
			return sum, err
		}
		sum.Images++
	}
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	if err := writeErrors(zw, sum.Failures); err != nil {
		return sum, err
	}
	return sum, zw.Close()
}

// WriteFolders writes the staff folder tree for every product to w:
//
//	{M} {mounting} {description} aluminium sign {color} {size}/
//	  001 Design/001 MASTER FILE/{M} MASTER FILE.svg
//	  001 Design/002 MUTOH/
//	  001 Design/003 MIMAKI/
//	  002 Images/{M} - 00N.png
//	  002 Images/{M} - 00N.jpg
//	  003 Blanks/
func WriteFolders(ctx context.Context, w io.Writer, gen Generator, products []*product.Product, logger *log.Logger) (Summary, error) {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	zw := zip.NewWriter(w)
	var sum Summary

	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		root := SafeName(p.FolderName())
		sum.Products++

		for _, dir := range []string{folderMutoh, folderMimaki, folderBlanks} {
			if err := addDir(zw, path.Join(root, dir)); err != nil {
				return sum, err
			}
		}

		master, err := gen.Master(ctx, p)
		if err != nil {
			sum.fail(p.MNumber+" MASTER FILE", err)
		} else if err := addFile(zw, path.Join(root, folderMaster, p.MNumber+" MASTER FILE.svg"), master.Bytes); err != nil {
			return sum, err
		}

		for _, res := range gen.GenerateAll(ctx, p) {
			if res.Err != nil {
				sum.fail(res.Key.Name(), res.Err)
				continue
			}
			base := path.Join(root, folderImages, res.Key.Name())
			if err := addFile(zw, base+pipeline.RasterExt, res.Image.Data); err != nil {
				return sum, err
			}
			jpg, err := ToJPEG(res.Image.Data)
			if err != nil {
				sum.fail(res.Key.Name()+".jpg", err)
			} else if err := addFile(zw, base+".jpg", jpg); err != nil {
				return sum, err
			}
			sum.Images++
		}
		logger.Debug("bundled product", "m_number", p.MNumber, "folder", root)
	}

	if err := writeErrors(zw, sum.Failures); err != nil {
		return sum, err
	}
	if len(sum.Failures) > 0 {
		logger.Warn("folder export has failures", "failed", len(sum.Failures))
	}
	return sum, zw.Close()
}

func addFile(zw *zip.Writer, name string, data []byte) error {
	if err := errors.ValidateArchivePath(name); err != nil {
		return err
	}
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: time.Now()})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "add %s", name)
	}
	if _, err := fw.Write(data); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", name)
	}
	return nil
}

func addDir(zw *zip.Writer, name string) error {
	name = strings.TrimSuffix(name, "/")
	if err := errors.ValidateArchivePath(name); err != nil {
		return err
	}
	if _, err := zw.Create(name + "/"); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "add %s", name)
	}
	return nil
}

func writeErrors(zw *zip.Writer, failures []Failure) error {
	if len(failures) == 0 {
		return nil
	}
	var b strings.Builder
	for _, f := range failures {
		fmt.Fprintf(&b, "%s: %s\n", f.Name, f.Err)
	}
	return addFile(zw, ErrorsFile, []byte(b.String()))
}
