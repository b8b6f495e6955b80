package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/northbynortheast/signmaker/pkg/buildinfo"
	"github.com/northbynortheast/signmaker/pkg/export"
	"github.com/northbynortheast/signmaker/pkg/pipeline"
	"github.com/northbynortheast/signmaker/pkg/product"
)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeCSV  = "text/csv; charset=utf-8"
	mimeZIP  = "application/zip"
)

func (s *Server) exportOptions() export.Options {
	return export.Options{PublicURL: s.publicURL}
}

func stamp() string { return time.Now().Format("20060102_150405") }

type amazonExportRequest struct {
	export.AmazonRequest
	MNumbers []string `json:"m_numbers"`
}

// POST /api/export/amazon
func (s *Server) exportAmazon(w http.ResponseWriter, r *http.Request) {
	var req amazonExportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.sendListing(w, r, req.MNumbers, mimeXLSX, "amazon_flatfile_"+stamp()+".xlsx", func(out io.Writer, products []*product.Product) error {
		return export.WriteAmazon(out, products, req.AmazonRequest, s.exportOptions())
	})
}

type listingRequest struct {
	MNumbers []string `json:"m_numbers"`
}

// POST /api/export/etsy
func (s *Server) exportEtsy(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.sendListing(w, r, req.MNumbers, mimeXLSX, "etsy_shop_uploader_"+stamp()+".xlsx", func(out io.Writer, products []*product.Product) error {
		return export.WriteEtsy(out, products, s.exportOptions())
	})
}

// POST /api/export/ebay
func (s *Server) exportEbay(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.sendListing(w, r, req.MNumbers, mimeCSV, "ebay_file_exchange_"+stamp()+".csv", func(out io.Writer, products []*product.Product) error {
		return export.WriteEbay(out, products, s.exportOptions())
	})
}

// sendListing buffers the export so a failure still yields a JSON error.
func (s *Server) sendListing(w http.ResponseWriter, r *http.Request, mNumbers []string, contentType, filename string, write func(io.Writer, []*product.Product) error) {
	products, err := product.Select(r.Context(), s.store, mNumbers)
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := write(&buf, products); err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("export written", "file", filename, "products", len(products), "bytes", buf.Len())
	writeFile(w, contentType, filename, buf.Bytes())
}

// GET /api/export/images/{m}?type=main
//
// Without type the four PNGs come back as a ZIP.
func (s *Server) exportImages(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Get(r.Context(), chi.URLParam(r, "m"))
	if err != nil {
		writeError(w, err)
		return
	}

	if v := r.URL.Query().Get("type"); v != "" {
		t, err := pipeline.ParseImageType(v)
		if err != nil {
			writeError(w, err)
			return
		}
		res := s.runner.Render(r.Context(), p, t)
		if res.Err != nil {
			writeError(w, res.Err)
			return
		}
		writeFile(w, "image/png", res.Key.FileName(), res.Image.Data)
		return
	}

	var buf bytes.Buffer
	sum, err := export.WriteImagesZip(r.Context(), &buf, s.runner, p)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("X-Failed-Variants", fmt.Sprint(len(sum.Failures)))
	writeFile(w, mimeZIP, p.MNumber+"_images.zip", buf.Bytes())
}

// POST /api/export/m-number-folders
func (s *Server) exportFolders(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	products, err := product.Select(r.Context(), s.store, req.MNumbers)
	if err != nil {
		writeError(w, err)
		return
	}
	s.sendFolders(w, r, products, "m_number_folders_"+stamp()+".zip")
}

// GET /api/export/m-number-folders/{m}
func (s *Server) exportFolder(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Get(r.Context(), chi.URLParam(r, "m"))
	if err != nil {
		writeError(w, err)
		return
	}
	s.sendFolders(w, r, []*product.Product{p}, p.MNumber+"_folder.zip")
}

func (s *Server) sendFolders(w http.ResponseWriter, r *http.Request, products []*product.Product, filename string) {
	var buf bytes.Buffer
	sum, err := export.WriteFolders(r.Context(), &buf, s.runner, products, s.logger)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("X-Failed-Variants", fmt.Sprint(len(sum.Failures)))
	writeFile(w, mimeZIP, filename, buf.Bytes())
}

// =============================================================================
// Health
// =============================================================================

type healthResponse struct {
	Status  string         `json:"status"`
	Build   buildinfo.Info `json:"build"`
	Storage bool           `json:"storage"`
	Jobs    int            `json:"jobs"`
}

// GET /api/health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Build:   buildinfo.Get(),
		Storage: s.uploader != nil,
		Jobs:    len(s.jobs.List()),
	})
}
