package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/export"
	"github.com/northbynortheast/signmaker/pkg/jobs"
	"github.com/northbynortheast/signmaker/pkg/pipeline"
	"github.com/northbynortheast/signmaker/pkg/product"
	"github.com/northbynortheast/signmaker/pkg/render"
)

// maxThumb bounds ?thumb= widths.
const maxThumb = 2000

// =============================================================================
// Preview
// =============================================================================

// GET /api/preview/{m}?type=main&thumb=400
//
// Render failures come back as a placeholder SVG carrying the message so
// the review UI can show it in place of the image.
func (s *Server) previewPNG(w http.ResponseWriter, r *http.Request) {
	p, t, ok := s.previewTarget(w, r)
	if !ok {
		return
	}
	width := 0
	if v := r.URL.Query().Get("thumb"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxThumb {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "thumb must be between 1 and %d", maxThumb))
			return
		}
		width = n
	}

	res := s.runner.Render(r.Context(), p, t)
	if res.Err != nil {
		writePlaceholder(w, res.Err)
		return
	}
	data := res.Image.Data
	if width > 0 {
		thumb, err := export.Thumbnail(data, width)
		if err != nil {
			writeError(w, err)
			return
		}
		data = thumb
	}
	w.Header().Set("Cache-Control", "no-store")
	writeFile(w, "image/png", "", data)
}

// GET /api/preview/{m}/svg?type=main
func (s *Server) previewSVG(w http.ResponseWriter, r *http.Request) {
	p, t, ok := s.previewTarget(w, r)
	if !ok {
		return
	}
	doc, err := s.runner.SVG(r.Context(), p, t)
	if err != nil {
		writePlaceholder(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeFile(w, "image/svg+xml", "", doc.Bytes)
}

func (s *Server) previewTarget(w http.ResponseWriter, r *http.Request) (*product.Product, render.ImageType, bool) {
	t := render.ImageMain
	if v := r.URL.Query().Get("type"); v != "" {
		parsed, err := pipeline.ParseImageType(v)
		if err != nil {
			writeError(w, err)
			return nil, "", false
		}
		t = parsed
	}
	p, err := s.store.Get(r.Context(), chi.URLParam(r, "m"))
	if err != nil {
		writeError(w, err)
		return nil, "", false
	}
	return p, t, true
}

func writePlaceholder(w http.ResponseWriter, err error) {
	w.Header().Set("X-Render-Error", string(errors.GetCode(err)))
	writeFile(w, "image/svg+xml", "", PlaceholderSVG(errors.UserMessage(err)))
}

// PlaceholderSVG draws msg on a grey card.
func PlaceholderSVG(msg string) []byte {
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="400" height="300" viewBox="0 0 400 300">`)
	b.WriteString(`<rect width="400" height="300" fill="#EEEEEE" stroke="#CC3333" stroke-width="4"/>`)
	b.WriteString(`<text x="200" y="120" font-family="sans-serif" font-size="20" text-anchor="middle" fill="#CC3333">Render failed</text>`)
	for i, line := range wrap(msg, 40, 4) {
		fmt.Fprintf(&b, `<text x="200" y="%d" font-family="sans-serif" font-size="13" text-anchor="middle" fill="#333333">%s</text>`,
			160+i*20, escapeXML(line))
	}
	b.WriteString(`</svg>`)
	return []byte(b.String())
}

func wrap(s string, width, maxLines int) []string {
	var lines []string
	var cur strings.Builder
	for _, word := range strings.Fields(s) {
		if cur.Len() > 0 && cur.Len()+1+len(word) > width {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	if len(lines) > maxLines {
		lines = append(lines[:maxLines-1], lines[maxLines-1]+" ...")
	}
	return lines
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escapeXML(s string) string { return xmlEscaper.Replace(s) }

// =============================================================================
// Generation
// =============================================================================

type generateRequest struct {
	MNumbers []string `json:"m_numbers"`
	Upload   *bool    `json:"upload"`
}

type jobAccepted struct {
	JobID     string `json:"job_id"`
	StatusURL string `json:"status_url"`
	Products  int    `json:"products"`
}

// POST /api/generate/images
//
// Without m_numbers the job covers approved products, or every product
// when none are approved. Upload defaults to on when storage is configured.
func (s *Server) generateImages(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	upload := s.uploader != nil
	if req.Upload != nil {
		upload = *req.Upload
	}
	if upload && s.uploader == nil {
		writeError(w, errors.New(errors.ErrCodeConfiguration, "image upload requested but storage is not configured"))
		return
	}

	products, err := product.Select(r.Context(), s.store, req.MNumbers)
	if err != nil {
		writeError(w, err)
		return
	}

	opts := pipeline.BatchOptions{}
	if upload {
		opts.Uploader = s.uploader
	}
	id, err := s.jobs.Submit("generate images", func(ctx context.Context, h *jobs.Handle) (any, error) {
		h.SetTotal(len(products))
		opts.Progress = func(p *product.Product, results []pipeline.Result) {
			failed := len(pipeline.Failed(results))
			h.Step(fmt.Sprintf("%s: %d/%d images", p.MNumber, len(results)-failed, len(results)))
		}
		rep, err := s.runner.Batch(ctx, products, opts)
		if err != nil {
			return nil, err
		}
		return rep, nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, jobAccepted{JobID: id, StatusURL: "/api/jobs/" + id, Products: len(products)})
}

// =============================================================================
// Jobs
// =============================================================================

// GET /api/jobs
func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	list := s.jobs.List()
	if list == nil {
		list = []jobs.Job{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/jobs/{id}
func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
