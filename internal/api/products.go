package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/product"
)

// GET /api/products?qa=approved&m=M1001,M1002
func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	var f product.Filter
	if qa := r.URL.Query().Get("qa"); qa != "" {
		status, err := product.ParseQAStatus(qa)
		if err != nil {
			writeError(w, err)
			return
		}
		f.QAStatus = status
	}
	if m := r.URL.Query().Get("m"); m != "" {
		f.MNumbers = splitList(m)
	}

	products, err := s.store.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	if products == nil {
		products = []*product.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// POST /api/products
func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var p product.Product
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, err)
		return
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.Create(r.Context(), &p); err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("product created", "m_number", p.MNumber)
	writeJSON(w, http.StatusCreated, &p)
}

// GET /api/products/{m}
func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Get(r.Context(), chi.URLParam(r, "m"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PATCH /api/products/{m}
func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	var patch product.Patch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	s.patch(w, r, patch)
}

// PATCH /api/products/{m}/scale
func (s *Server) updateScale(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IconScale *float64 `json:"icon_scale"`
		TextScale *float64 `json:"text_scale"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	s.patch(w, r, product.Patch{IconScale: body.IconScale, TextScale: body.TextScale})
}

// PATCH /api/products/{m}/position
func (s *Server) updatePosition(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IconOffsetX *float64 `json:"icon_offset_x"`
		IconOffsetY *float64 `json:"icon_offset_y"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	s.patch(w, r, product.Patch{IconOffsetX: body.IconOffsetX, IconOffsetY: body.IconOffsetY})
}

// PATCH /api/products/{m}/qa
func (s *Server) updateQA(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status  string  `json:"status"`
		Comment *string `json:"comment"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	status, err := product.ParseQAStatus(body.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	s.patch(w, r, product.Patch{QAStatus: &status, QAComment: body.Comment})
}

func (s *Server) patch(w http.ResponseWriter, r *http.Request, patch product.Patch) {
	if patch.Empty() {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "no fields to update"))
		return
	}
	m := chi.URLParam(r, "m")
	p, err := s.store.Update(r.Context(), m, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.Debug("product updated", "m_number", m)
	writeJSON(w, http.StatusOK, p)
}

// DELETE /api/products/{m}
func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	m := chi.URLParam(r, "m")
	if err := s.store.Delete(r.Context(), m); err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("product deleted", "m_number", m)
	w.WriteHeader(http.StatusNoContent)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
