package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockroom/internal/core"
	applog "stockroom/internal/log"
	"stockroom/internal/services"
)

type categoryRequest struct {
	Name string `json:"name"`
}

type supplierRequest struct {
	Name        string `json:"name"`
	ContactInfo string `json:"contactInfo"`
	Address     string `json:"address"`
}

func (req supplierRequest) supplier() core.Supplier {
	return core.Supplier{
		Name:        sanitizeInput(req.Name),
		ContactInfo: sanitizeInput(req.ContactInfo),
		Address:     sanitizeInput(req.Address),
	}
}

type productRequest struct {
	Name          string  `json:"name"`
	SKU           string  `json:"sku"`
	Price         *Amount `json:"price"`
	StockQuantity *int    `json:"stockQuantity"`
	CategoryID    int64   `json:"categoryId"`
	Description   string  `json:"description"`
	ImageURL      string  `json:"imageUrl"`
	ExpiryDate    string  `json:"expiryDate"`
}

func (req productRequest) price() *decimal.Decimal {
	if req.Price == nil {
		return nil
	}
	d := req.Price.Decimal
	return &d
}

func (s *Server) location() *time.Location {
	if s.dashboard != nil {
		return s.dashboard.Location()
	}
	return time.UTC
}

func (s *Server) parseExpiry(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t := core.ParseTimestamp(raw, s.location())
	if t.IsZero() {
		return nil, fmt.Errorf("%w: expiry date %q", core.ErrInvalid, raw)
	}
	return &t, nil
}

// Categories

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.catalog.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewResponse().With("categories", mapViews(cats, toCategoryView)).Write(w)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	c, err := s.catalog.GetCategory(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewResponse().With("category", toCategoryView(c)).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	c, err := s.catalog.CreateCategory(r.Context(), sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewResponse().Status(http.StatusCreated).Message("category saved successfully").With("category", toCategoryView(c)).Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req categoryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	c, err := s.catalog.UpdateCategory(r.Context(), id, sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewResponse().Message("category updated successfully").With("category", toCategoryView(c)).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.catalog.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	NewResponse().Message("category deleted successfully").Write(w)
}

// Suppliers

func (s *Server) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	sup, err := s.catalog.CreateSupplier(r.Context(), req.supplier())
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewResponse().Status(http.StatusCreated).Message("supplier saved successfully").With("supplier", toSupplierView(sup)).Write(w)
}

func (s *Server) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	sups, err := s.catalog.ListSuppliers(r.Context(), sanitizeInput(r.URL.Query().Get("input")))
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewResponse().With("suppliers", mapViews(sups, toSupplierView)).Write(w)
}

func (s *Server) handleGetSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	sup, err := s.catalog.GetSupplier(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewResponse().With("supplier", toSupplierView(sup)).Write(w)
}

func (s *Server) handleUpdateSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req supplierRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	sup, err := s.catalog.UpdateSupplier(r.Context(), id, req.supplier())
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewResponse().Message("supplier updated successfully").With("supplier", toSupplierView(sup)).Write(w)
}

func (s *Server) handleDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.catalog.DeleteSupplier(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	NewResponse().Message("supplier deleted successfully").Write(w)
}

// Products

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	expiry, err := s.parseExpiry(req.ExpiryDate)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	if req.Price == nil {
		writeError(w, r, applog.OpCreate, fmt.Errorf("%w: price is required", core.ErrInvalid))
		return
	}
	p := core.Product{
		Name:        sanitizeInput(req.Name),
		SKU:         sanitizeInput(req.SKU),
		Price:       req.Price.Decimal,
		Description: sanitizeInput(req.Description),
		ImageURL:    sanitizeInput(req.ImageURL),
		CategoryID:  req.CategoryID,
		ExpiryDate:  expiry,
	}
	if req.StockQuantity != nil {
		p.StockQuantity = *req.StockQuantity
	}

	created, err := s.catalog.CreateProduct(r.Context(), p)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewResponse().Status(http.StatusCreated).Message("product saved successfully").With("product", toProductView(created)).Write(w)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req productRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	expiry, err := s.parseExpiry(req.ExpiryDate)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	p, err := s.catalog.UpdateProduct(r.Context(), id, services.ProductPatch{
		Name:          sanitizeInput(req.Name),
		SKU:           sanitizeInput(req.SKU),
		Description:   sanitizeInput(req.Description),
		ImageURL:      sanitizeInput(req.ImageURL),
		Price:         req.price(),
		StockQuantity: req.StockQuantity,
		CategoryID:    req.CategoryID,
		ExpiryDate:    expiry,
	})
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewResponse().Message("product updated successfully").With("product", toProductView(p)).Write(w)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := s.catalog.ListProducts(r.Context())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewResponse().With("products", mapViews(ps, toProductView)).Write(w)
}

func (s *Server) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := s.catalog.SearchProducts(r.Context(), sanitizeInput(r.URL.Query().Get("input")))
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	NewResponse().With("products", mapViews(ps, toProductView)).Write(w)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	p, err := s.catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewResponse().With("product", toProductView(p)).Write(w)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.catalog.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	NewResponse().Message("product deleted successfully").Write(w)
}
