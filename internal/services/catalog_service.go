package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockroom/internal/core"
	applog "stockroom/internal/log"
	"stockroom/internal/ports"
)

// CatalogStore is the storage CatalogService works against.
type CatalogStore interface {
	ports.CategoryStore
	ports.SupplierStore
	ports.ProductStore
}

// CatalogService manages categories, suppliers and products.
type CatalogService struct {
	store  CatalogStore
	logger *applog.Logger
}

func NewCatalogService(store CatalogStore, logger *applog.Logger) *CatalogService {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &CatalogService{store: store, logger: logger.WithComponent(applog.ComponentCatalog)}
}

// Categories

func (s *CatalogService) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	c := core.Category{Name: strings.TrimSpace(name)}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.logger.InfoContext(ctx, "Category created", "category_id", created.ID, applog.FieldOperation, applog.OpCreate)
	return created, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]core.Category, error) {
	cs, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cs, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, name string) (core.Category, error) {
	c := core.Category{ID: id, Name: strings.TrimSpace(name)}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	updated, err := s.store.UpdateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category %d: %w", id, err)
	}
	return updated, nil
}

// DeleteCategory fails with core.ErrConflict while products use it.
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "Category deleted", "category_id", id, applog.FieldOperation, applog.OpDelete)
	return nil
}

// Suppliers

func (s *CatalogService) CreateSupplier(ctx context.Context, sup core.Supplier) (core.Supplier, error) {
	sup = trimSupplier(sup)
	if err := sup.Validate(); err != nil {
		return core.Supplier{}, err
	}
	created, err := s.store.CreateSupplier(ctx, sup)
	if err != nil {
		return core.Supplier{}, fmt.Errorf("create supplier: %w", err)
	}
	return created, nil
}

func (s *CatalogService) GetSupplier(ctx context.Context, id int64) (core.Supplier, error) {
	sup, err := s.store.GetSupplier(ctx, id)
	if err != nil {
		return core.Supplier{}, fmt.Errorf("get supplier %d: %w", id, err)
	}
	return sup, nil
}

// ListSuppliers returns suppliers whose name or contact contains filter.
func (s *CatalogService) ListSuppliers(ctx context.Context, filter string) ([]core.Supplier, error) {
	sups, err := s.store.ListSuppliers(ctx, strings.TrimSpace(filter))
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	return sups, nil
}

// UpdateSupplier overwrites only the non-empty fields of patch.
func (s *CatalogService) UpdateSupplier(ctx context.Context, id int64, patch core.Supplier) (core.Supplier, error) {
	existing, err := s.store.GetSupplier(ctx, id)
	if err != nil {
		return core.Supplier{}, fmt.Errorf("get supplier %d: %w", id, err)
	}
	patch = trimSupplier(patch)
	if patch.Name != "" {
		existing.Name = patch.Name
	}
	if patch.ContactInfo != "" {
		existing.ContactInfo = patch.ContactInfo
	}
	if patch.Address != "" {
		existing.Address = patch.Address
	}
	if err := existing.Validate(); err != nil {
		return core.Supplier{}, err
	}
	updated, err := s.store.UpdateSupplier(ctx, existing)
	if err != nil {
		return core.Supplier{}, fmt.Errorf("update supplier %d: %w", id, err)
	}
	return updated, nil
}

func (s *CatalogService) DeleteSupplier(ctx context.Context, id int64) error {
	if err := s.store.DeleteSupplier(ctx, id); err != nil {
		return fmt.Errorf("delete supplier %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "Supplier deleted", "supplier_id", id, applog.FieldOperation, applog.OpDelete)
	return nil
}

func trimSupplier(sup core.Supplier) core.Supplier {
	sup.Name = strings.TrimSpace(sup.Name)
	sup.ContactInfo = strings.TrimSpace(sup.ContactInfo)
	sup.Address = strings.TrimSpace(sup.Address)
	return sup
}

// Products

// ProductPatch lists the product fields an update may change. Zero values
// and nil pointers leave the stored field alone.
type ProductPatch struct {
	Name          string
	SKU           string
	Description   string
	ImageURL      string
	Price         *decimal.Decimal
	StockQuantity *int
	CategoryID    int64
	ExpiryDate    *time.Time
}

func (s *CatalogService) CreateProduct(ctx context.Context, p core.Product) (core.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.TrimSpace(p.SKU)
	p.Description = strings.TrimSpace(p.Description)
	if err := p.Validate(); err != nil {
		return core.Product{}, err
	}
	if _, err := s.store.GetCategory(ctx, p.CategoryID); err != nil {
		return core.Product{}, fmt.Errorf("get category %d: %w", p.CategoryID, err)
	}
	created, err := s.store.CreateProduct(ctx, p)
	if err != nil {
		return core.Product{}, fmt.Errorf("create product: %w", err)
	}
	s.logger.InfoContext(ctx, "Product created", applog.FieldProductID, created.ID, "sku", created.SKU, applog.FieldOperation, applog.OpCreate)
	return created, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (core.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return core.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]core.Product, error) {
	ps, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return ps, nil
}

// SearchProducts matches input against name, SKU and description. An empty
// input lists everything.
func (s *CatalogService) SearchProducts(ctx context.Context, input string) ([]core.Product, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return s.ListProducts(ctx)
	}
	ps, err := s.store.SearchProducts(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return ps, nil
}

// UpdateProduct applies patch to the stored product.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (core.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return core.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}

	if patch.CategoryID > 0 {
		if _, err := s.store.GetCategory(ctx, patch.CategoryID); err != nil {
			return core.Product{}, fmt.Errorf("get category %d: %w", patch.CategoryID, err)
		}
		p.CategoryID = patch.CategoryID
	}
	if v := strings.TrimSpace(patch.Name); v != "" {
		p.Name = v
	}
	if v := strings.TrimSpace(patch.SKU); v != "" {
		p.SKU = v
	}
	if v := strings.TrimSpace(patch.Description); v != "" {
		p.Description = v
	}
	if v := strings.TrimSpace(patch.ImageURL); v != "" {
		p.ImageURL = v
	}
	if patch.Price != nil {
		p.Price = patch.Price.Round(2)
	}
	if patch.StockQuantity != nil {
		p.StockQuantity = *patch.StockQuantity
	}
	if patch.ExpiryDate != nil {
		p.ExpiryDate = patch.ExpiryDate
	}

	if err := p.Validate(); err != nil {
		return core.Product{}, err
	}
	updated, err := s.store.UpdateProduct(ctx, p)
	if err != nil {
		return core.Product{}, fmt.Errorf("update product %d: %w", id, err)
	}
	return updated, nil
}

// DeleteProduct fails with core.ErrConflict while transactions reference it.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "Product deleted", applog.FieldProductID, id, applog.FieldOperation, applog.OpDelete)
	return nil
}
