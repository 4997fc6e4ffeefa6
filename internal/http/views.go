package http

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"stockroom/internal/core"
)

// JSON shapes returned by the API. Field names follow the camelCase
// spelling existing clients already read.

type categoryView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type supplierView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ContactInfo string `json:"contactInfo"`
	Address     string `json:"address"`
}

type productView struct {
	ID            int64       `json:"id"`
	Name          string      `json:"name"`
	SKU           string      `json:"sku"`
	Price         json.Number `json:"price"`
	StockQuantity int         `json:"stockQuantity"`
	Description   string      `json:"description,omitempty"`
	ExpiryDate    string      `json:"expiryDate,omitempty"`
	ImageURL      string      `json:"imageUrl,omitempty"`
	CategoryID    int64       `json:"categoryId"`
	CreatedAt     string      `json:"createdAt"`
}

type userView struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
	Role        core.Role `json:"role"`
	CreatedAt   string    `json:"createdAt"`
}

type transactionView struct {
	ID              int64                  `json:"id"`
	TransactionType core.TransactionType   `json:"transactionType"`
	Status          core.TransactionStatus `json:"status"`
	TotalProducts   int                    `json:"totalProducts"`
	TotalPrice      json.Number            `json:"totalPrice"`
	Description     string                 `json:"description,omitempty"`
	Note            string                 `json:"note,omitempty"`
	ProductID       int64                  `json:"productId"`
	UserID          int64                  `json:"userId,omitempty"`
	SupplierID      int64                  `json:"supplierId,omitempty"`
	CreatedAt       string                 `json:"createdAt"`
	UpdatedAt       string                 `json:"updatedAt,omitempty"`
}

type recordView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// number renders a decimal without rounding.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func toCategoryView(c core.Category) categoryView {
	return categoryView{ID: c.ID, Name: c.Name}
}

func toSupplierView(s core.Supplier) supplierView {
	return supplierView{ID: s.ID, Name: s.Name, ContactInfo: s.ContactInfo, Address: s.Address}
}

func toProductView(p core.Product) productView {
	v := productView{
		ID:            p.ID,
		Name:          p.Name,
		SKU:           p.SKU,
		Price:         money(p.Price),
		StockQuantity: p.StockQuantity,
		Description:   p.Description,
		ImageURL:      p.ImageURL,
		CategoryID:    p.CategoryID,
		CreatedAt:     timestamp(p.CreatedAt),
	}
	if p.ExpiryDate != nil {
		v.ExpiryDate = timestamp(*p.ExpiryDate)
	}
	return v
}

func toUserView(u core.User) userView {
	return userView{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
		CreatedAt:   timestamp(u.CreatedAt),
	}
}

func toTransactionView(tx core.Transaction) transactionView {
	return transactionView{
		ID:              tx.ID,
		TransactionType: tx.Type,
		Status:          tx.Status,
		TotalProducts:   tx.TotalProducts,
		TotalPrice:      money(tx.TotalPrice),
		Description:     tx.Description,
		Note:            tx.Note,
		ProductID:       tx.ProductID,
		UserID:          tx.UserID,
		SupplierID:      tx.SupplierID,
		CreatedAt:       timestamp(tx.CreatedAt),
		UpdatedAt:       timestamp(tx.UpdatedAt),
	}
}

func toRecordView(r core.Record) recordView {
	return recordView{
		ID:        r.ID,
		Name:      r.Name,
		Quantity:  r.Quantity,
		CreatedAt: timestamp(r.CreatedAt),
		UpdatedAt: timestamp(r.UpdatedAt),
	}
}

// mapViews converts a slice, always yielding a non-nil result so empty
// lists encode as [].
func mapViews[T, V any](in []T, f func(T) V) []V {
	out := make([]V, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
