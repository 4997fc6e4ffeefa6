// Package ports declares the outbound interfaces that services and handlers
// depend on. Storage backends, the remote feed and the spreadsheet exporter
// implement them.
package ports

import (
	"context"

	"stockroom/internal/core"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// TransactionQuery selects one page of the transaction history. Page is
// zero-based; Filter matches description or note.
type TransactionQuery struct {
	Page   int
	Size   int
	Filter string
}

// RecordQuery selects one page of records. Page is one-based.
type RecordQuery struct {
	Page   int
	Limit  int
	Search string
}

// Normalize clamps paging values into range.
func (q TransactionQuery) Normalize() TransactionQuery {
	if q.Page < 0 {
		q.Page = 0
	}
	if q.Size <= 0 {
		q.Size = DefaultPageSize
	}
	if q.Size > MaxPageSize {
		q.Size = MaxPageSize
	}
	return q
}

func (q RecordQuery) Normalize() RecordQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	return q
}

// Ports for outbound adapters.
type (
	CategoryStore interface {
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		GetCategory(ctx context.Context, id int64) (core.Category, error)
		ListCategories(ctx context.Context) ([]core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
		DeleteCategory(ctx context.Context, id int64) error
	}

	SupplierStore interface {
		CreateSupplier(ctx context.Context, s core.Supplier) (core.Supplier, error)
		GetSupplier(ctx context.Context, id int64) (core.Supplier, error)
		// ListSuppliers returns suppliers whose name or contact contains filter.
		ListSuppliers(ctx context.Context, filter string) ([]core.Supplier, error)
		UpdateSupplier(ctx context.Context, s core.Supplier) (core.Supplier, error)
		DeleteSupplier(ctx context.Context, id int64) error
	}

	ProductStore interface {
		CreateProduct(ctx context.Context, p core.Product) (core.Product, error)
		GetProduct(ctx context.Context, id int64) (core.Product, error)
		ListProducts(ctx context.Context) ([]core.Product, error)
		// SearchProducts matches input against name, SKU and description.
		SearchProducts(ctx context.Context, input string) ([]core.Product, error)
		UpdateProduct(ctx context.Context, p core.Product) (core.Product, error)
		DeleteProduct(ctx context.Context, id int64) error
	}

	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUser(ctx context.Context, id int64) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		ListUsers(ctx context.Context) ([]core.User, error)
		UpdateUser(ctx context.Context, u core.User) (core.User, error)
		DeleteUser(ctx context.Context, id int64) error
	}

	RecordStore interface {
		CreateRecord(ctx context.Context, r core.Record) (core.Record, error)
		GetRecord(ctx context.Context, id int64) (core.Record, error)
		ListRecords(ctx context.Context, q RecordQuery) (items []core.Record, total int, err error)
		UpdateRecord(ctx context.Context, r core.Record) (core.Record, error)
		DeleteRecord(ctx context.Context, id int64) error
	}

	// TransactionFeed supplies the transactions of one calendar month.
	TransactionFeed interface {
		ListTransactionsByMonth(ctx context.Context, year int, month int) ([]core.Transaction, error)
	}

	TransactionStore interface {
		TransactionFeed

		// RecordMovement applies stockDelta to the product and stores tx in a
		// single unit of work. It fails with core.ErrInsufficientStock when
		// stock would drop below zero.
		RecordMovement(ctx context.Context, tx core.Transaction, stockDelta int) (core.Transaction, error)
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
		ListTransactions(ctx context.Context, q TransactionQuery) (items []core.Transaction, total int, err error)
		ListTransactionsByUser(ctx context.Context, userID int64) ([]core.Transaction, error)
		UpdateTransactionStatus(ctx context.Context, id int64, status core.TransactionStatus) (core.Transaction, error)
	}

	// ExportTracker remembers which transactions reached the spreadsheet.
	ExportTracker interface {
		ListPendingExports(ctx context.Context, limit int) ([]core.Transaction, error)
		MarkExported(ctx context.Context, id int64, ref string) error
		MarkExportFailed(ctx context.Context, id int64) error
		IsExported(ctx context.Context, id int64) (bool, error)
	}

	// TransactionExporter appends a transaction to an external ledger and
	// returns a reference to the written row.
	TransactionExporter interface {
		Export(ctx context.Context, tx core.Transaction) (ref string, err error)
	}

	// Store is everything a storage backend provides.
	Store interface {
		CategoryStore
		SupplierStore
		ProductStore
		UserStore
		RecordStore
		TransactionStore
		ExportTracker

		Ping(ctx context.Context) error
		Close() error
	}
)

// TotalPages mirrors the page count reported alongside paged listings.
func TotalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
