// Package memory is an in-process ports.Store used for development and
// tests. Data does not survive a restart.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"stockroom/internal/core"
	"stockroom/internal/ports"
)

type exportState struct {
	status string // pending, exported or error
	ref    string
}

type Store struct {
	mu  sync.Mutex
	loc *time.Location
	now func() time.Time

	nextID     map[string]int64
	categories map[int64]core.Category
	suppliers  map[int64]core.Supplier
	products   map[int64]core.Product
	users      map[int64]core.User
	records    map[int64]core.Record
	txs        map[int64]core.Transaction
	exports    map[int64]exportState
}

var _ ports.Store = (*Store)(nil)

type Option func(*Store)

func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a store seeded with the given category names.
func New(categories []string, opts ...Option) *Store {
	s := &Store{
		loc:        time.UTC,
		now:        time.Now,
		nextID:     map[string]int64{},
		categories: map[int64]core.Category{},
		suppliers:  map[int64]core.Supplier{},
		products:   map[int64]core.Product{},
		users:      map[int64]core.User{},
		records:    map[int64]core.Record{},
		txs:        map[int64]core.Transaction{},
		exports:    map[int64]exportState{},
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, name := range dedupe(categories) {
		id := s.id("category")
		s.categories[id] = core.Category{ID: id, Name: name}
	}
	return s
}

// NewFromFiles seeds categories from seed_categories.txt under base,
// falling back to a single "General" category.
func NewFromFiles(base string, opts ...Option) *Store {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = []string{"General"}
	}
	return New(cats, opts...)
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) id(kind string) int64 {
	s.nextID[kind]++
	return s.nextID[kind]
}

func notFound(what string, id int64) error {
	return fmt.Errorf("%s %d: %w", what, id, core.ErrNotFound)
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrConflict, fmt.Sprintf(format, args...))
}

// sortedDesc returns map values newest first.
func sortedDesc[T any](m map[int64]T) []T {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.Name == c.Name {
			return core.Category{}, conflict("category %q exists", c.Name)
		}
	}
	c.ID = s.id("category")
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, notFound("category", id)
	}
	return c, nil
}

func (s *Store) ListCategories(context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedDesc(s.categories), nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[c.ID]; !ok {
		return core.Category{}, notFound("category", c.ID)
	}
	for _, existing := range s.categories {
		if existing.ID != c.ID && existing.Name == c.Name {
			return core.Category{}, conflict("category %q exists", c.Name)
		}
	}
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return notFound("category", id)
	}
	for _, p := range s.products {
		if p.CategoryID == id {
			return conflict("category %d has products", id)
		}
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) CreateSupplier(_ context.Context, sup core.Supplier) (core.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sup.ID = s.id("supplier")
	s.suppliers[sup.ID] = sup
	return sup, nil
}

func (s *Store) GetSupplier(_ context.Context, id int64) (core.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sup, ok := s.suppliers[id]
	if !ok {
		return core.Supplier{}, notFound("supplier", id)
	}
	return sup, nil
}

func (s *Store) ListSuppliers(_ context.Context, filter string) ([]core.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Supplier
	for _, sup := range sortedDesc(s.suppliers) {
		if filter == "" || contains(sup.Name, filter) || contains(sup.ContactInfo, filter) {
			out = append(out, sup)
		}
	}
	return out, nil
}

func (s *Store) UpdateSupplier(_ context.Context, sup core.Supplier) (core.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.suppliers[sup.ID]; !ok {
		return core.Supplier{}, notFound("supplier", sup.ID)
	}
	s.suppliers[sup.ID] = sup
	return sup, nil
}

func (s *Store) DeleteSupplier(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.suppliers[id]; !ok {
		return notFound("supplier", id)
	}
	for _, tx := range s.txs {
		if tx.SupplierID == id {
			return conflict("supplier %d has transactions", id)
		}
	}
	delete(s.suppliers, id)
	return nil
}

func (s *Store) checkProduct(p core.Product) error {
	if _, ok := s.categories[p.CategoryID]; !ok {
		return conflict("category %d does not exist", p.CategoryID)
	}
	for _, existing := range s.products {
		if existing.ID != p.ID && existing.SKU == p.SKU {
			return conflict("sku %q exists", p.SKU)
		}
	}
	return nil
}

func (s *Store) CreateProduct(_ context.Context, p core.Product) (core.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkProduct(p); err != nil {
		return core.Product{}, err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	p.CreatedAt = p.CreatedAt.In(s.loc)
	p.ID = s.id("product")
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (core.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return core.Product{}, notFound("product", id)
	}
	return p, nil
}

func (s *Store) ListProducts(context.Context) ([]core.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedDesc(s.products), nil
}

func (s *Store) SearchProducts(_ context.Context, input string) ([]core.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Product
	for _, p := range sortedDesc(s.products) {
		if contains(p.Name, input) || contains(p.SKU, input) || contains(p.Description, input) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) UpdateProduct(_ context.Context, p core.Product) (core.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.products[p.ID]
	if !ok {
		return core.Product{}, notFound("product", p.ID)
	}
	if err := s.checkProduct(p); err != nil {
		return core.Product{}, err
	}
	p.CreatedAt = existing.CreatedAt
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return notFound("product", id)
	}
	for _, tx := range s.txs {
		if tx.ProductID == id {
			return conflict("product %d has transactions", id)
		}
	}
	delete(s.products, id)
	return nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return core.User{}, conflict("email %q registered", u.Email)
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	u.CreatedAt = u.CreatedAt.In(s.loc)
	u.ID = s.id("user")
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, notFound("user", id)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("user %q: %w", email, core.ErrNotFound)
}

func (s *Store) ListUsers(context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedDesc(s.users), nil
}

func (s *Store) UpdateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[u.ID]
	if !ok {
		return core.User{}, notFound("user", u.ID)
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, other := range s.users {
		if other.ID != u.ID && other.Email == u.Email {
			return core.User{}, conflict("email %q registered", u.Email)
		}
	}
	u.CreatedAt = existing.CreatedAt
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return notFound("user", id)
	}
	delete(s.users, id)
	for txID, tx := range s.txs {
		if tx.UserID == id {
			tx.UserID = 0
			s.txs[txID] = tx
		}
	}
	return nil
}

func (s *Store) CreateRecord(_ context.Context, r core.Record) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().In(s.loc)
	r.ID = s.id("record")
	r.CreatedAt, r.UpdatedAt = now, now
	s.records[r.ID] = r
	return r, nil
}

func (s *Store) GetRecord(_ context.Context, id int64) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return core.Record{}, notFound("record", id)
	}
	return r, nil
}

func (s *Store) ListRecords(_ context.Context, q ports.RecordQuery) ([]core.Record, int, error) {
	q = q.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []core.Record
	for _, r := range sortedDesc(s.records) {
		if q.Search == "" || contains(r.Name, q.Search) {
			matched = append(matched, r)
		}
	}
	return page(matched, (q.Page-1)*q.Limit, q.Limit), len(matched), nil
}

func (s *Store) UpdateRecord(_ context.Context, r core.Record) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[r.ID]
	if !ok {
		return core.Record{}, notFound("record", r.ID)
	}
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = s.now().In(s.loc)
	s.records[r.ID] = r
	return r, nil
}

func (s *Store) DeleteRecord(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return notFound("record", id)
	}
	delete(s.records, id)
	return nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func (s *Store) RecordMovement(_ context.Context, tx core.Transaction, stockDelta int) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[tx.ProductID]
	if !ok {
		return core.Transaction{}, fmt.Errorf("product %d: %w", tx.ProductID, core.ErrNotFound)
	}
	if p.StockQuantity+stockDelta < 0 {
		return core.Transaction{}, fmt.Errorf("product %d has %d, needs %d: %w",
			tx.ProductID, p.StockQuantity, -stockDelta, core.ErrInsufficientStock)
	}
	if tx.SupplierID != 0 {
		if _, ok := s.suppliers[tx.SupplierID]; !ok {
			return core.Transaction{}, conflict("supplier %d does not exist", tx.SupplierID)
		}
	}
	if tx.UserID != 0 {
		if _, ok := s.users[tx.UserID]; !ok {
			return core.Transaction{}, conflict("user %d does not exist", tx.UserID)
		}
	}

	now := s.now()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.CreatedAt = tx.CreatedAt.In(s.loc)
	tx.UpdatedAt = now.In(s.loc)

	p.StockQuantity += stockDelta
	s.products[p.ID] = p
	tx.ID = s.id("transaction")
	s.txs[tx.ID] = tx
	s.exports[tx.ID] = exportState{status: "pending"}
	return tx, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, notFound("transaction", id)
	}
	return tx, nil
}

func (s *Store) ListTransactions(_ context.Context, q ports.TransactionQuery) ([]core.Transaction, int, error) {
	q = q.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []core.Transaction
	for _, tx := range sortedDesc(s.txs) {
		if q.Filter == "" || contains(tx.Description, q.Filter) || contains(tx.Note, q.Filter) {
			matched = append(matched, tx)
		}
	}
	return page(matched, q.Page*q.Size, q.Size), len(matched), nil
}

func (s *Store) ListTransactionsByMonth(_ context.Context, year int, month int) ([]core.Transaction, error) {
	if err := core.ValidatePeriod(month, year); err != nil {
		return nil, err
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 1, 0)

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range s.txs {
		if !tx.CreatedAt.Before(start) && tx.CreatedAt.Before(end) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ListTransactionsByUser(_ context.Context, userID int64) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range sortedDesc(s.txs) {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) UpdateTransactionStatus(_ context.Context, id int64, status core.TransactionStatus) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, notFound("transaction", id)
	}
	tx.Status = status
	tx.UpdatedAt = s.now().In(s.loc)
	s.txs[id] = tx
	return tx, nil
}

func (s *Store) ListPendingExports(_ context.Context, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = ports.DefaultPageSize
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	all := sortedDesc(s.txs)
	var out []core.Transaction
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		if s.exports[all[i].ID].status != "exported" {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (s *Store) MarkExported(_ context.Context, id int64, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[id]; !ok {
		return notFound("transaction", id)
	}
	s.exports[id] = exportState{status: "exported", ref: ref}
	return nil
}

func (s *Store) IsExported(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[id]; !ok {
		return false, notFound("transaction", id)
	}
	return s.exports[id].status == "exported", nil
}

func (s *Store) MarkExportFailed(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.exports[id]
	if _, exists := s.txs[id]; !exists || (ok && st.status == "exported") {
		return notFound("transaction", id)
	}
	s.exports[id] = exportState{status: "error"}
	return nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops blanks and repeats, keeping first-seen order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
