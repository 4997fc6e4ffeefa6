package core

import (
	"errors"
	"strings"
	"testing"
)

func TestProductValidate(t *testing.T) {
	good := Product{Name: "Widget", SKU: "W-1", Price: dec("9.99"), StockQuantity: 0, CategoryID: 1}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Product)
		want   error
	}{
		{"empty name", func(p *Product) { p.Name = "  " }, ErrEmptyName},
		{"long name", func(p *Product) { p.Name = strings.Repeat("x", 101) }, ErrNameTooLong},
		{"empty sku", func(p *Product) { p.SKU = "" }, ErrEmptySKU},
		{"negative price", func(p *Product) { p.Price = dec("-0.01") }, ErrInvalidPrice},
		{"negative stock", func(p *Product) { p.StockQuantity = -1 }, ErrInvalidStock},
		{"no category", func(p *Product) { p.CategoryID = 0 }, ErrInvalidCategory},
	}
	for _, tc := range cases {
		p := good
		tc.mutate(&p)
		err := p.Validate()
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
		if !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: %v does not wrap ErrInvalid", tc.name, err)
		}
	}
}

func TestSupplierValidate(t *testing.T) {
	cases := []struct {
		s    Supplier
		want error
	}{
		{Supplier{Name: "Acme", ContactInfo: "acme@example.com", Address: "1 Road"}, nil},
		{Supplier{ContactInfo: "x", Address: "y"}, ErrEmptyName},
		{Supplier{Name: "Acme", Address: "y"}, ErrEmptyContact},
		{Supplier{Name: "Acme", ContactInfo: "x"}, ErrEmptyAddress},
	}
	for i, tc := range cases {
		if err := tc.s.Validate(); !errors.Is(err, tc.want) && !(err == nil && tc.want == nil) {
			t.Errorf("case %d: got %v, want %v", i, err, tc.want)
		}
	}
}

func TestUserValidate(t *testing.T) {
	good := User{Name: "Ann", Email: "ann@example.com", PhoneNumber: "555", Role: RoleManager}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bad := good
	bad.Email = "not-an-email"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	bad = good
	bad.Email = "Ann <ann@example.com>"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("display-name address should be rejected, got %v", err)
	}
	bad = good
	bad.PhoneNumber = ""
	if err := bad.Validate(); !errors.Is(err, ErrEmptyPhone) {
		t.Fatalf("expected ErrEmptyPhone, got %v", err)
	}
	bad = good
	bad.Role = "OWNER"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("12345"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if err := ValidatePassword("123456"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestParseEnums(t *testing.T) {
	if r, err := ParseRole("admin"); err != nil || r != RoleAdmin {
		t.Fatalf("ParseRole(admin) = %q, %v", r, err)
	}
	if _, err := ParseRole("root"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("ParseRole(root) error = %v", err)
	}
	if s, err := ParseTransactionStatus("cancelled"); err != nil || s != StatusCancelled {
		t.Fatalf("ParseTransactionStatus(cancelled) = %q, %v", s, err)
	}
	if _, err := ParseTransactionStatus("DONE"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("ParseTransactionStatus(DONE) error = %v", err)
	}
}

func TestStockDeltaAndSignedAmount(t *testing.T) {
	cases := []struct {
		typ    TransactionType
		delta  int
		amount string
	}{
		{Purchase, 5, "-10"},
		{Sale, -5, "10"},
		{ReturnToSupplier, -5, "-10"},
		{"OTHER", 0, "-10"},
	}
	for _, tc := range cases {
		if got := tc.typ.StockDelta(5); got != tc.delta {
			t.Errorf("%s.StockDelta(5) = %d, want %d", tc.typ, got, tc.delta)
		}
		tx := Transaction{Type: tc.typ, TotalPrice: dec("10")}
		if got := tx.SignedAmount(); !got.Equal(dec(tc.amount)) {
			t.Errorf("%s.SignedAmount() = %s, want %s", tc.typ, got, tc.amount)
		}
	}
}
