package core

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Purchase         TransactionType = "PURCHASE"
	Sale             TransactionType = "SALE"
	ReturnToSupplier TransactionType = "RETURN_TO_SUPPLIER"

	StatusPending    TransactionStatus = "PENDING"
	StatusProcessing TransactionStatus = "PROCESSING"
	StatusCompleted  TransactionStatus = "COMPLETED"
	StatusCancelled  TransactionStatus = "CANCELLED"

	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

type (
	TransactionType   string
	TransactionStatus string
	Role              string

	Category struct {
		ID   int64
		Name string
	}

	Supplier struct {
		ID          int64
		Name        string
		ContactInfo string
		Address     string
	}

	Product struct {
		ID            int64
		Name          string
		SKU           string
		Price         decimal.Decimal
		StockQuantity int
		Description   string
		ExpiryDate    *time.Time
		ImageURL      string
		CategoryID    int64
		CreatedAt     time.Time
	}

	User struct {
		ID           int64
		Name         string
		Email        string
		PasswordHash string
		PhoneNumber  string
		Role         Role
		CreatedAt    time.Time
	}

	// Record is a free-form stock tally kept outside the product catalog.
	Record struct {
		ID        int64
		Name      string
		Quantity  int
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Transaction is the canonical inventory movement record. TotalPrice is
	// never negative; direction comes from Type.
	Transaction struct {
		ID            int64
		Type          TransactionType
		Status        TransactionStatus
		TotalProducts int
		TotalPrice    decimal.Decimal
		Description   string
		Note          string
		ProductID     int64
		UserID        int64
		SupplierID    int64 // 0 when no supplier is involved
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}
)

// ErrInvalid is wrapped by every input validation error in this package.
var ErrInvalid = errors.New("invalid input")

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")

	ErrInvalidPeriod = fmt.Errorf("%w: reporting period", ErrInvalid)
	ErrInvalidMonth  = fmt.Errorf("%w: month must be between 1 and 12", ErrInvalidPeriod)
	ErrInvalidYear   = fmt.Errorf("%w: year must have four digits", ErrInvalidPeriod)

	ErrInvalidAmount     = fmt.Errorf("%w: amount", ErrInvalid)
	ErrEmptyName         = fmt.Errorf("%w: empty name", ErrInvalid)
	ErrNameTooLong       = fmt.Errorf("%w: name too long", ErrInvalid)
	ErrEmptySKU          = fmt.Errorf("%w: empty sku", ErrInvalid)
	ErrInvalidPrice      = fmt.Errorf("%w: price must not be negative", ErrInvalid)
	ErrInvalidStock      = fmt.Errorf("%w: stock quantity must not be negative", ErrInvalid)
	ErrInvalidCategory   = fmt.Errorf("%w: category is required", ErrInvalid)
	ErrEmptyContact      = fmt.Errorf("%w: contact info is required", ErrInvalid)
	ErrEmptyAddress      = fmt.Errorf("%w: address is required", ErrInvalid)
	ErrInvalidEmail      = fmt.Errorf("%w: email", ErrInvalid)
	ErrEmptyPhone        = fmt.Errorf("%w: phone number is required", ErrInvalid)
	ErrWeakPassword      = fmt.Errorf("%w: password must be at least %d characters", ErrInvalid, MinPasswordLength)
	ErrInvalidRole       = fmt.Errorf("%w: role", ErrInvalid)
	ErrInvalidStatus     = fmt.Errorf("%w: transaction status", ErrInvalid)
	ErrInvalidQuantity   = fmt.Errorf("%w: quantity must be at least 1", ErrInvalid)
	ErrInvalidProduct    = fmt.Errorf("%w: product is required", ErrInvalid)
	ErrSupplierRequired  = fmt.Errorf("%w: supplier is required", ErrInvalid)
	ErrDescriptionLength = fmt.Errorf("%w: description too long", ErrInvalid)
)

const (
	MinPasswordLength    = 6
	maxNameLength        = 100
	maxDescriptionLength = 500
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleManager, RoleAdmin:
		return r, nil
	default:
		return "", ErrInvalidRole
	}
}

func ParseTransactionStatus(s string) (TransactionStatus, error) {
	switch st := TransactionStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return st, nil
	default:
		return "", ErrInvalidStatus
	}
}

// StockDelta returns how a movement of qty units changes on-hand stock.
func (t TransactionType) StockDelta(qty int) int {
	switch t {
	case Purchase:
		return qty
	case Sale, ReturnToSupplier:
		return -qty
	default:
		return 0
	}
}

// SignedAmount is the net cash contribution: positive for sales, negative for
// every other type.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == Sale {
		return t.TotalPrice
	}
	return t.TotalPrice.Neg()
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func (c Category) Validate() error {
	return validateName(c.Name)
}

func (r Record) Validate() error {
	if err := validateName(r.Name); err != nil {
		return err
	}
	if r.Quantity < 0 {
		return ErrInvalidStock
	}
	return nil
}

func (s Supplier) Validate() error {
	if err := validateName(s.Name); err != nil {
		return err
	}
	if strings.TrimSpace(s.ContactInfo) == "" {
		return ErrEmptyContact
	}
	if strings.TrimSpace(s.Address) == "" {
		return ErrEmptyAddress
	}
	return nil
}

func (p Product) Validate() error {
	if err := validateName(p.Name); err != nil {
		return err
	}
	if strings.TrimSpace(p.SKU) == "" {
		return ErrEmptySKU
	}
	if p.Price.IsNegative() {
		return ErrInvalidPrice
	}
	if p.StockQuantity < 0 {
		return ErrInvalidStock
	}
	if p.CategoryID < 1 {
		return ErrInvalidCategory
	}
	if len(p.Description) > maxDescriptionLength {
		return ErrDescriptionLength
	}
	return nil
}

func (u User) Validate() error {
	if err := validateName(u.Name); err != nil {
		return err
	}
	if err := ValidateEmail(u.Email); err != nil {
		return err
	}
	if strings.TrimSpace(u.PhoneNumber) == "" {
		return ErrEmptyPhone
	}
	if _, err := ParseRole(string(u.Role)); err != nil {
		return err
	}
	return nil
}

func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
