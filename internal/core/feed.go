package core

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawTransaction is a transaction as delivered by an upstream API. Field
// spellings vary between revisions of that API, so every alias is accepted
// here and resolved once by Normalize.
type RawTransaction struct {
	ID              LenientInt     `json:"id"`
	TransactionType LenientString  `json:"transactionType"`
	Type            LenientString  `json:"type"`
	Status          LenientString  `json:"status"`
	CreatedAt       LenientString  `json:"createdAt"`
	TransactionDate LenientString  `json:"transactionDate"`
	TotalProducts   *LenientInt    `json:"totalProducts"`
	Quantity        *LenientInt    `json:"quantity"`
	TotalPrice      LenientDecimal `json:"totalPrice"`
	Description     LenientString  `json:"description"`
	Note            LenientString  `json:"note"`
	ProductID       LenientInt     `json:"productId"`
	SupplierID      LenientInt     `json:"supplierId"`
}

// RawTransactions decodes a JSON array element by element. Elements that are
// not objects are dropped so one bad record never sinks the rest.
type RawTransactions []RawTransaction

func (rs *RawTransactions) UnmarshalJSON(data []byte) error {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return err
	}
	out := make(RawTransactions, 0, len(elems))
	for _, elem := range elems {
		var r RawTransaction
		if err := json.Unmarshal(elem, &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	*rs = out
	return nil
}

// LenientString decodes a JSON string. Numbers and booleans keep their
// literal text; objects, arrays and null decode to the empty string.
type LenientString string

func (s *LenientString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*s = ""
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err == nil {
			*s = LenientString(v)
		}
	case '{', '[', 'n':
	default:
		*s = LenientString(data)
	}
	return nil
}

func (s LenientString) trimmed() string { return strings.TrimSpace(string(s)) }

// LenientInt decodes a JSON number or numeric string. Anything else decodes
// to zero without failing the enclosing document.
type LenientInt int64

func (n *LenientInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
		*n = LenientInt(v)
		return nil
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		*n = LenientInt(int64(f))
		return nil
	}
	*n = 0
	return nil
}

// LenientDecimal decodes a JSON number or numeric string into a decimal.
// Missing, null or non-numeric values decode to zero.
type LenientDecimal struct {
	decimal.Decimal
}

func (d *LenientDecimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		d.Decimal = decimal.Zero
		return nil
	}
	d.Decimal = LenientAmount(strings.Trim(string(data), `"`))
	return nil
}

func (d LenientDecimal) MarshalJSON() ([]byte, error) {
	return []byte(d.Decimal.String()), nil
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp reads an upstream timestamp. Values without a zone are read
// in loc; zoned values are converted into loc. A bare number is taken as
// milliseconds since the Unix epoch. The zero time is returned when nothing
// matches.
func ParseTimestamp(s string, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc)
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).In(loc)
	}
	if ms, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(ms, 0) && !math.IsNaN(ms) && !strings.ContainsAny(s, "xXpP") {
		return time.UnixMilli(int64(ms)).In(loc)
	}
	return time.Time{}
}

// Normalize maps the upstream representation onto Transaction.
func (r RawTransaction) Normalize(loc *time.Location) Transaction {
	typ := r.TransactionType.trimmed()
	if typ == "" {
		typ = r.Type.trimmed()
	}

	stamp := r.CreatedAt.trimmed()
	if stamp == "" {
		stamp = r.TransactionDate.trimmed()
	}

	qty := 0
	switch {
	case r.TotalProducts != nil:
		qty = int(*r.TotalProducts)
	case r.Quantity != nil:
		qty = int(*r.Quantity)
	}

	price := r.TotalPrice.Decimal
	if price.IsNegative() {
		price = price.Abs()
	}

	createdAt := ParseTimestamp(stamp, loc)
	return Transaction{
		ID:            int64(r.ID),
		Type:          TransactionType(strings.ToUpper(typ)),
		Status:        TransactionStatus(strings.ToUpper(r.Status.trimmed())),
		TotalProducts: qty,
		TotalPrice:    price,
		Description:   string(r.Description),
		Note:          string(r.Note),
		ProductID:     int64(r.ProductID),
		SupplierID:    int64(r.SupplierID),
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

func NormalizeAll(raw []RawTransaction, loc *time.Location) []Transaction {
	out := make([]Transaction, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.Normalize(loc))
	}
	return out
}

// DecodeRawTransactions parses a JSON array of upstream transactions,
// skipping elements that are not objects.
func DecodeRawTransactions(data []byte) ([]RawTransaction, error) {
	var raw RawTransactions
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
