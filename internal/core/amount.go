package core

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a nullable money value. The upstream API emits amounts as JSON
// numbers, numeric strings (sometimes with a comma decimal separator) or
// null, and anything that does not coerce to a finite number is treated as
// absent rather than zero.
type Amount struct {
	Dec   decimal.Decimal
	Valid bool
}

// NewAmount returns a present Amount holding d.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Dec: d, Valid: true}
}

// AmountFromFloat returns a present Amount holding f.
func AmountFromFloat(f float64) Amount {
	return Amount{Dec: decimal.NewFromFloat(f), Valid: true}
}

// AmountFromString coerces s into an Amount. Comma decimal separators and
// surrounding whitespace are normalized; unparseable input yields an absent
// Amount, never an error.
func AmountFromString(s string) Amount {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}
	}
	// Normalize decimal comma and embedded thousands spaces
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.ReplaceAll(s, " ", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}
	}
	return Amount{Dec: d, Valid: true}
}

// AmountFromAny coerces an arbitrary decoded JSON value into an Amount.
func AmountFromAny(v any) Amount {
	switch t := v.(type) {
	case nil:
		return Amount{}
	case float64:
		return AmountFromFloat(t)
	case int:
		return Amount{Dec: decimal.NewFromInt(int64(t)), Valid: true}
	case int64:
		return Amount{Dec: decimal.NewFromInt(t), Valid: true}
	case json.Number:
		return AmountFromString(t.String())
	case string:
		return AmountFromString(t)
	case decimal.Decimal:
		return Amount{Dec: t, Valid: true}
	default:
		return Amount{}
	}
}

// IsZero reports whether the amount is present and exactly zero.
func (a Amount) IsZero() bool {
	return a.Valid && a.Dec.IsZero()
}

// Meaningful reports whether the amount is present and non-zero.
func (a Amount) Meaningful() bool {
	return a.Valid && !a.Dec.IsZero()
}

// Float64 returns the amount as a float64, or 0 when absent.
func (a Amount) Float64() float64 {
	if !a.Valid {
		return 0
	}
	f, _ := a.Dec.Float64()
	return f
}

// OrZero returns the decimal value, treating an absent amount as zero.
func (a Amount) OrZero() decimal.Decimal {
	if !a.Valid {
		return decimal.Zero
	}
	return a.Dec
}

// Cmp compares two amounts. An absent amount sorts below any present one,
// so missing values always end up last in a descending order.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a.Valid && b.Valid:
		return a.Dec.Cmp(b.Dec)
	case a.Valid:
		return 1
	case b.Valid:
		return -1
	default:
		return 0
	}
}

// UnmarshalJSON accepts numbers, numeric strings and null. Values that fail
// numeric coercion leave the amount absent; they are not an error because a
// single bad cell must not reject the whole payload.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = Amount{}
			return nil
		}
		*a = AmountFromString(s)
		return nil
	}
	var d decimal.Decimal
	if err := json.Unmarshal(data, &d); err != nil {
		*a = Amount{}
		return nil
	}
	*a = Amount{Dec: d, Valid: true}
	return nil
}

// MarshalJSON renders the amount as a JSON number, or null when absent.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(a.Dec.String()), nil
}

// sum accumulates amounts while tracking whether any contributor was
// present, so an all-absent column can render as "no data" instead of 0.
type sum struct {
	total decimal.Decimal
	any   bool
}

func (s *sum) add(a Amount) {
	if !a.Valid {
		return
	}
	s.total = s.total.Add(a.Dec)
	s.any = true
}

func (s *sum) addDec(d decimal.Decimal) {
	s.total = s.total.Add(d)
	s.any = true
}

func (s sum) amount() Amount {
	if !s.any {
		return Amount{}
	}
	return Amount{Dec: s.total, Valid: true}
}
