package values

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount represents a bid or minimum-bid amount in the smallest currency
// unit (e.g. stroops, cents). Amounts are always non-negative integers;
// display conversion to the major unit is a presentation concern only.
type Amount struct {
	units int64
}

// UnitsPerMajor is the conversion factor between the smallest unit and
// the display unit (10^7 for stroops, matching the settlement currency).
const UnitsPerMajor = 10_000_000

// NewAmount creates an Amount from smallest-unit integer value
func NewAmount(units int64) (Amount, error) {
	if units < 0 {
		return Amount{}, fmt.Errorf("amount cannot be negative: %d", units)
	}
	return Amount{units: units}, nil
}

// MustNewAmount creates an Amount and panics on error (for constants/tests)
func MustNewAmount(units int64) Amount {
	a, err := NewAmount(units)
	if err != nil {
		panic(err)
	}
	return a
}

// NewAmountFromString creates an Amount from a decimal string of smallest units
func NewAmountFromString(s string) (Amount, error) {
	dec, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount: %w", err)
	}
	if !dec.IsInteger() {
		return Amount{}, fmt.Errorf("amount must be a whole number of smallest units: %s", s)
	}
	return NewAmount(dec.IntPart())
}

// Zero returns a zero Amount
func Zero() Amount {
	return Amount{}
}

// Units returns the raw smallest-unit value
func (a Amount) Units() int64 {
	return a.units
}

// Major returns the display-unit value as a decimal
func (a Amount) Major() decimal.Decimal {
	return decimal.NewFromInt(a.units).Div(decimal.NewFromInt(UnitsPerMajor))
}

// String returns the smallest-unit value with the display form,
// e.g. "150000 (0.015)"
func (a Amount) String() string {
	return fmt.Sprintf("%d (%s)", a.units, a.Major().String())
}

// IsZero checks if the amount is zero
func (a Amount) IsZero() bool {
	return a.units == 0
}

// IsPositive checks if the amount is strictly positive
func (a Amount) IsPositive() bool {
	return a.units > 0
}

// Equal checks if two amounts are equal
func (a Amount) Equal(other Amount) bool {
	return a.units == other.units
}

// LessThan checks if this amount is strictly below other
func (a Amount) LessThan(other Amount) bool {
	return a.units < other.units
}

// Compare returns -1, 0, or 1
func (a Amount) Compare(other Amount) int {
	switch {
	case a.units < other.units:
		return -1
	case a.units > other.units:
		return 1
	default:
		return 0
	}
}

// MarshalJSON serializes the amount as a bare integer of smallest units
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.units)
}

// UnmarshalJSON parses either an integer or an integer-valued string
func (a *Amount) UnmarshalJSON(data []byte) error {
	var units int64
	if err := json.Unmarshal(data, &units); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid amount: %s", string(data))
		}
		parsed, perr := NewAmountFromString(s)
		if perr != nil {
			return perr
		}
		*a = parsed
		return nil
	}
	parsed, err := NewAmount(units)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer for database storage
func (a Amount) Value() (driver.Value, error) {
	return a.units, nil
}

// Scan implements sql.Scanner for database retrieval
func (a *Amount) Scan(value interface{}) error {
	if value == nil {
		*a = Amount{}
		return nil
	}
	switch v := value.(type) {
	case int64:
		parsed, err := NewAmount(v)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case []byte:
		parsed, err := NewAmountFromString(string(v))
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Amount", value)
	}
}
