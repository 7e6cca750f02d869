package currency

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Code classifies a wager expression against a balance
type Code string

const (
	CodeInvalid             Code = "invalid"
	CodeNegativeOrZero      Code = "negative_or_zero"
	CodeInsufficientBalance Code = "insufficient_balance"
	CodeValid               Code = "valid"
)

// Validity is the verdict on a Value. Message is shown to users verbatim.
type Validity struct {
	Code    Code
	Message string
}

// IsValid returns true if the amount can be wagered
func (v Validity) IsValid() bool {
	return v.Code == CodeValid
}

// Value is a wager expression resolved against the player's balance at construction time.
// It performs no I/O and is immutable.
type Value struct {
	raw      string
	amount   decimal.Decimal
	parsed   bool
	allIn    bool
	balance  decimal.Decimal
	validity Validity
}

// New resolves a wager expression. raw may be a string ("all", "1,000", "$5.50"),
// an integer, a float64 or a decimal.Decimal.
func New(raw any, balance decimal.Decimal) Value {
	v := Value{balance: balance}

	switch r := raw.(type) {
	case string:
		v.raw = r
		if IsAllIn(r) {
			v.allIn = true
			v.amount = balance.Round(Precision)
			v.parsed = true
			break
		}
		if amount, err := Parse(r); err == nil {
			v.amount = amount
			v.parsed = true
		}
	case decimal.Decimal:
		v.raw = r.String()
		v.amount = r.Round(Precision)
		v.parsed = true
	case Value:
		return New(r.raw, balance)
	case int:
		v.raw = fmt.Sprint(r)
		v.amount = decimal.NewFromInt(int64(r))
		v.parsed = true
	case int64:
		v.raw = fmt.Sprint(r)
		v.amount = decimal.NewFromInt(r)
		v.parsed = true
	case float64:
		v.raw = fmt.Sprint(r)
		if !math.IsNaN(r) && !math.IsInf(r, 0) {
			v.amount = decimal.NewFromFloat(r).Round(Precision)
			v.parsed = true
		}
	default:
		v.raw = fmt.Sprint(raw)
	}

	if !v.parsed {
		v.amount = decimal.Zero
	}
	v.validity = v.validate()
	return v
}

func (v Value) validate() Validity {
	switch {
	case !v.parsed:
		return Validity{Code: CodeInvalid, Message: fmt.Sprintf("%q is not a valid amount.", v.raw)}
	case !v.amount.IsPositive():
		return Validity{Code: CodeNegativeOrZero, Message: "The amount must be greater than zero."}
	case v.amount.GreaterThan(v.balance):
		return Validity{
			Code:    CodeInsufficientBalance,
			Message: fmt.Sprintf("You don't have enough money. Your balance is %s.", Format(v.balance)),
		}
	default:
		return Validity{Code: CodeValid}
	}
}

// Amount returns the parsed amount, zero when the expression was unparseable
func (v Value) Amount() decimal.Decimal {
	return v.amount
}

// Raw returns the original expression
func (v Value) Raw() string {
	return v.raw
}

// IsAllIn reports whether the expression was "all"
func (v Value) IsAllIn() bool {
	return v.allIn
}

// Formatted returns the canonical display string, e.g. "$250.00"
func (v Value) Formatted() string {
	return Format(v.amount)
}

// Validity returns the validation verdict
func (v Value) Validity() Validity {
	return v.validity
}

// Err returns nil for a valid value, otherwise a *ValidityError carrying the verdict
func (v Value) Err() error {
	if v.validity.IsValid() {
		return nil
	}
	return &ValidityError{Validity: v.validity}
}

// IsEqual compares amounts with another Value or raw amount. Unparseable inputs are never equal.
func (v Value) IsEqual(other any) bool {
	var o Value
	if ov, ok := other.(Value); ok {
		o = ov
	} else {
		o = New(other, v.balance)
	}
	if !v.parsed || !o.parsed {
		return false
	}
	return v.amount.Equal(o.amount)
}

// String implements fmt.Stringer
func (v Value) String() string {
	return v.Formatted()
}

// ValidityError wraps a non-valid verdict as an error
type ValidityError struct {
	Validity Validity
}

func (e *ValidityError) Error() string {
	return e.Validity.Message
}
