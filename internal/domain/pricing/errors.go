package pricing

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Error categories. Every validation failure in the pricing domain matches
// exactly one of them with errors.Is.
var (
	// ErrInvalidType is returned for missing or wrongly shaped input.
	ErrInvalidType = errors.New("invalid type")
	// ErrOutOfRange is returned for well-typed input with an invalid value.
	ErrOutOfRange = errors.New("value out of range")
)

// Rule evaluation failures, all in the ErrOutOfRange category.
var (
	ErrNegativeDiscount        = errors.Wrap(ErrOutOfRange, "discounts cannot be negative")
	ErrInvalidPercentage       = errors.Wrap(ErrOutOfRange, "percentage must be between 0 and 1")
	ErrDiscountExceedsSubtotal = errors.Wrap(ErrOutOfRange, "total discount exceeds subtotal")
	ErrNegativeTotal           = errors.Wrap(ErrOutOfRange, "total cannot be negative")
	ErrConflictingPercentage   = errors.Wrap(ErrOutOfRange, "more than one percentage discount applies")
	ErrInvalidExtraItem        = errors.Wrap(ErrOutOfRange, "extra item must have a product code and positive quantity")
)

// RuleError attributes an evaluation failure to the rule that caused it.
type RuleError struct {
	Index int
	Rule  string
	Err   error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule #%d (%s): %v", e.Index, e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}
