package extractor

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Extractor pulls the current price out of a fetched product page.
// Implementations must be pure: the same body always yields the same result.
type Extractor interface {
	Extract(body string) (decimal.Decimal, error)
}

var (
	ErrNoPriceElement   = errors.New("no price element found")
	ErrUnparseablePrice = errors.New("unparseable price value")
)

// ExtractionError reports a page that did not yield a usable price.
type ExtractionError struct {
	Reason error  // ErrNoPriceElement or ErrUnparseablePrice
	Value  string // raw value that failed to parse, if any
	Err    error
}

func (e *ExtractionError) Error() string {
	switch {
	case e.Value != "" && e.Err != nil:
		return fmt.Sprintf("extract price: %v %q: %v", e.Reason, e.Value, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("extract price: %v: %v", e.Reason, e.Err)
	default:
		return fmt.Sprintf("extract price: %v", e.Reason)
	}
}

// Is lets errors.Is match the reason sentinel.
func (e *ExtractionError) Is(target error) bool {
	return target == e.Reason
}

func (e *ExtractionError) Unwrap() error { return e.Err }
