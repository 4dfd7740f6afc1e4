package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/ogulcanaydogan/price-tracker/pkg/model"
)

const (
	// PriceSelector marks the element holding the current price.
	PriceSelector = ".current-price"
	// PriceAttr carries the raw numeric price on the marker element.
	PriceAttr = "data-price"
)

// HTML extracts prices from product pages rendered as HTML.
type HTML struct{}

// NewHTML creates an HTML price extractor.
func NewHTML() *HTML { return &HTML{} }

// Extract finds the first marker element and parses its price. The data
// attribute wins over the rendered text, which may carry currency formatting.
func (h *HTML) Extract(body string) (decimal.Decimal, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return decimal.Zero, &ExtractionError{Reason: ErrNoPriceElement, Err: err}
	}

	el := doc.Find(PriceSelector).First()
	if el.Length() == 0 {
		return decimal.Zero, &ExtractionError{Reason: ErrNoPriceElement}
	}

	raw, _ := el.Attr(PriceAttr)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = strings.TrimSpace(el.Text())
	}
	if raw == "" {
		return decimal.Zero, &ExtractionError{Reason: ErrNoPriceElement}
	}

	price, err := model.ParsePrice(raw)
	if err != nil {
		return decimal.Zero, &ExtractionError{Reason: ErrUnparseablePrice, Value: raw, Err: err}
	}
	return price, nil
}
