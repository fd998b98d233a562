package crawler

import (
	"context"
	"strconv"
	"strings"
)

// ListingRecord represents one discounted product read from a catalog page.
// Build it with NewListingRecord so DiscountValue always matches DiscountLabel.
type ListingRecord struct {
	OriginalPrice   string `json:"original_price"`
	DiscountedPrice string `json:"discounted_price"`
	DiscountLabel   string `json:"discount_label"`
	DiscountValue   int    `json:"discount_value"`
	Link            string `json:"link"`
}

// NewListingRecord creates a ListingRecord and derives its discount value
func NewListingRecord(originalPrice, discountedPrice, discountLabel, link string) ListingRecord {
	return ListingRecord{
		OriginalPrice:   originalPrice,
		DiscountedPrice: discountedPrice,
		DiscountLabel:   discountLabel,
		DiscountValue:   ParseDiscountValue(discountLabel),
		Link:            link,
	}
}

// ParseDiscountValue keeps only the ASCII digits of label and parses them.
// A label without digits, or one whose digits overflow an int, yields 0.
func ParseDiscountValue(label string) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, label)
	if digits == "" {
		return 0
	}
	value, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return value
}

// PageView is the page-interaction capability the extraction engine reads from.
// Every method may block until the underlying page settles.
type PageView interface {
	// WaitForSelector blocks until selector is present on the current page
	WaitForSelector(ctx context.Context, selector string) error

	// FindAll enumerates the elements matching selector in document order
	FindAll(ctx context.Context, selector string) ([]ItemHandle, error)

	// FindControl returns the first element matching selector, if any
	FindControl(ctx context.Context, selector string) (ControlHandle, bool, error)

	// NavigateNext activates control and returns once the click registered
	NavigateNext(ctx context.Context, control ControlHandle) error

	// AwaitPageSettled blocks until the page finished loading
	AwaitPageSettled(ctx context.Context) error
}

// ItemHandle is one item container on the current page
type ItemHandle interface {
	HasVisibleChild(selector string) (bool, error)
	Text(selector string) (string, error)
	Attribute(selector, name string) (string, bool, error)
}

// ControlHandle is the next-page control
type ControlHandle interface {
	IsDisabled() (bool, error)
}

// nextControlDisabled decides whether a next-page control is disabled from its attributes:
// a class token equal to disabledClass, a disabled attribute, or aria-disabled="true".
func nextControlDisabled(classAttr string, hasDisabledAttr bool, ariaDisabled, disabledClass string) bool {
	return classListContains(classAttr, disabledClass) || hasDisabledAttr || ariaDisabled == "true"
}

func classListContains(classAttr, class string) bool {
	if class == "" {
		return false
	}
	for _, c := range strings.Fields(classAttr) {
		if c == class {
			return true
		}
	}
	return false
}

// Filter describes the catalog filters applied before extraction
type Filter struct {
	Category    string
	ProductType string
	Brand       string
}

// Session is a PageView bound to a browsing session that must be released
type Session interface {
	PageView

	// Open loads url as the current page
	Open(ctx context.Context, url string) error

	// ApplyFilters narrows the catalog to the given filter
	ApplyFilters(ctx context.Context, filter Filter) error

	// Close releases the session
	Close() error
}

// Outcome is the result kind of processing one item container
type Outcome int

const (
	// OutcomeRecord means a ListingRecord was built
	OutcomeRecord Outcome = iota
	// OutcomeSkipped means the item is not on discount
	OutcomeSkipped
	// OutcomeFailed means reading the item failed after all attempts
	OutcomeFailed
)

// String returns the outcome name for logging
func (o Outcome) String() string {
	switch o {
	case OutcomeRecord:
		return "record"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ItemResult is the outcome of processing one item container
type ItemResult struct {
	Outcome  Outcome
	Record   ListingRecord
	Attempts int
	Err      error
}

// ItemFailure records an item that was dropped after its attempts ran out
type ItemFailure struct {
	Page     int
	Index    int
	Attempts int
	Err      error
}

// PageResult is everything the extractor found on one page
type PageResult struct {
	Records  []ListingRecord
	Failures []ItemFailure
	Skipped  int
}

