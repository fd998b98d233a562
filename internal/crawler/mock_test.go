package crawler

import (
	"context"
	"errors"
	"fmt"

	"sjsage522/salecrawler/config"
)

var testSelectors = config.Selectors{
	ItemContainer:      ".product-base",
	DiscountMarker:     ".product-strike",
	DiscountedPrice:    ".product-discountedPrice",
	DiscountPercentage: ".product-discountPercentage",
	Link:               "a",
	NextControl:        ".pagination-next",
	DisabledClass:      "pagination-disabled",
}

const testLinkBase = "https://shop.example.com/"

var errStale = errors.New("stale element reference")

// mockItem implements ItemHandle
type mockItem struct {
	onSale   bool
	texts    map[string]string
	href     string
	hasHref  bool
	failures int // reads that fail before the item becomes readable
	checks   int
}

func discounted(id, label string) *mockItem {
	return &mockItem{
		onSale: true,
		texts: map[string]string{
			testSelectors.DiscountMarker:     " Rs. 1999 ",
			testSelectors.DiscountedPrice:    "Rs. 999",
			testSelectors.DiscountPercentage: label,
		},
		href:    "item/" + id,
		hasHref: true,
	}
}

func regular() *mockItem {
	return &mockItem{onSale: false}
}

func (m *mockItem) HasVisibleChild(selector string) (bool, error) {
	m.checks++
	if m.failures > 0 {
		m.failures--
		return false, errStale
	}
	if selector != testSelectors.DiscountMarker {
		return false, nil
	}
	return m.onSale, nil
}

func (m *mockItem) Text(selector string) (string, error) {
	text, ok := m.texts[selector]
	if !ok {
		return "", fmt.Errorf("no element matches %q", selector)
	}
	return text, nil
}

func (m *mockItem) Attribute(selector, name string) (string, bool, error) {
	return m.href, m.hasHref, nil
}

// mockControl implements ControlHandle
type mockControl struct {
	disabled bool
	err      error
}

func (c *mockControl) IsDisabled() (bool, error) {
	return c.disabled, c.err
}

type mockPage struct {
	items   []*mockItem
	next    *mockControl // nil when the page has no next control
	waitErr error
}

// mockView implements PageView over a fixed sequence of pages
type mockView struct {
	pages          []mockPage
	current        int
	repeatLast     bool
	navigations    int
	settles        int
	findControlErr error
	navigateErr    error
	settleErr      error
}

func newMockView(pages ...mockPage) *mockView {
	return &mockView{pages: pages}
}

func (v *mockView) page() mockPage {
	return v.pages[v.current]
}

func (v *mockView) WaitForSelector(ctx context.Context, selector string) error {
	return v.page().waitErr
}

func (v *mockView) FindAll(ctx context.Context, selector string) ([]ItemHandle, error) {
	items := make([]ItemHandle, 0, len(v.page().items))
	for _, item := range v.page().items {
		items = append(items, item)
	}
	return items, nil
}

func (v *mockView) FindControl(ctx context.Context, selector string) (ControlHandle, bool, error) {
	if v.findControlErr != nil {
		return nil, false, v.findControlErr
	}
	if v.page().next == nil {
		return nil, false, nil
	}
	return v.page().next, true, nil
}

func (v *mockView) NavigateNext(ctx context.Context, control ControlHandle) error {
	if v.navigateErr != nil {
		return v.navigateErr
	}
	v.navigations++
	if v.current+1 < len(v.pages) {
		v.current++
		return nil
	}
	if v.repeatLast {
		return nil
	}
	return errors.New("clicked past the last page")
}

func (v *mockView) AwaitPageSettled(ctx context.Context) error {
	v.settles++
	return v.settleErr
}

func enabled() *mockControl {
	return &mockControl{}
}

func disabled() *mockControl {
	return &mockControl{disabled: true}
}

func discountValues(records []ListingRecord) []int {
	values := make([]int, 0, len(records))
	for _, r := range records {
		values = append(values, r.DiscountValue)
	}
	return values
}
