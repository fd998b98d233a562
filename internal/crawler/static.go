package crawler

import (
	"context"
	"fmt"
	"io"
	"strings"

	"sjsage522/salecrawler/helpers"
	"sjsage522/salecrawler/logger"
	"sjsage522/salecrawler/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// FetchFunc fetches a page body
type FetchFunc func(ctx context.Context, url string) (io.Reader, error)

// StaticSession serves server-rendered catalog pages fetched over HTTP.
// The next control is followed through its href; filters have to be part of the catalog URL.
type StaticSession struct {
	disabledClass string
	fetch         FetchFunc
	doc           *goquery.Document
	currentURL    string
	log           *logger.Logger
}

// NewStaticSession creates a new static session
func NewStaticSession(disabledClass string) *StaticSession {
	return NewStaticSessionWithFetcher(disabledClass, helpers.FetchWithRandomHeaders)
}

// NewStaticSessionWithFetcher creates a static session using fetch for every page load
func NewStaticSessionWithFetcher(disabledClass string, fetch FetchFunc) *StaticSession {
	return &StaticSession{
		disabledClass: disabledClass,
		fetch:         fetch,
		log:           logger.For("static"),
	}
}

// Open fetches url and makes it the current page
func (s *StaticSession) Open(ctx context.Context, url string) error {
	body, err := s.fetch(ctx, url)
	if err != nil {
		return errors.NewBrowser("static", "fetch "+url, err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return errors.NewBrowser("static", "parse "+url, err)
	}

	s.doc = doc
	s.currentURL = url
	s.log.Debug().Str("url", url).Msg("Page loaded")
	return nil
}

// ApplyFilters only reports the filter; static pages cannot be clicked through
func (s *StaticSession) ApplyFilters(ctx context.Context, filter Filter) error {
	s.log.Info().
		Str("category", filter.Category).
		Str("type", filter.ProductType).
		Str("brand", filter.Brand).
		Msg("Static driver expects the filter to be encoded in the catalog URL")
	return nil
}

// WaitForSelector checks that selector matches on the loaded document
func (s *StaticSession) WaitForSelector(ctx context.Context, selector string) error {
	if s.doc == nil {
		return fmt.Errorf("no page loaded")
	}
	if s.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("no element matches %q on %s", selector, s.currentURL)
	}
	return nil
}

// FindAll returns every element matching selector
func (s *StaticSession) FindAll(ctx context.Context, selector string) ([]ItemHandle, error) {
	if s.doc == nil {
		return nil, fmt.Errorf("no page loaded")
	}

	var items []ItemHandle
	s.doc.Find(selector).Each(func(i int, sel *goquery.Selection) {
		items = append(items, &staticItem{sel: sel})
	})
	return items, nil
}

// FindControl returns the first element matching selector
func (s *StaticSession) FindControl(ctx context.Context, selector string) (ControlHandle, bool, error) {
	if s.doc == nil {
		return nil, false, fmt.Errorf("no page loaded")
	}

	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, false, nil
	}
	return &staticControl{sel: sel, disabledClass: s.disabledClass}, true, nil
}

// NavigateNext loads the page the control links to
func (s *StaticSession) NavigateNext(ctx context.Context, control ControlHandle) error {
	c, ok := control.(*staticControl)
	if !ok {
		return fmt.Errorf("control %T does not belong to a static session", control)
	}

	href := c.href()
	if href == "" {
		return fmt.Errorf("next control has no link")
	}

	next, err := helpers.ResolveURL(s.currentURL, href)
	if err != nil {
		return fmt.Errorf("resolve next page link: %w", err)
	}
	return s.Open(ctx, next)
}

// AwaitPageSettled returns at once, a fetched document is complete
func (s *StaticSession) AwaitPageSettled(ctx context.Context) error {
	return ctx.Err()
}

// Close drops the current document
func (s *StaticSession) Close() error {
	s.doc = nil
	return nil
}

type staticItem struct {
	sel *goquery.Selection
}

func (i *staticItem) HasVisibleChild(selector string) (bool, error) {
	child := i.sel.Find(selector).First()
	if child.Length() == 0 {
		return false, nil
	}
	return isRendered(child, i.sel), nil
}

func (i *staticItem) Text(selector string) (string, error) {
	child := i.sel.Find(selector).First()
	if child.Length() == 0 {
		return "", fmt.Errorf("no element matches %q", selector)
	}
	return child.Text(), nil
}

func (i *staticItem) Attribute(selector, name string) (string, bool, error) {
	child := i.sel.Find(selector).First()
	if child.Length() == 0 {
		return "", false, nil
	}
	value, exists := child.Attr(name)
	return value, exists, nil
}

type staticControl struct {
	sel           *goquery.Selection
	disabledClass string
}

func (c *staticControl) IsDisabled() (bool, error) {
	class, _ := c.sel.Attr("class")
	_, disabled := c.sel.Attr("disabled")
	aria, _ := c.sel.Attr("aria-disabled")
	return nextControlDisabled(class, disabled, aria, c.disabledClass), nil
}

// href reads the link of the control itself or of its first anchor
func (c *staticControl) href() string {
	if href, exists := c.sel.Attr("href"); exists {
		return strings.TrimSpace(href)
	}
	href, _ := c.sel.Find("a[href]").First().Attr("href")
	return strings.TrimSpace(href)
}

// isRendered reports whether el and its ancestors up to root are not hidden
// through the hidden attribute or inline styles
func isRendered(el, root *goquery.Selection) bool {
	for node := el; node.Length() > 0; node = node.Parent() {
		if _, hidden := node.Attr("hidden"); hidden {
			return false
		}
		style, _ := node.Attr("style")
		style = strings.ReplaceAll(strings.ToLower(style), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
		if node.IsSelection(root) {
			break
		}
	}
	return true
}
