package crawler

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"sjsage522/salecrawler/logger"
	"sjsage522/salecrawler/pkg/errors"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Selectors of the catalog filter panel
const (
	brandSearchIcon  = ".filter-search-iconSearch"
	brandSearchInput = ".filter-search-inputBox"
)

// settleWindow is how long the DOM has to stay unchanged after a page switch
const settleWindow = 500 * time.Millisecond

// BrowserOptions configures the headless browser session
type BrowserOptions struct {
	Headless      bool
	Bin           string
	Proxy         string
	Timeout       time.Duration
	DisabledClass string
}

// BrowserSession drives a catalog page in a Chromium instance controlled by rod
type BrowserSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	opts     BrowserOptions
	log      *logger.Logger
}

// NewBrowserSession launches a browser and opens a blank page
func NewBrowserSession(ctx context.Context, opts BrowserOptions) (*BrowserSession, error) {
	log := logger.For("browser")

	l := launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		NoSandbox(true).
		Leakless(false).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check")
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	if opts.Proxy != "" {
		l = l.Proxy(opts.Proxy)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, errors.NewBrowser("browser", "launch browser", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, errors.NewBrowser("browser", "connect to browser", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.Close()
		l.Kill()
		return nil, errors.NewBrowser("browser", "open page", err)
	}

	log.Info().Bool("headless", opts.Headless).Msg("Browser ready")

	return &BrowserSession{
		launcher: l,
		browser:  browser,
		page:     page,
		opts:     opts,
		log:      log,
	}, nil
}

// scoped returns the page bound to ctx and the configured timeout.
// Callers must call CancelTimeout on the result.
func (s *BrowserSession) scoped(ctx context.Context) *rod.Page {
	return s.page.Context(ctx).Timeout(s.opts.Timeout)
}

// Open navigates to url and waits for the load event
func (s *BrowserSession) Open(ctx context.Context, url string) error {
	page := s.scoped(ctx)
	defer page.CancelTimeout()

	if err := page.Navigate(url); err != nil {
		return errors.NewBrowser("browser", "navigate to "+url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return errors.NewBrowser("browser", "wait for "+url, err)
	}
	return nil
}

// ApplyFilters hovers the category, picks the product type and ticks the brand.
// A step that fails is logged and the remaining steps still run.
func (s *BrowserSession) ApplyFilters(ctx context.Context, filter Filter) error {
	steps := []struct {
		name string
		skip bool
		run  func(page *rod.Page) error
	}{
		{
			name: "select category",
			skip: filter.Category == "",
			run: func(page *rod.Page) error {
				el, err := page.ElementR("a", "^\\s*"+regexp.QuoteMeta(filter.Category)+"\\s*$")
				if err != nil {
					return err
				}
				return el.Hover()
			},
		},
		{
			name: "filter by type",
			skip: filter.Category == "" || filter.ProductType == "",
			run: func(page *rod.Page) error {
				el, err := page.Element(fmt.Sprintf("a[href='/%s-%s']",
					strings.ToLower(filter.Category), strings.ToLower(filter.ProductType)))
				if err != nil {
					return err
				}
				return el.Click(proto.InputMouseButtonLeft, 1)
			},
		},
		{
			name: "filter by brand",
			skip: filter.Brand == "",
			run: func(page *rod.Page) error {
				icon, err := page.Element(brandSearchIcon)
				if err != nil {
					return err
				}
				if err := icon.Click(proto.InputMouseButtonLeft, 1); err != nil {
					return err
				}

				box, err := page.Element(brandSearchInput)
				if err != nil {
					return err
				}
				if err := box.Input(filter.Brand); err != nil {
					return err
				}
				if err := box.Type(input.Enter); err != nil {
					return err
				}

				brand := strings.ReplaceAll(filter.Brand, "'", "\\'")
				checkbox, err := page.Element(fmt.Sprintf("input[type='checkbox'][value='%s']", brand))
				if err != nil {
					return err
				}
				_, err = checkbox.Eval(`() => this.dispatchEvent(new MouseEvent('click', {bubbles: true}))`)
				return err
			},
		},
	}

	for _, step := range steps {
		if step.skip {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		page := s.scoped(ctx)
		err := step.run(page)
		page.CancelTimeout()
		if err != nil {
			s.log.Warn().Str("step", step.name).Err(err).Msg("Filter step failed")
			continue
		}
		s.log.Debug().Str("step", step.name).Msg("Filter step applied")
	}

	page := s.scoped(ctx)
	defer page.CancelTimeout()
	if err := page.WaitLoad(); err != nil {
		return errors.NewBrowser("browser", "wait for filtered catalog", err)
	}
	return nil
}

// WaitForSelector blocks until selector appears or the timeout expires
func (s *BrowserSession) WaitForSelector(ctx context.Context, selector string) error {
	page := s.scoped(ctx)
	defer page.CancelTimeout()

	_, err := page.Element(selector)
	return err
}

// FindAll returns the elements currently matching selector
func (s *BrowserSession) FindAll(ctx context.Context, selector string) ([]ItemHandle, error) {
	elements, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}

	items := make([]ItemHandle, 0, len(elements))
	for _, el := range elements {
		items = append(items, &browserItem{el: el})
	}
	return items, nil
}

// FindControl returns the first element matching selector without waiting for it
func (s *BrowserSession) FindControl(ctx context.Context, selector string) (ControlHandle, bool, error) {
	has, el, err := s.page.Context(ctx).Has(selector)
	if err != nil || !has {
		return nil, false, err
	}
	return &browserControl{el: el, disabledClass: s.opts.DisabledClass}, true, nil
}

// NavigateNext clicks the control
func (s *BrowserSession) NavigateNext(ctx context.Context, control ControlHandle) error {
	c, ok := control.(*browserControl)
	if !ok {
		return fmt.Errorf("control %T does not belong to a browser session", control)
	}

	el := c.el.Context(ctx).Timeout(s.opts.Timeout)
	defer el.CancelTimeout()
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// AwaitPageSettled waits for the load event, then briefly for the DOM to calm down
func (s *BrowserSession) AwaitPageSettled(ctx context.Context) error {
	page := s.scoped(ctx)
	defer page.CancelTimeout()

	if err := page.WaitLoad(); err != nil {
		return err
	}
	if err := page.WaitStable(settleWindow); err != nil && ctx.Err() == nil {
		// client-side pagination never fires a new load event, so this is best effort
		s.log.Debug().Err(err).Msg("Page did not become stable")
	}
	return ctx.Err()
}

// Close shuts the browser down
func (s *BrowserSession) Close() error {
	if s.browser == nil {
		return nil
	}

	err := s.browser.Close()
	s.launcher.Cleanup()
	s.browser = nil
	s.log.Info().Msg("Browser closed")
	return err
}

type browserItem struct {
	el *rod.Element
}

func (i *browserItem) HasVisibleChild(selector string) (bool, error) {
	has, child, err := i.el.Has(selector)
	if err != nil || !has {
		return false, err
	}
	return child.Visible()
}

func (i *browserItem) Text(selector string) (string, error) {
	has, child, err := i.el.Has(selector)
	if err != nil {
		return "", err
	}
	if !has {
		return "", fmt.Errorf("no element matches %q", selector)
	}
	return child.Text()
}

func (i *browserItem) Attribute(selector, name string) (string, bool, error) {
	has, child, err := i.el.Has(selector)
	if err != nil || !has {
		return "", false, err
	}
	value, err := child.Attribute(name)
	if err != nil || value == nil {
		return "", false, err
	}
	return *value, true, nil
}

type browserControl struct {
	el            *rod.Element
	disabledClass string
}

func (c *browserControl) IsDisabled() (bool, error) {
	attrs := make(map[string]*string, 3)
	for _, name := range []string{"class", "disabled", "aria-disabled"} {
		value, err := c.el.Attribute(name)
		if err != nil {
			return false, err
		}
		attrs[name] = value
	}

	return nextControlDisabled(
		deref(attrs["class"]),
		attrs["disabled"] != nil,
		deref(attrs["aria-disabled"]),
		c.disabledClass,
	), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
