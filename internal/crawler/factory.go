package crawler

import (
	"context"
	"fmt"

	"sjsage522/salecrawler/config"
	"sjsage522/salecrawler/helpers"
)

// SessionFactory opens a fresh session for one run
type SessionFactory func(ctx context.Context) (Session, error)

// NewSessionFactory returns the factory for the configured driver
func NewSessionFactory(cfg *config.Config) (SessionFactory, error) {
	switch cfg.Driver {
	case config.DriverBrowser:
		opts := BrowserOptions{
			Headless:      cfg.Headless,
			Bin:           cfg.BrowserBin,
			Proxy:         cfg.ProxyURL,
			Timeout:       cfg.PageTimeout,
			DisabledClass: cfg.Selectors.DisabledClass,
		}
		return func(ctx context.Context) (Session, error) {
			return NewBrowserSession(ctx, opts)
		}, nil
	case config.DriverStatic:
		helpers.SetTimeout(cfg.PageTimeout)
		if err := helpers.SetProxy(cfg.ProxyURL); err != nil {
			return nil, err
		}
		return func(ctx context.Context) (Session, error) {
			return NewStaticSession(cfg.Selectors.DisabledClass), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

// FilterFromConfig builds the catalog filter from the configuration
func FilterFromConfig(cfg *config.Config) Filter {
	return Filter{
		Category:    cfg.Category,
		ProductType: cfg.ProductType,
		Brand:       cfg.Brand,
	}
}
