package config

import (
	stderrors "errors"
	"testing"
	"time"

	"sjsage522/salecrawler/pkg/errors"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	// Test with default values
	config := LoadConfig()
	assert.Equal(t, "https://www.myntra.com/", config.CatalogURL)
	assert.Equal(t, DriverBrowser, config.Driver)
	assert.Equal(t, ".product-base", config.Selectors.ItemContainer)
	assert.Equal(t, ".product-strike", config.Selectors.DiscountMarker)
	assert.Equal(t, "pagination-disabled", config.Selectors.DisabledClass)
	assert.Equal(t, 3, config.ItemMaxAttempts)
	assert.Equal(t, 100, config.MaxPages)
	assert.Equal(t, 30*time.Second, config.PageTimeout)
	assert.Equal(t, "localhost:6379", config.RedisAddr)
	assert.Equal(t, 1, config.RedisStreamCount)
	assert.False(t, config.PublishEnabled)
	assert.Equal(t, time.Duration(0), config.RunInterval)
	assert.NoError(t, config.Validate())

	// Test with environment variables
	t.Setenv("CATALOG_URL", "https://shop.example.com/men-tshirts")
	t.Setenv("BRAND", "Nike")
	t.Setenv("SCRAPER_DRIVER", "static")
	t.Setenv("MAX_PAGES", "0")
	t.Setenv("ITEM_MAX_ATTEMPTS", "5")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("RUN_COOLDOWN_SECONDS", "120")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("SELECTOR_NEXT", "li.next")
	t.Setenv("PROXY_URL", "http://127.0.0.1:8118")

	config = LoadConfig()
	assert.Equal(t, "https://shop.example.com/men-tshirts", config.CatalogURL)
	assert.Equal(t, "Nike", config.Brand)
	assert.Equal(t, DriverStatic, config.Driver)
	assert.Equal(t, 0, config.MaxPages)
	assert.Equal(t, 5, config.ItemMaxAttempts)
	assert.False(t, config.Headless)
	assert.Equal(t, 120*time.Second, config.RunCooldown)
	assert.Equal(t, 2, config.RedisDB)
	assert.Equal(t, "li.next", config.Selectors.NextControl)
	assert.Equal(t, "http://127.0.0.1:8118", config.ProxyURL)
	assert.NoError(t, config.Validate())
}

func TestLoadConfigIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("MAX_PAGES", "lots")
	t.Setenv("BROWSER_HEADLESS", "maybe")

	config := LoadConfig()
	assert.Equal(t, 100, config.MaxPages)
	assert.True(t, config.Headless)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{"bad catalog url", func(c *Config) { c.CatalogURL = "not a url" }, "CATALOG_URL is not a valid URL"},
		{"bad link base", func(c *Config) { c.LinkBaseURL = "" }, "LINK_BASE_URL must not be empty"},
		{"empty brand", func(c *Config) { c.Brand = "  " }, "BRAND must not be empty"},
		{"unknown driver", func(c *Config) { c.Driver = "carrier-pigeon" }, `SCRAPER_DRIVER "carrier-pigeon" must be one of: browser static`},
		{"unknown format", func(c *Config) { c.ReportFormat = "xml" }, `REPORT_FORMAT "xml" must be one of: text table json`},
		{"missing item selector", func(c *Config) { c.Selectors.ItemContainer = "" }, "SELECTOR_ITEM must not be empty"},
		{"missing next selector", func(c *Config) { c.Selectors.NextControl = "" }, "SELECTOR_NEXT must not be empty"},
		{"zero attempts", func(c *Config) { c.ItemMaxAttempts = 0 }, "ITEM_MAX_ATTEMPTS must be at least 1"},
		{"negative pages", func(c *Config) { c.MaxPages = -1 }, "MAX_PAGES must be at least 0"},
		{"zero timeout", func(c *Config) { c.PageTimeout = 0 }, "PAGE_TIMEOUT_SECONDS must be greater than 0"},
		{"bad proxy url", func(c *Config) { c.ProxyURL = "proxy without scheme" }, "PROXY_URL is not a valid URL"},
		{"no streams", func(c *Config) { c.PublishEnabled = true; c.RedisStreamCount = 0 }, "REDIS_STREAM_COUNT must be at least 1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := LoadConfig()
			tc.mutate(config)
			err := config.Validate()
			assert.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestValidateReportsEveryInvalidField(t *testing.T) {
	config := LoadConfig()
	config.CatalogURL = "not a url"
	config.ReportFormat = "xml"
	config.ItemMaxAttempts = 0

	err := config.Validate()
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
	assert.Contains(t, err.Error(), "CATALOG_URL is not a valid URL")
	assert.Contains(t, err.Error(), "REPORT_FORMAT")
	assert.Contains(t, err.Error(), "ITEM_MAX_ATTEMPTS")

	var fieldErrs validator.ValidationErrors
	assert.True(t, stderrors.As(err, &fieldErrs))
	assert.Len(t, fieldErrs, 3)
}

func TestValidateAllowsOptionalFields(t *testing.T) {
	config := LoadConfig()
	config.ProxyURL = ""
	config.MaxPages = 0
	config.Selectors.DiscountedPrice = ""
	config.Selectors.DisabledClass = ""
	config.RedisStreamCount = 0

	assert.NoError(t, config.Validate())
}
