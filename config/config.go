package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"sjsage522/salecrawler/pkg/errors"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Scraper drivers
const (
	DriverBrowser = "browser"
	DriverStatic  = "static"
)

// Report formats
const (
	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
)

// Selectors holds the CSS selectors used to read the catalog page
type Selectors struct {
	ItemContainer      string `env:"SELECTOR_ITEM" validate:"required"`
	DiscountMarker     string `env:"SELECTOR_DISCOUNT_MARKER" validate:"required"`
	DiscountedPrice    string `env:"SELECTOR_DISCOUNTED_PRICE"`
	DiscountPercentage string `env:"SELECTOR_DISCOUNT_PERCENTAGE"`
	Link               string `env:"SELECTOR_LINK"`
	NextControl        string `env:"SELECTOR_NEXT" validate:"required"`
	DisabledClass      string `env:"SELECTOR_NEXT_DISABLED_CLASS"`
}

// Config represents the application configuration
type Config struct {
	// Catalog target
	CatalogURL  string `env:"CATALOG_URL" validate:"required,url"`
	LinkBaseURL string `env:"LINK_BASE_URL" validate:"required,url"`
	Category    string
	ProductType string
	Brand       string `env:"BRAND" validate:"notblank"`

	// Page interaction
	Driver      string        `env:"SCRAPER_DRIVER" validate:"oneof=browser static"`
	Headless    bool          `env:"BROWSER_HEADLESS"`
	BrowserBin  string        `env:"BROWSER_BIN"`
	ProxyURL    string        `env:"PROXY_URL" validate:"omitempty,url"`
	PageTimeout time.Duration `env:"PAGE_TIMEOUT_SECONDS" validate:"gt=0"`
	Selectors   Selectors

	// Extraction limits
	MaxPages        int `env:"MAX_PAGES" validate:"gte=0"`
	ItemMaxAttempts int `env:"ITEM_MAX_ATTEMPTS" validate:"gte=1"`

	// Reporting
	ReportFormat string `env:"REPORT_FORMAT" validate:"oneof=text table json"`
	ErrorLogFile string

	// Redis configuration
	PublishEnabled       bool
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration
	MemcacheAddr string

	// Run scheduling
	RunCooldown time.Duration
	RunInterval time.Duration

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		CatalogURL:  getEnv("CATALOG_URL", "https://www.myntra.com/"),
		LinkBaseURL: getEnv("LINK_BASE_URL", "https://www.myntra.com/"),
		Category:    getEnv("CATEGORY", "Men"),
		ProductType: getEnv("PRODUCT_TYPE", "Tshirts"),
		Brand:       getEnv("BRAND", "Puma"),

		Driver:      getEnv("SCRAPER_DRIVER", DriverBrowser),
		Headless:    getEnvBool("BROWSER_HEADLESS", true),
		BrowserBin:  getEnv("BROWSER_BIN", ""),
		ProxyURL:    getEnv("PROXY_URL", ""),
		PageTimeout: time.Duration(getEnvInt("PAGE_TIMEOUT_SECONDS", 30)) * time.Second,
		Selectors: Selectors{
			ItemContainer:      getEnv("SELECTOR_ITEM", ".product-base"),
			DiscountMarker:     getEnv("SELECTOR_DISCOUNT_MARKER", ".product-strike"),
			DiscountedPrice:    getEnv("SELECTOR_DISCOUNTED_PRICE", ".product-discountedPrice"),
			DiscountPercentage: getEnv("SELECTOR_DISCOUNT_PERCENTAGE", ".product-discountPercentage"),
			Link:               getEnv("SELECTOR_LINK", "a"),
			NextControl:        getEnv("SELECTOR_NEXT", ".pagination-next"),
			DisabledClass:      getEnv("SELECTOR_NEXT_DISABLED_CLASS", "pagination-disabled"),
		},

		MaxPages:        getEnvInt("MAX_PAGES", 100),
		ItemMaxAttempts: getEnvInt("ITEM_MAX_ATTEMPTS", 3),

		ReportFormat: getEnv("REPORT_FORMAT", FormatText),
		ErrorLogFile: getEnv("ERROR_LOG_FILE", ""),

		PublishEnabled:       getEnvBool("PUBLISH_ENABLED", false),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "salecrawler"),
		RedisStreamCount:     getEnvInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 500),

		MemcacheAddr: getEnv("MEMCACHE_ADDR", ""),

		RunCooldown: time.Duration(getEnvInt("RUN_COOLDOWN_SECONDS", 0)) * time.Second,
		RunInterval: time.Duration(getEnvInt("RUN_INTERVAL_SECONDS", 0)) * time.Second,

		Environment: getEnv("SALECRAWLER_ENVIRONMENT", "development"),
	}
}

// validate is shared so struct metadata is parsed only once
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by the environment variable that sets them
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("env"); name != "" {
			return name
		}
		return field.Name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// Validate checks the configuration for values the run cannot work with
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !stderrors.As(err, &fieldErrs) {
			return errors.NewConfiguration("configuration could not be validated", err)
		}

		messages := make([]string, 0, len(fieldErrs))
		for _, e := range fieldErrs {
			messages = append(messages, formatFieldError(e))
		}
		return errors.NewConfiguration(strings.Join(messages, "; "), err)
	}

	if c.PublishEnabled && c.RedisStreamCount < 1 {
		return errors.NewConfiguration("REDIS_STREAM_COUNT must be at least 1 when publishing", nil)
	}
	return nil
}

func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return e.Field() + " must not be empty"
	case "url":
		return e.Field() + " is not a valid URL"
	case "oneof":
		return fmt.Sprintf("%s %q must be one of: %s", e.Field(), e.Value(), e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", e.Field(), e.Param())
	default:
		return fmt.Sprintf("%s failed '%s' validation", e.Field(), e.Tag())
	}
}

// IsProduction reports whether the app runs in the production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}
