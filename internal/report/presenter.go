package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"sjsage522/salecrawler/config"
	"sjsage522/salecrawler/internal/crawler"
	"sjsage522/salecrawler/logger"

	"github.com/jedib0t/go-pretty/v6/table"
)

const separator = "*****************************"

// noItemsMessage is reported when a run collects no discounted listings
const noItemsMessage = "No items found for this filter"

// Presenter renders ranked listings and releases the session that produced them
type Presenter struct {
	out      io.Writer
	format   string
	filter   crawler.Filter
	resource io.Closer

	once       sync.Once
	releaseErr error
	log        *logger.Logger
}

// NewPresenter creates a presenter writing to out. resource is closed exactly once,
// by Present or by an earlier Release, and may be nil.
func NewPresenter(out io.Writer, format string, filter crawler.Filter, resource io.Closer) *Presenter {
	return &Presenter{
		out:      out,
		format:   format,
		filter:   filter,
		resource: resource,
		log:      logger.For("report"),
	}
}

// Present renders the records, then releases the held resource
func (p *Presenter) Present(records []crawler.ListingRecord) error {
	defer p.Release()

	if len(records) == 0 {
		return p.renderEmpty()
	}

	switch p.format {
	case config.FormatTable:
		return p.renderTable(records)
	case config.FormatJSON:
		return p.renderJSON(records)
	default:
		return p.renderText(records)
	}
}

// Release closes the held resource. Calls after the first return the first result.
func (p *Presenter) Release() error {
	p.once.Do(func() {
		if p.resource == nil {
			return
		}
		if p.releaseErr = p.resource.Close(); p.releaseErr != nil {
			p.log.Warn().Err(p.releaseErr).Msg("Failed to release session")
		}
	})
	return p.releaseErr
}

func (p *Presenter) renderEmpty() error {
	if p.format == config.FormatJSON {
		return p.writeJSON([]crawler.ListingRecord{}, noItemsMessage)
	}
	_, err := fmt.Fprintf(p.out, "%s (brand: %s)\n", noItemsMessage, p.filter.Brand)
	return err
}

func (p *Presenter) renderText(records []crawler.ListingRecord) error {
	var b strings.Builder
	fmt.Fprintf(&b, "DISCOUNTS FOR BRAND: %s\n", p.filter.Brand)
	b.WriteString(separator + "\n")
	for _, r := range records {
		fmt.Fprintf(&b, "Discounted Price: %s\n", r.DiscountedPrice)
		fmt.Fprintf(&b, "Original Price: %s\n", r.OriginalPrice)
		fmt.Fprintf(&b, "Discount: %s\n", r.DiscountLabel)
		fmt.Fprintf(&b, "Link: %s\n", r.Link)
		b.WriteString(separator + "\n")
	}
	fmt.Fprintf(&b, "Total number of %s: %d\n", p.itemNoun(), len(records))

	_, err := io.WriteString(p.out, b.String())
	return err
}

func (p *Presenter) renderTable(records []crawler.ListingRecord) error {
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("DISCOUNTS FOR BRAND: " + p.filter.Brand)
	t.AppendHeader(table.Row{"#", "Discount", "Discounted Price", "Original Price", "Link"})
	for i, r := range records {
		t.AppendRow(table.Row{i + 1, r.DiscountLabel, r.DiscountedPrice, r.OriginalPrice, r.Link})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", len(records)})
	t.Render()
	return nil
}

func (p *Presenter) renderJSON(records []crawler.ListingRecord) error {
	return p.writeJSON(records, "")
}

func (p *Presenter) writeJSON(records []crawler.ListingRecord, message string) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Brand   string                  `json:"brand"`
		Count   int                     `json:"count"`
		Items   []crawler.ListingRecord `json:"items"`
		Message string                  `json:"message,omitempty"`
	}{
		Brand:   p.filter.Brand,
		Count:   len(records),
		Items:   records,
		Message: message,
	})
}

func (p *Presenter) itemNoun() string {
	if p.filter.ProductType == "" {
		return "items"
	}
	return p.filter.ProductType
}
