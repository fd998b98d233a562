package crawler

import (
	"context"
	"strings"

	"sjsage522/salecrawler/config"
	"sjsage522/salecrawler/helpers"
	"sjsage522/salecrawler/logger"
	"sjsage522/salecrawler/pkg/errors"
)

// DefaultMaxAttempts is how often one item is read before it is dropped
const DefaultMaxAttempts = 3

// Extractor turns the discounted items of the current page into ListingRecords
type Extractor struct {
	selectors   config.Selectors
	linkBase    string
	maxAttempts int
	log         *logger.Logger
}

// NewExtractor creates a new extractor
func NewExtractor(selectors config.Selectors, linkBase string, maxAttempts int) *Extractor {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Extractor{
		selectors:   selectors,
		linkBase:    linkBase,
		maxAttempts: maxAttempts,
		log:         logger.For("extractor"),
	}
}

// ExtractPage processes every item container on the current page in order.
// Item failures end up in the result; only enumeration failures and
// cancellation are returned as errors.
func (e *Extractor) ExtractPage(ctx context.Context, view PageView, page int) (PageResult, error) {
	var result PageResult

	items, err := view.FindAll(ctx, e.selectors.ItemContainer)
	if err != nil {
		return result, errors.NewTransient("extractor", "enumerate item containers", err)
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		itemResult := e.ExtractItem(ctx, item)
		switch itemResult.Outcome {
		case OutcomeRecord:
			result.Records = append(result.Records, itemResult.Record)
		case OutcomeSkipped:
			result.Skipped++
		case OutcomeFailed:
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			e.log.Warn().
				Int("page", page).
				Int("index", i).
				Int("attempts", itemResult.Attempts).
				Err(itemResult.Err).
				Msg("Dropping item after failed reads")
			result.Failures = append(result.Failures, ItemFailure{
				Page:     page,
				Index:    i,
				Attempts: itemResult.Attempts,
				Err:      itemResult.Err,
			})
		}
	}

	e.log.Debug().
		Int("page", page).
		Int("items", len(items)).
		Int("records", len(result.Records)).
		Int("skipped", result.Skipped).
		Int("failed", len(result.Failures)).
		Msg("Page extracted")

	return result, nil
}

// ExtractItem reads one item container, retrying transient failures
// immediately until the attempt budget is spent
func (e *Extractor) ExtractItem(ctx context.Context, item ItemHandle) ItemResult {
	var lastErr error
	attempts := 0

	for attempts < e.maxAttempts {
		if err := ctx.Err(); err != nil {
			return ItemResult{Outcome: OutcomeFailed, Attempts: attempts, Err: err}
		}
		attempts++

		record, onSale, err := e.readItem(item)
		if err == nil {
			if !onSale {
				return ItemResult{Outcome: OutcomeSkipped, Attempts: attempts}
			}
			return ItemResult{Outcome: OutcomeRecord, Record: record, Attempts: attempts}
		}

		lastErr = err
		if !errors.IsRetryable(err) {
			break
		}
		e.log.Debug().Int("attempt", attempts).Err(err).Msg("Item read failed")
	}

	return ItemResult{Outcome: OutcomeFailed, Attempts: attempts, Err: lastErr}
}

// readItem returns onSale=false for items without a visible discount marker
func (e *Extractor) readItem(item ItemHandle) (ListingRecord, bool, error) {
	onSale, err := item.HasVisibleChild(e.selectors.DiscountMarker)
	if err != nil {
		return ListingRecord{}, false, errors.NewTransient("extractor", "check discount marker", err)
	}
	if !onSale {
		return ListingRecord{}, false, nil
	}

	originalPrice, err := item.Text(e.selectors.DiscountMarker)
	if err != nil {
		return ListingRecord{}, false, errors.NewTransient("extractor", "read original price", err)
	}

	discountedPrice, err := item.Text(e.selectors.DiscountedPrice)
	if err != nil {
		return ListingRecord{}, false, errors.NewTransient("extractor", "read discounted price", err)
	}

	discountLabel, err := item.Text(e.selectors.DiscountPercentage)
	if err != nil {
		return ListingRecord{}, false, errors.NewTransient("extractor", "read discount label", err)
	}

	href, found, err := item.Attribute(e.selectors.Link, "href")
	if err != nil {
		return ListingRecord{}, false, errors.NewTransient("extractor", "read item link", err)
	}
	href = strings.TrimSpace(href)
	if !found || href == "" {
		return ListingRecord{}, false, errors.NewParsing("extractor", "item link has no href", nil)
	}

	link, err := helpers.ResolveURL(e.linkBase, href)
	if err != nil {
		return ListingRecord{}, false, errors.NewParsing("extractor", "resolve item link", err)
	}

	return NewListingRecord(
		strings.TrimSpace(originalPrice),
		strings.TrimSpace(discountedPrice),
		strings.TrimSpace(discountLabel),
		link,
	), true, nil
}
