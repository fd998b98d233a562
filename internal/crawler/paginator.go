package crawler

import (
	"context"

	"sjsage522/salecrawler/config"
	"sjsage522/salecrawler/logger"
	"sjsage522/salecrawler/pkg/errors"
)

// StopReason tells why the paginator left the extracting state
type StopReason string

const (
	StopNextAbsent       StopReason = "next_control_absent"
	StopNextDisabled     StopReason = "next_control_disabled"
	StopPageLimit        StopReason = "page_limit"
	StopNavigationFailed StopReason = "navigation_failed"
	StopCancelled        StopReason = "cancelled"
)

// RunResult holds everything collected across the page sequence, in page order
type RunResult struct {
	Records  []ListingRecord
	Failures []ItemFailure
	Skipped  int
	Pages    int
	Reason   StopReason
}

// Exhausted reports whether the run ended because no further pages remain
func (r *RunResult) Exhausted() bool {
	return r.Reason == StopNextAbsent || r.Reason == StopNextDisabled
}

// Paginator walks the result pages and feeds each one to the extractor
type Paginator struct {
	extractor    *Extractor
	itemSelector string
	nextSelector string
	maxPages     int
	log          *logger.Logger
}

// NewPaginator creates a new paginator. maxPages of 0 means no page ceiling.
func NewPaginator(extractor *Extractor, selectors config.Selectors, maxPages int) *Paginator {
	return &Paginator{
		extractor:    extractor,
		itemSelector: selectors.ItemContainer,
		nextSelector: selectors.NextControl,
		maxPages:     maxPages,
		log:          logger.For("paginator"),
	}
}

// Run extracts the current page and keeps advancing through the next control
// until it is absent or disabled. A navigation error stops the run; the
// records collected so far are returned with it.
func (p *Paginator) Run(ctx context.Context, view PageView) (*RunResult, error) {
	result := &RunResult{}

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			result.Reason = StopCancelled
			return result, err
		}

		result.Pages = page
		p.extractPage(ctx, view, page, result)
		if err := ctx.Err(); err != nil {
			result.Reason = StopCancelled
			return result, err
		}

		control, found, err := view.FindControl(ctx, p.nextSelector)
		if err != nil {
			return p.abort(ctx, result, "find next control", err)
		}
		if !found {
			result.Reason = StopNextAbsent
			p.finished(result)
			return result, nil
		}

		disabled, err := control.IsDisabled()
		if err != nil {
			return p.abort(ctx, result, "check next control state", err)
		}
		if disabled {
			result.Reason = StopNextDisabled
			p.finished(result)
			return result, nil
		}

		if p.maxPages > 0 && page >= p.maxPages {
			result.Reason = StopPageLimit
			p.log.Warn().
				Int("max_pages", p.maxPages).
				Msg("Page ceiling reached while the next control was still enabled")
			return result, nil
		}

		if err := view.NavigateNext(ctx, control); err != nil {
			return p.abort(ctx, result, "advance to next page", err)
		}
		if err := view.AwaitPageSettled(ctx); err != nil {
			return p.abort(ctx, result, "wait for next page", err)
		}
	}
}

func (p *Paginator) extractPage(ctx context.Context, view PageView, page int, result *RunResult) {
	if err := view.WaitForSelector(ctx, p.itemSelector); err != nil {
		if ctx.Err() == nil {
			p.log.Warn().Int("page", page).Err(err).Msg("Item containers did not appear")
		}
		return
	}

	pageResult, err := p.extractor.ExtractPage(ctx, view, page)
	result.Records = append(result.Records, pageResult.Records...)
	result.Failures = append(result.Failures, pageResult.Failures...)
	result.Skipped += pageResult.Skipped
	if err != nil && ctx.Err() == nil {
		p.log.Warn().Int("page", page).Err(err).Msg("Could not read page items")
	}
}

func (p *Paginator) abort(ctx context.Context, result *RunResult, action string, err error) (*RunResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		result.Reason = StopCancelled
		return result, ctxErr
	}

	result.Reason = StopNavigationFailed
	navErr := errors.NewNavigation("paginator", action, err)
	p.log.Error().
		Int("page", result.Pages).
		Int("records", len(result.Records)).
		Err(navErr).
		Msg("Pagination stopped early")
	return result, navErr
}

func (p *Paginator) finished(result *RunResult) {
	p.log.Info().
		Int("pages", result.Pages).
		Int("records", len(result.Records)).
		Int("failed_items", len(result.Failures)).
		Str("reason", string(result.Reason)).
		Msg("Page set exhausted")
}
