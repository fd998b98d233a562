package worker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"sjsage522/salecrawler/helpers"
	"sjsage522/salecrawler/internal/crawler"
	"sjsage522/salecrawler/internal/report"
	"sjsage522/salecrawler/logger"
	"sjsage522/salecrawler/services/cache"
	"sjsage522/salecrawler/services/publisher"
)

// messageKey is the stream field holding a published listing
const messageKey = "b64_listing"

// Options holds the collaborators of a Worker
type Options struct {
	NewSession   crawler.SessionFactory
	Paginator    *crawler.Paginator
	Filter       crawler.Filter
	CatalogURL   string
	ReportFormat string
	Output       io.Writer
	Publisher    publisher.Publisher
	Cooldown     *cache.Cooldown
	Logger       helpers.LoggerInterface
	RunInterval  time.Duration
}

// Summary describes one finished run
type Summary struct {
	Records  []crawler.ListingRecord
	Pages    int
	Skipped  int
	Failures []crawler.ItemFailure
	Reason   crawler.StopReason
	Elapsed  time.Duration
}

// Worker handles the scraping, reporting and publishing process
type Worker struct {
	newSession  crawler.SessionFactory
	paginator   *crawler.Paginator
	filter      crawler.Filter
	catalogURL  string
	format      string
	out         io.Writer
	publisher   publisher.Publisher
	cooldown    *cache.Cooldown
	logger      helpers.LoggerInterface
	runInterval time.Duration
	log         *logger.Logger
}

// NewWorker creates a new worker
func NewWorker(opts Options) *Worker {
	pub := opts.Publisher
	if pub == nil {
		pub = publisher.NopPublisher{}
	}
	failureLog := opts.Logger
	if failureLog == nil {
		failureLog = helpers.NewLogger("")
	}

	return &Worker{
		newSession:  opts.NewSession,
		paginator:   opts.Paginator,
		filter:      opts.Filter,
		catalogURL:  opts.CatalogURL,
		format:      opts.ReportFormat,
		out:         opts.Output,
		publisher:   pub,
		cooldown:    opts.Cooldown,
		logger:      failureLog,
		runInterval: opts.RunInterval,
		log:         logger.For("worker").WithFields(logger.Fields{"brand": opts.Filter.Brand}),
	}
}

// Start runs once, or repeatedly every run interval until ctx is cancelled
func (w *Worker) Start(ctx context.Context) error {
	if w.runInterval <= 0 {
		_, err := w.RunOnce(ctx)
		return err
	}

	for {
		if _, err := w.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if !stderrors.Is(err, cache.ErrCooldown) {
				w.logger.LogError("Run", err)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.runInterval):
		}
	}
}

// RunOnce opens a session, walks every result page, ranks and reports the listings.
// A pagination failure still reports and publishes what was collected, and is returned afterwards.
func (w *Worker) RunOnce(ctx context.Context) (*Summary, error) {
	start := time.Now()

	if err := w.cooldown.Check(w.filter.Brand); err != nil {
		if stderrors.Is(err, cache.ErrCooldown) {
			w.log.Info().Msg("Skipping run, brand is cooling down")
			return nil, err
		}
		w.log.Warn().Err(err).Msg("Cooldown check failed, running anyway")
	}

	session, err := w.newSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	presenter := report.NewPresenter(w.out, w.format, w.filter, session)
	defer presenter.Release()

	if err := session.Open(ctx, w.catalogURL); err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	if err := session.ApplyFilters(ctx, w.filter); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		w.log.Warn().Err(err).Msg("Applying filters failed, scraping the current page set")
	}

	result, runErr := w.paginator.Run(ctx, session)
	if runErr != nil && ctx.Err() != nil {
		return nil, runErr
	}
	if runErr != nil {
		w.log.Warn().Int("records", len(result.Records)).Msg("Reporting partial results")
	}

	ranked := crawler.Rank(result.Records)
	if err := presenter.Present(ranked); err != nil {
		return nil, stderrors.Join(runErr, fmt.Errorf("present report: %w", err))
	}

	w.publish(ctx, ranked)

	for _, failure := range result.Failures {
		w.logger.LogError(fmt.Sprintf("page %d item %d", failure.Page, failure.Index), failure.Err)
	}

	if runErr == nil {
		if err := w.cooldown.Mark(w.filter.Brand); err != nil {
			w.logger.LogError("Cooldown", err)
		}
	}

	summary := &Summary{
		Records:  ranked,
		Pages:    result.Pages,
		Skipped:  result.Skipped,
		Failures: result.Failures,
		Reason:   result.Reason,
		Elapsed:  time.Since(start),
	}

	w.log.Info().
		Int("records", len(summary.Records)).
		Int("pages", summary.Pages).
		Int("skipped", summary.Skipped).
		Int("failures", len(summary.Failures)).
		Str("reason", string(summary.Reason)).
		Dur("elapsed", summary.Elapsed).
		Msg("Run finished")

	return summary, runErr
}

// publish sends every ranked listing to the publisher and trims the streams
func (w *Worker) publish(ctx context.Context, ranked []crawler.ListingRecord) {
	if _, ok := w.publisher.(publisher.NopPublisher); ok || len(ranked) == 0 {
		return
	}

	for i, record := range ranked {
		data, err := json.Marshal(record)
		if err != nil {
			w.logger.LogError("Publisher", err)
			return
		}

		if err := w.publisher.Publish(ctx, messageKey, data); err != nil {
			w.logger.LogError("Publisher", err)
			if ctx.Err() != nil {
				return
			}
			continue
		}

		// Log only the first listing
		if i == 0 && logger.IsDebugEnabled() {
			w.logger.LogInfo("Published listing: %s", string(data))
		}
	}

	if err := w.publisher.TrimStreams(ctx); err != nil {
		w.logger.LogError("StreamTrimming", err)
	}
}
