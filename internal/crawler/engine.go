package crawler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/jersey-gallery/internal/metrics"
)

// Skip reasons reported to logs and metrics.
const (
	reasonFetch     = "fetch"
	reasonParse     = "parse"
	reasonNoImages  = "no_images"
	reasonDuplicate = "duplicate"
)

// Engine walks the listing pages in order, turns every album reference into a
// Jersey and checkpoints progress after each item and each page.
type Engine struct {
	cfg      Config
	fetcher  Fetcher
	parser   Parser
	resolver ImageResolver
	store    StateStore
	pause    PauseFunc
	logger   *zap.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithPause replaces the pacing function, mostly for tests.
func WithPause(p PauseFunc) Option {
	return func(e *Engine) {
		if p != nil {
			e.pause = p
		}
	}
}

// NewEngine wires the crawl collaborators together.
func NewEngine(
	cfg Config,
	fetcher Fetcher,
	parser Parser,
	resolver ImageResolver,
	store StateStore,
	logger *zap.Logger,
	opts ...Option,
) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fetcher == nil || parser == nil || resolver == nil || store == nil {
		return nil, errors.New("engine requires fetcher, parser, resolver and store")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		cfg:      cfg,
		fetcher:  fetcher,
		parser:   parser,
		resolver: resolver,
		store:    store,
		pause:    Pause,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run crawls from the stored checkpoint to the last configured page and
// returns the full jersey list. On cancellation the progress is saved and the
// context error is returned alongside the jerseys collected so far.
func (e *Engine) Run(ctx context.Context) (jerseys []Jersey, err error) {
	run := newRunState(e.store.Load(ctx), e.cfg.TotalPages)

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("crawl panicked, saving progress",
				zap.Any("panic", r),
				zap.Int("last_page", run.state.LastCompletedPage),
				zap.Int("jerseys", len(run.state.Jerseys)))
			e.save(context.WithoutCancel(ctx), run)
			jerseys = run.state.Jerseys
			err = fmt.Errorf("crawl aborted: %v", r)
		}
	}()

	e.logger.Info("crawl starting",
		zap.Int("start_page", run.startPage),
		zap.Int("total_pages", e.cfg.TotalPages),
		zap.Int("jerseys", len(run.state.Jerseys)),
		zap.String("resume_url", run.anchorURL))

	for page := run.startPage; page <= e.cfg.TotalPages; page++ {
		if err := e.crawlPage(ctx, run, page); err != nil {
			return e.stop(ctx, run, err)
		}
		if page < e.cfg.TotalPages {
			if err := e.pause(ctx, e.cfg.PageDelay); err != nil {
				return e.stop(ctx, run, err)
			}
		}
	}

	e.save(ctx, run)
	e.logger.Info("crawl complete",
		zap.Int("jerseys", len(run.state.Jerseys)),
		zap.Int("last_page", run.state.LastCompletedPage))
	return run.state.Jerseys, nil
}

func (e *Engine) stop(ctx context.Context, run *runState, cause error) ([]Jersey, error) {
	e.logger.Warn("crawl interrupted, saving progress",
		zap.Int("last_page", run.state.LastCompletedPage),
		zap.Int("jerseys", len(run.state.Jerseys)),
		zap.Error(cause))
	e.save(context.WithoutCancel(ctx), run)
	return run.state.Jerseys, cause
}

// crawlPage only returns an error when the run must stop.
func (e *Engine) crawlPage(ctx context.Context, run *runState, page int) error {
	logger := e.logger.With(zap.Int("page", page))
	pageURL := e.cfg.PageURL(page)

	refs, err := e.listPage(ctx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Error("listing page failed, moving on", zap.String("url", pageURL), zap.Error(err))
		metrics.ObservePage(metrics.PageFailed)
		run.completePage(page - 1)
		e.save(ctx, run)
		return nil
	}

	anchor := run.anchorURL
	refs, found := run.resumeRefs(page, refs)
	if !found {
		logger.Warn("resume url not on page, processing whole page", zap.String("resume_url", anchor))
	}
	if len(refs) == 0 {
		logger.Warn("no album references to process")
	}
	logger.Info("processing page", zap.Int("items", len(refs)))

	for i, ref := range refs {
		if run.has(ref.URL) {
			metrics.ObserveItemSkipped(reasonDuplicate)
			logger.Debug("album already stored", zap.String("url", ref.URL))
			continue
		}

		out := e.processItem(ctx, page, ref)
		switch out.kind {
		case outcomeAdded:
			run.append(out.jersey)
			metrics.ObserveJerseyAdded()
			logger.Info("jersey added",
				zap.String("title", out.jersey.Title),
				zap.String("url", out.jersey.URL),
				zap.Int("images", len(out.jersey.Images)))
			e.save(ctx, run)
		case outcomeSkipped:
			metrics.ObserveItemSkipped(out.reason)
			logger.Warn("album skipped",
				zap.String("url", ref.URL),
				zap.String("reason", out.reason),
				zap.Error(out.err))
		case outcomeFatal:
			return out.err
		}

		if i < len(refs)-1 {
			if err := e.pause(ctx, e.cfg.ItemDelay); err != nil {
				return err
			}
		}
	}

	run.completePage(page)
	metrics.ObservePage(metrics.PageOK)
	e.save(ctx, run)
	logger.Info("page complete", zap.Int("jerseys", len(run.state.Jerseys)))
	return nil
}

func (e *Engine) listPage(ctx context.Context, pageURL string) ([]AlbumRef, error) {
	resp, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return e.parser.ParseListing(resp.Body, pageURL)
}

func (e *Engine) processItem(ctx context.Context, page int, ref AlbumRef) itemOutcome {
	resp, err := e.fetcher.Fetch(ctx, ref.URL)
	if err != nil {
		if ctx.Err() != nil {
			return fatal(ctx.Err())
		}
		return skipped(reasonFetch, err)
	}

	item, err := e.parser.ParseItem(resp.Body, ref.ProvisionalTitle)
	if err != nil {
		return skipped(reasonParse, err)
	}

	images := e.resolver.Resolve(ctx, item.Document, ref.URL)
	if ctx.Err() != nil {
		return fatal(ctx.Err())
	}
	if len(images) == 0 {
		return skipped(reasonNoImages, ErrNoImages)
	}
	return added(NewJersey(item.Title, ref.URL, images, item.Description, page))
}

// save logs and drops checkpoint failures so the crawl keeps going.
func (e *Engine) save(ctx context.Context, run *runState) {
	if err := e.store.Save(ctx, run.state); err != nil {
		e.logger.Error("checkpoint failed",
			zap.Int("last_page", run.state.LastCompletedPage),
			zap.Error(err))
	}
}
