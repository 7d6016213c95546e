package processor

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kommuneai/crawler/internal/domain"
	"github.com/kommuneai/crawler/internal/logger"
)

// Link validation bounds. Validation HEAD requests must not themselves
// overwhelm target sites, so they are rate limited and capped in parallelism
// independently of the crawl settings.
const (
	defaultValidationTimeout = 10 * time.Second
	defaultValidationRate    = rate.Limit(5)
	defaultValidationBurst   = 1
)

// LinkValidator marks form and link URLs as reachable or not via HEAD
// requests. Validation is best-effort: a network failure marks the URL
// invalid and never fails the stage.
type LinkValidator struct {
	client      *http.Client
	limiter     *rate.Limiter
	concurrency int
	logger      logger.Interface
}

// NewLinkValidator creates a validator with the given parallelism cap.
func NewLinkValidator(concurrency int, log logger.Interface) *LinkValidator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &LinkValidator{
		client:      &http.Client{Timeout: defaultValidationTimeout},
		limiter:     rate.NewLimiter(defaultValidationRate, defaultValidationBurst),
		concurrency: concurrency,
		logger:      log.WithComponent("link_validator"),
	}
}

// ValidateAll sets the Valid flag on every form and link of every record, in
// place. The only error returned is context cancellation.
func (v *LinkValidator) ValidateAll(ctx context.Context, processed map[string][]domain.Record) error {
	v.logger.Info("Validating links")

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(v.concurrency)

	total := 0
	for agent := range processed {
		records := processed[agent]
		for i := range records {
			for j := range records[i].Forms {
				form := &records[i].Forms[j]
				if form.URL == "" {
					continue
				}
				total++
				group.Go(v.validateInto(groupCtx, form.URL, &form.Valid))
			}
			for j := range records[i].Links {
				link := &records[i].Links[j]
				if link.URL == "" {
					continue
				}
				total++
				group.Go(v.validateInto(groupCtx, link.URL, &link.Valid))
			}
		}
	}

	err := group.Wait()
	v.logger.Info("Link validation finished", "urls", total)
	return err
}

// validateInto returns a task that writes the validation result for one URL.
// Each task owns its target pointer, so no locking is needed.
func (v *LinkValidator) validateInto(ctx context.Context, url string, target **bool) func() error {
	return func() error {
		if err := v.limiter.Wait(ctx); err != nil {
			return err
		}
		valid := v.validateURL(ctx, url)
		*target = &valid
		return nil
	}
}

// validateURL issues one HEAD request. Any error or HTTP error status counts
// as invalid.
func (v *LinkValidator) validateURL(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, http.NoBody)
	if err != nil {
		return false
	}

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Debug("Link validation failed", "url", url, "error", err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < http.StatusBadRequest
}
