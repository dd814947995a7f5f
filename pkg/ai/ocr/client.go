package ocr

import (
	"context"
	"slices"
	"time"

	"github.com/Abraxas-365/hybridparse/pkg/asyncx"
	"github.com/Abraxas-365/hybridparse/pkg/errx"
	"github.com/Abraxas-365/hybridparse/pkg/logx"
)

// Client fronts a prioritised list of providers.
type Client struct {
	providers  []Provider
	maxRetries int
	retryDelay time.Duration
}

type ClientOption func(*Client)

// WithMaxRetries sets the attempts per provider (default 2).
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryDelay sets the fixed delay between attempts on one provider (default 1s).
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		if d >= 0 {
			c.retryDelay = d
		}
	}
}

// NewClient sorts providers by ascending priority. Ties keep input order.
func NewClient(providers []Provider, opts ...ClientOption) *Client {
	sorted := slices.Clone(providers)
	slices.SortStableFunc(sorted, func(a, b Provider) int { return a.Priority() - b.Priority() })

	c := &Client{
		providers:  sorted,
		maxRetries: 2,
		retryDelay: time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Providers returns the currently available providers in try order.
func (c *Client) Providers() []Provider {
	var out []Provider
	for _, p := range c.providers {
		if p.Available() {
			out = append(out, p)
		}
	}
	return out
}

func (c *Client) Available() bool {
	return len(c.Providers()) > 0
}

// Recognize runs img through the providers. Each provider is attempted up
// to maxRetries times while its errors are retryable; a non-retryable
// error moves straight to the next provider. When every provider fails the
// last cause is wrapped in ErrAllProvidersFailed.
func (c *Client) Recognize(ctx context.Context, img Image, opts ...Option) (*Document, error) {
	if len(img.Data) == 0 {
		return nil, ErrRegistry.New(ErrEmptyImage)
	}

	providers := c.Providers()
	if len(providers) == 0 {
		return nil, ErrRegistry.New(ErrNoProviderAvailable).NonRetryable()
	}

	var lastErr error
	for _, p := range providers {
		log := logx.WithFields(logx.Fields{"provider": p.Name(), "page": img.PageNo})

		doc, err := asyncx.Retry(ctx, c.maxRetries, c.retryDelay, errx.IsRetryable,
			func(ctx context.Context, attempt int) (*Document, error) {
				doc, err := p.Recognize(ctx, img, opts...)
				if err == nil && (doc == nil || len(doc.Pages) == 0) {
					err = ErrRegistry.New(ErrEmptyResult).WithDetail("provider", p.Name())
				}
				if err != nil {
					log.WithField("attempt", attempt).WithError(err).Warn("ocr attempt failed")
				}
				return doc, err
			})
		if err == nil {
			if doc.ModelInfo == "" {
				doc.ModelInfo = p.Name()
			}
			return doc, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	return nil, ErrRegistry.NewWithCause(ErrAllProvidersFailed, lastErr).
		WithDetail("providers", len(providers))
}
