package ocr_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
	"github.com/Abraxas-365/hybridparse/pkg/errx"
)

type fakeProvider struct {
	name      string
	priority  int
	available bool
	errs      []error
	calls     int
}

func (f *fakeProvider) Name() string     { return f.name }
func (f *fakeProvider) Priority() int    { return f.priority }
func (f *fakeProvider) Available() bool  { return f.available }

func (f *fakeProvider) Recognize(_ context.Context, img ocr.Image, _ ...ocr.Option) (*ocr.Document, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &ocr.Document{Pages: []ocr.Page{{PageNo: 1, Layout: []ocr.LayoutElement{{Type: "text", Text: f.name}}}}}, nil
}

var image = ocr.Image{Data: []byte{0x89, 'P', 'N', 'G'}, MimeType: "image/png"}

func TestClientTriesProvidersByPriority(t *testing.T) {
	low := &fakeProvider{name: "low", priority: 10, available: true}
	high := &fakeProvider{name: "high", priority: 1, available: true}

	doc, err := ocr.NewClient([]ocr.Provider{low, high}, ocr.WithRetryDelay(0)).Recognize(context.Background(), image)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if doc.Pages[0].Layout[0].Text != "high" || low.calls != 0 {
		t.Fatalf("expected high priority provider first, got %q (low calls=%d)", doc.Pages[0].Layout[0].Text, low.calls)
	}
	if doc.ModelInfo != "high" {
		t.Fatalf("model info = %q", doc.ModelInfo)
	}
}

func TestClientSkipsUnavailable(t *testing.T) {
	off := &fakeProvider{name: "off", priority: 0, available: false}
	on := &fakeProvider{name: "on", priority: 5, available: true}

	if _, err := ocr.NewClient([]ocr.Provider{off, on}).Recognize(context.Background(), image); err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if off.calls != 0 {
		t.Fatal("unavailable provider was called")
	}
}

func TestClientRetriesRetryableThenSucceeds(t *testing.T) {
	p := &fakeProvider{name: "flaky", available: true, errs: []error{errx.External("503").Retryable()}}

	_, err := ocr.NewClient([]ocr.Provider{p}, ocr.WithMaxRetries(2), ocr.WithRetryDelay(time.Millisecond)).
		Recognize(context.Background(), image)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if p.calls != 2 {
		t.Fatalf("calls = %d, want 2", p.calls)
	}
}

func TestClientNonRetryableFailsOverImmediately(t *testing.T) {
	bad := &fakeProvider{name: "bad", priority: 1, available: true, errs: []error{errx.Unauthorized("bad key")}}
	good := &fakeProvider{name: "good", priority: 2, available: true}

	doc, err := ocr.NewClient([]ocr.Provider{bad, good}, ocr.WithMaxRetries(3), ocr.WithRetryDelay(0)).
		Recognize(context.Background(), image)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if bad.calls != 1 {
		t.Fatalf("non-retryable provider called %d times", bad.calls)
	}
	if doc.Pages[0].Layout[0].Text != "good" {
		t.Fatal("expected failover to second provider")
	}
}

func TestClientAggregatesLastCause(t *testing.T) {
	cause := errors.New("connection reset")
	a := &fakeProvider{name: "a", priority: 1, available: true, errs: []error{cause, cause}}
	b := &fakeProvider{name: "b", priority: 2, available: true, errs: []error{cause, cause}}

	_, err := ocr.NewClient([]ocr.Provider{a, b}, ocr.WithRetryDelay(0)).Recognize(context.Background(), image)
	if !errx.HasCode(err, ocr.ErrAllProvidersFailed) {
		t.Fatalf("err = %v, want all providers failed", err)
	}
	if !errors.Is(err, cause) {
		t.Fatal("aggregate error should wrap the last cause")
	}
	if a.calls != 2 || b.calls != 2 {
		t.Fatalf("calls a=%d b=%d, want 2 each", a.calls, b.calls)
	}
}

func TestClientNoProviderFailsFast(t *testing.T) {
	_, err := ocr.NewClient(nil).Recognize(context.Background(), image)
	if !errx.HasCode(err, ocr.ErrNoProviderAvailable) {
		t.Fatalf("err = %v", err)
	}
	if errx.IsRetryable(err) {
		t.Fatal("no-provider error must not be retryable")
	}
}
