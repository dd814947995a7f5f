package parsingapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Abraxas-365/hybridparse/pkg/errx"
	"github.com/Abraxas-365/hybridparse/pkg/parsing"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/parsecache"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/parsingapi"
	"github.com/gofiber/fiber/v2"
)

type fakeParser struct {
	got parsing.Request
}

func (f *fakeParser) Parse(_ context.Context, req parsing.Request) (*parsing.Result, error) {
	f.got = req
	if req.Path == "missing.pdf" {
		return nil, parsing.ErrRegistry.New(parsing.ErrSourceNotFound)
	}
	return &parsing.Result{
		FinalText: "hello",
		Method:    parsing.MethodTextExtraction,
		Metadata:  map[string]any{"parsingMode": "SIMPLE"},
	}, nil
}

func newApp(cache parsingapi.Cache) (*fiber.App, *fakeParser) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *errx.Error
			if errors.As(err, &e) {
				return c.Status(e.HTTPStatus).JSON(e.ToHTTPResponse())
			}
			return c.SendStatus(http.StatusInternalServerError)
		},
	})
	p := &fakeParser{}
	parsingapi.NewHandlers(p, nil, cache).RegisterRoutes(app.Group("/api/v1"), nil)
	return app, p
}

func send(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestParseRoute(t *testing.T) {
	app, p := newApp(nil)

	status, body := send(t, app, http.MethodPost, "/api/v1/parse", `{"path":"a.pdf","mode":"simple"}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d body = %v", status, body)
	}
	if p.got.Mode != parsing.ModeSimple || p.got.Path != "a.pdf" {
		t.Fatalf("request = %+v", p.got)
	}
	if body["final_text"] != "hello" || body["parsing_method"] != "text_extraction" {
		t.Fatalf("body = %v", body)
	}

	if status, _ := send(t, app, http.MethodPost, "/api/v1/parse", `{"mode":"ocr"}`); status != http.StatusBadRequest {
		t.Fatalf("missing path status = %d", status)
	}
	if status, _ := send(t, app, http.MethodPost, "/api/v1/parse", `{"path":"missing.pdf"}`); status != http.StatusNotFound {
		t.Fatalf("missing source status = %d", status)
	}
}

func TestDisabledFeaturesAnswer503(t *testing.T) {
	app, _ := newApp(nil)

	if status, _ := send(t, app, http.MethodPost, "/api/v1/parse/jobs", `{"path":"a.pdf"}`); status != http.StatusServiceUnavailable {
		t.Fatalf("jobs status = %d", status)
	}
	if status, _ := send(t, app, http.MethodGet, "/api/v1/cache/stats", ""); status != http.StatusServiceUnavailable {
		t.Fatalf("cache status = %d", status)
	}
}

func TestCacheRoutes(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := parsecache.New(parsecache.NewMemoryStore(), parsecache.WithClock(func() time.Time { return now }))
	if err := cache.Begin(context.Background(), "fp1", 3); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	app, _ := newApp(cache)

	status, body := send(t, app, http.MethodGet, "/api/v1/cache/stats", "")
	if status != http.StatusOK || body["documents"] != float64(1) {
		t.Fatalf("stats = %d %v", status, body)
	}

	status, body = send(t, app, http.MethodGet, "/api/v1/cache/fp1", "")
	if status != http.StatusOK {
		t.Fatalf("progress status = %d", status)
	}
	progress, _ := body["progress"].(map[string]any)
	if progress["total_pages"] != float64(3) {
		t.Fatalf("progress = %v", body)
	}

	if status, _ := send(t, app, http.MethodDelete, "/api/v1/cache/fp1", ""); status != http.StatusNoContent {
		t.Fatalf("delete status = %d", status)
	}
	if status, _ := send(t, app, http.MethodGet, "/api/v1/cache/fp1", ""); status != http.StatusNotFound {
		t.Fatalf("after delete status = %d", status)
	}

	status, body = send(t, app, http.MethodPost, "/api/v1/cache/cleanup", "")
	if status != http.StatusOK || body["removed"] != float64(0) {
		t.Fatalf("cleanup = %d %v", status, body)
	}
}
