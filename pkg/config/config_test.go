package config

import (
	"testing"
	"time"
)

func TestLoadParsingDefaults(t *testing.T) {
	cfg := Load()
	p := cfg.Parsing
	if p.ForceOCR || !p.EnableHybrid || p.ParallelPages != 4 {
		t.Fatalf("unexpected mode defaults: %+v", p)
	}
	if p.PageTimeout != 60*time.Second || p.MaxTotalTimeout != time.Hour {
		t.Fatalf("unexpected timeouts: %v %v", p.PageTimeout, p.MaxTotalTimeout)
	}
	if p.MaxPageRetries != 3 || p.TimeoutMultiplier != 3.0 || p.RenderDPI != 300 {
		t.Fatalf("unexpected scheduler defaults: %+v", p)
	}
	if cfg.OCR.MaxRetries != 2 || cfg.OCR.RetryDelay != time.Second {
		t.Fatalf("unexpected ocr defaults: %+v", cfg.OCR)
	}
	if cfg.Cache.TTL != 24*time.Hour {
		t.Fatalf("cache ttl = %v", cfg.Cache.TTL)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PARSING_PAGE_TIMEOUT_SECONDS", "90")
	t.Setenv("OCR_RETRY_DELAY", "250")
	t.Setenv("PARSING_FORCE_OCR", "true")
	t.Setenv("OCR_PROVIDERS", " openai , ,gemini")

	cfg := Load()
	if cfg.Parsing.PageTimeout != 90*time.Second {
		t.Fatalf("page timeout = %v", cfg.Parsing.PageTimeout)
	}
	if cfg.OCR.RetryDelay != 250*time.Millisecond {
		t.Fatalf("retry delay = %v", cfg.OCR.RetryDelay)
	}
	if !cfg.Parsing.ForceOCR {
		t.Fatal("force ocr not applied")
	}
	if got := cfg.OCR.Providers; len(got) != 2 || got[0] != "openai" || got[1] != "gemini" {
		t.Fatalf("providers = %v", got)
	}
}
