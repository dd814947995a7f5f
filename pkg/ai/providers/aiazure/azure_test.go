package aiazure_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr/visionocr"
	"github.com/Abraxas-365/hybridparse/pkg/ai/providers/aiazure"
	"github.com/Abraxas-365/hybridparse/pkg/config"
	"github.com/Abraxas-365/hybridparse/pkg/errx"
	"github.com/openai/openai-go/v3/option"
)

func TestCompleteRoutesToDeployment(t *testing.T) {
	var path, key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("Api-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","created":1,"model":"gpt-4o",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	c := aiazure.NewCompleter(srv.URL, "azure-key", aiazure.WithRequestOptions(option.WithMaxRetries(0)))
	got, err := c.Complete(context.Background(), visionocr.Request{
		Model:  "vision-deploy",
		Prompt: "read",
		Image:  ocr.NewImage([]byte("png"), "image/png"),
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "ok" {
		t.Fatalf("reply = %q", got)
	}
	if !strings.Contains(path, "vision-deploy") {
		t.Fatalf("deployment not in path %q", path)
	}
	if key != "azure-key" {
		t.Fatalf("api-key header = %q", key)
	}
}

func TestCompleteValidatesConfiguration(t *testing.T) {
	t.Setenv("AZURE_OPENAI_API_KEY", "")
	req := visionocr.Request{Model: "d", Image: ocr.NewImage([]byte("x"), "image/png")}

	if _, err := aiazure.NewCompleter("", "k").Complete(context.Background(), req); !errx.HasCode(err, aiazure.ErrMissingEndpoint) {
		t.Fatalf("expected missing endpoint, got %v", err)
	}
	if _, err := aiazure.NewCompleter("https://x.openai.azure.com", "").Complete(context.Background(), req); !errx.HasCode(err, aiazure.ErrMissingCredentials) {
		t.Fatalf("expected missing credentials, got %v", err)
	}
	req.Model = ""
	if _, err := aiazure.NewCompleter("https://x.openai.azure.com", "k").Complete(context.Background(), req); !errx.HasCode(err, aiazure.ErrMissingDeployment) {
		t.Fatalf("expected missing deployment, got %v", err)
	}
}

func TestNewUnavailableWithoutEndpoint(t *testing.T) {
	t.Setenv("AZURE_OPENAI_API_KEY", "")
	if aiazure.New(config.AzureConfig{APIKey: "k"}).Available() {
		t.Fatal("expected unavailable provider")
	}
	if !aiazure.New(config.AzureConfig{Endpoint: "https://x.openai.azure.com", APIKey: "k", Deployment: "d"}).Available() {
		t.Fatal("expected available provider")
	}
}

func TestParseAzureErrorRetryability(t *testing.T) {
	if !errx.IsRetryable(aiazure.ParseAzureError(io.ErrUnexpectedEOF)) {
		t.Fatal("transport failures should be retryable")
	}
	if errx.IsRetryable(aiazure.ParseAzureError(errString("401 Unauthorized"))) {
		t.Fatal("auth failures should not be retryable")
	}
	if !errx.IsRetryable(aiazure.ParseAzureError(context.DeadlineExceeded)) {
		t.Fatal("timeouts should be retryable")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
