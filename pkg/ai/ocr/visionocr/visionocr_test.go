package visionocr_test

import (
	"context"
	"strings"
	"testing"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr/visionocr"
	"github.com/Abraxas-365/hybridparse/pkg/errx"
)

const goodReply = "```json\n" + `{"pages":[{"page_no":1,"layout":[{"element_id":"e1","type":"title","text":"Hello {world}","confidence":0.9}]}]}` + "\n```"

const truncatedReply = `{"pages":[{"page_no":1,"layout":[{"element_id":"e1","type":"text","text":"cut`

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		ok    bool
	}{
		{"fenced", goodReply, true},
		{"prose around", `Here you go: {"pages":[]} hope it helps`, true},
		{"braces inside strings", `{"text":"a } b ] c"}`, true},
		{"escaped quote", `{"text":"say \"}\" now"}`, true},
		{"truncated", truncatedReply, false},
		{"empty", "", false},
		{"no object", "sorry, I cannot", false},
		{"balanced but invalid", `{"a":1,}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := visionocr.Validate(tt.reply)
			if (err == nil) != tt.ok {
				t.Fatalf("Validate(%q) = %v, want ok=%v", tt.reply, err, tt.ok)
			}
		})
	}
}

type scriptedCompleter struct {
	replies []string
	prompts []string
}

func (s *scriptedCompleter) Complete(_ context.Context, req visionocr.Request) (string, error) {
	s.prompts = append(s.prompts, req.Prompt)
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

var img = ocr.Image{Data: []byte("png"), MimeType: "image/png", PageNo: 3}

func TestRecognizeFullPrompt(t *testing.T) {
	c := &scriptedCompleter{replies: []string{goodReply}}
	p := visionocr.New("fake", "vision-1", c)

	doc, err := p.Recognize(context.Background(), img)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if doc.ModelInfo != "vision-1" || len(c.prompts) != 1 {
		t.Fatalf("model=%q calls=%d", doc.ModelInfo, len(c.prompts))
	}
	if doc.Pages[0].Layout[0].Text != "Hello {world}" {
		t.Fatalf("layout = %+v", doc.Pages[0].Layout)
	}
}

func TestRecognizeFallsBackToSimplified(t *testing.T) {
	c := &scriptedCompleter{replies: []string{truncatedReply, goodReply}}
	p := visionocr.New("fake", "vision-1", c)

	doc, err := p.Recognize(context.Background(), img)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if doc.ModelInfo != "vision-1 (simplified)" {
		t.Fatalf("model info = %q", doc.ModelInfo)
	}
	if len(c.prompts) != 2 || c.prompts[1] != visionocr.SimplifiedPrompt {
		t.Fatal("expected a second call with the simplified prompt")
	}
}

func TestRecognizeFailsAfterSimplified(t *testing.T) {
	c := &scriptedCompleter{replies: []string{truncatedReply, truncatedReply}}
	p := visionocr.New("fake", "vision-1", c)

	_, err := p.Recognize(context.Background(), img)
	if !errx.HasCode(err, ocr.ErrInvalidResponse) || !errx.IsRetryable(err) {
		t.Fatalf("err = %v", err)
	}
	if len(c.prompts) != 2 {
		t.Fatalf("calls = %d, want exactly 2", len(c.prompts))
	}
	if !strings.Contains(p.Name(), "vision-1") {
		t.Fatalf("name = %q", p.Name())
	}
}
