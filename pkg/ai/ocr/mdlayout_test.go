package ocr_test

import (
	"testing"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
)

const pageMarkdown = `# Invoice 42

Issued to ACME Corp.

| Item | Qty | Price |
|------|-----|-------|
| Bolt | 10  | 1.50  |
| Nut  | 20  | 0.25  |

- paid
- shipped

![logo](img-0.jpeg)

$$
x^2 + y^2
$$
`

func TestElementsFromMarkdown(t *testing.T) {
	els := ocr.ElementsFromMarkdown(pageMarkdown)

	wantTypes := []string{"title", "text", "table", "list", "image", "formula"}
	if len(els) != len(wantTypes) {
		t.Fatalf("got %d elements: %+v", len(els), els)
	}
	for i, want := range wantTypes {
		if els[i].Type != want {
			t.Errorf("element %d type = %q, want %q", i, els[i].Type, want)
		}
		if els[i].ElementID == "" {
			t.Errorf("element %d has no id", i)
		}
	}

	title := els[0]
	if title.Text != "Invoice 42" || title.EffectiveHeadingLevel() != 1 {
		t.Fatalf("title = %+v", title)
	}

	table := els[2].TableInfo
	if table == nil || table.RowCount != 2 || table.ColumnCount != 3 {
		t.Fatalf("table info = %+v", table)
	}
	if table.Headers[0] != "Item" || table.Rows[1][0] != "Nut" {
		t.Fatalf("table cells = %+v", table)
	}

	if els[4].Attributes["src"] != "img-0.jpeg" || els[4].Text != "logo" {
		t.Fatalf("image = %+v", els[4])
	}
}
