package ocr_test

import (
	"strings"
	"testing"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
)

func sampleDocument() *ocr.Document {
	return &ocr.Document{Pages: []ocr.Page{
		{PageNo: 1, Layout: []ocr.LayoutElement{
			{ElementID: "p1_e1", Type: "title", Text: "Annual Report", Confidence: ocr.Float(0.95)},
			{ElementID: "p1_e2", Type: "text", Text: "Revenue grew.", Confidence: ocr.Float(0.4)},
			{ElementID: "p1_e3", Type: "list", Text: "first\n* second"},
		}},
		{PageNo: 2, Layout: []ocr.LayoutElement{
			{ElementID: "p2_e1", Type: "heading", HeadingLevel: ocr.Int(2), Text: "Details"},
			{ElementID: "p2_e2", Type: "table", Text: "Name  Qty\nApple  3", TableInfo: &ocr.TableInfo{Headers: []string{"Name", "Qty"}, Rows: [][]string{{"Apple", "3"}}}},
			{ElementID: "p2_e3", Type: "formula", Text: "E=mc^2"},
			{ElementID: "p2_e4", Type: "quote", Text: "a\nb"},
		}},
	}}
}

func TestMarkdownRendersByType(t *testing.T) {
	md := sampleDocument().Markdown(0)

	for _, want := range []string{
		"# Annual Report",
		"- first\n* second",
		"---",
		"# Details",
		"| Name | Qty |\n|---|---|\n| Apple | 3 |",
		"$E=mc^2$",
		"> a\n> b",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestMarkdownConfidenceThreshold(t *testing.T) {
	md := sampleDocument().Markdown(0.5)
	if strings.Contains(md, "Revenue grew.") {
		t.Fatal("low confidence element should be filtered")
	}
	if !strings.Contains(md, "first") {
		t.Fatal("element without confidence must be kept")
	}
}

func TestDocumentStats(t *testing.T) {
	doc := sampleDocument()
	if doc.ElementCount() != 7 || doc.TableCount() != 1 {
		t.Fatalf("elements=%d tables=%d", doc.ElementCount(), doc.TableCount())
	}
	if got := doc.AverageConfidence(); got < 0.674 || got > 0.676 {
		t.Fatalf("average confidence = %v", got)
	}
}

func TestChunkableUnitsSectionPath(t *testing.T) {
	units := sampleDocument().ChunkableUnits()
	if len(units) != 7 {
		t.Fatalf("units = %d", len(units))
	}
	if !units[0].SemanticBoundary || units[0].HeadingLevel != 1 {
		t.Fatalf("title unit: %+v", units[0])
	}
	if units[1].Section() != "Annual Report" {
		t.Fatalf("section = %q", units[1].Section())
	}
	table := units[4]
	if table.Section() != "Annual Report > Details" || !table.SemanticBoundary || table.TableInfo == nil {
		t.Fatalf("table unit: %+v", table)
	}
	if !units[5].SemanticBoundary {
		t.Fatal("formula should be a semantic boundary")
	}

	rec := ocr.RecommendChunking(units)
	if rec.Strategy != ocr.ChunkHybrid || rec.ChunkSize != 256 || rec.Overlap != 200 {
		t.Fatalf("recommendation = %+v", rec)
	}
}

func TestRowsWithContext(t *testing.T) {
	info := &ocr.TableInfo{Title: "Stock", Headers: []string{"Name", "Qty"}, Rows: [][]string{{"Apple", "3"}, {"Pear", "4"}}}
	rows := info.RowsWithContext()
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	want := "Stock\n| Name | Qty |\n|---|---|\n| Pear | 4 |"
	if rows[1] != want {
		t.Fatalf("row = %q, want %q", rows[1], want)
	}
}

func TestPageCloneIsDeep(t *testing.T) {
	p := sampleDocument().Pages[1]
	c := p.Clone()
	c.Layout[1].TableInfo.Rows[0][0] = "Changed"
	*c.Layout[0].HeadingLevel = 5
	if p.Layout[1].TableInfo.Rows[0][0] != "Apple" || *p.Layout[0].HeadingLevel != 2 {
		t.Fatal("clone shares state with the original")
	}
}
