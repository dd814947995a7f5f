package ocr

import (
	"regexp"
	"strings"
)

const pageSeparator = "\n\n---\n\n"

var (
	listMarker   = regexp.MustCompile(`^([-*+]|\d+\.)\s`)
	cellSplitter = regexp.MustCompile(`\t|\s{2,}`)
)

// Markdown renders the document. Elements whose confidence is below
// threshold are skipped; elements without confidence are always kept.
// Non-empty pages after the first are separated by a horizontal rule.
func (d *Document) Markdown(threshold float64) string {
	var b strings.Builder
	first := true
	for i, p := range d.Pages {
		if i > 0 && len(p.Layout) > 0 {
			b.WriteString(pageSeparator)
		}
		for _, e := range p.Layout {
			if e.Confidence != nil && *e.Confidence < threshold {
				continue
			}
			md := e.Markdown()
			if md == "" {
				continue
			}
			if !first {
				b.WriteString("\n\n")
			}
			b.WriteString(md)
			first = false
		}
	}
	return strings.TrimSpace(b.String())
}

// Markdown renders a single element according to its type.
func (e LayoutElement) Markdown() string {
	content := e.BestText()
	if content == "" {
		return ""
	}

	switch strings.ToLower(e.Type) {
	case TypeTitle, TypeHeading, TypeHeader:
		if !strings.HasPrefix(content, "#") {
			return "# " + content
		}
	case TypeSubtitle, "subheading":
		if !strings.HasPrefix(content, "#") {
			return "## " + content
		}
	case TypeTable:
		if !strings.Contains(content, "|") {
			return TextToMarkdownTable(content)
		}
	case TypeList, "bullet":
		return ensureListFormat(content)
	case TypeCode:
		if !strings.HasPrefix(content, "```") {
			return "```\n" + content + "\n```"
		}
	case TypeFormula, "math", "equation":
		if !strings.HasPrefix(content, "$") && !strings.HasPrefix(content, `\[`) {
			return "$" + content + "$"
		}
	case TypeImage, "figure", TypeCaption:
		return "*" + content + "*"
	case TypeFootnote:
		return "[^note]: " + content
	case TypeQuote, "blockquote":
		if !strings.HasPrefix(content, ">") {
			return "> " + strings.ReplaceAll(content, "\n", "\n> ")
		}
	}
	return content
}

// TextToMarkdownTable turns tab or multi-space separated lines into a pipe
// table. The first multi-cell line becomes the header.
func TextToMarkdownTable(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}

	var b strings.Builder
	headerDone := false
	for _, line := range lines {
		cells := cellSplitter.Split(line, -1)
		if len(cells) <= 1 {
			b.WriteString(line)
			b.WriteByte('\n')
			continue
		}
		b.WriteString(pipeRow(cells))
		b.WriteByte('\n')
		if !headerDone {
			b.WriteString(separatorRow(len(cells)))
			b.WriteByte('\n')
			headerDone = true
		}
	}
	return strings.TrimSpace(b.String())
}

func pipeRow(cells []string) string {
	var b strings.Builder
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(strings.TrimSpace(c))
		b.WriteString(" |")
	}
	return b.String()
}

func separatorRow(n int) string {
	return "|" + strings.Repeat("---|", n)
}

func ensureListFormat(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !listMarker.MatchString(trimmed) {
			b.WriteString("- ")
		}
		b.WriteString(trimmed)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

// SharedContext is the table title plus a markdown header row, prepended
// to every row chunk.
func (t *TableInfo) SharedContext() string {
	var b strings.Builder
	if t.Title != "" {
		b.WriteString(t.Title)
		b.WriteByte('\n')
	}
	if len(t.Headers) > 0 {
		b.WriteString(pipeRow(t.Headers))
		b.WriteByte('\n')
		b.WriteString(separatorRow(len(t.Headers)))
	}
	return b.String()
}

// RowsWithContext renders each data row as a self-contained markdown table.
func (t *TableInfo) RowsWithContext() []string {
	if len(t.Rows) == 0 {
		return nil
	}
	ctx := t.SharedContext()
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, ctx+"\n"+pipeRow(row))
	}
	return out
}
