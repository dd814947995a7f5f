package ocr

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var markdownParser = goldmark.New(goldmark.WithExtensions(extension.Table))

// ElementsFromMarkdown splits a page of markdown, as returned by markdown
// based OCR engines, into layout elements. Element ids are page-local
// ("e1", "e2", ...). Confidence is left unset.
func ElementsFromMarkdown(markdown string) []LayoutElement {
	src := []byte(markdown)
	doc := markdownParser.Parser().Parse(text.NewReader(src))

	var out []LayoutElement
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		e, ok := blockElement(n, src)
		if !ok {
			continue
		}
		e.ElementID = "e" + strconv.Itoa(len(out)+1)
		out = append(out, e)
	}
	return out
}

func blockElement(n ast.Node, src []byte) (LayoutElement, bool) {
	switch node := n.(type) {
	case *ast.Heading:
		t := inlineText(node, src)
		typ := TypeHeading
		if node.Level == 1 {
			typ = TypeTitle
		}
		return LayoutElement{
			Type:         typ,
			HeadingLevel: Int(node.Level),
			Text:         t,
			MdText:       strings.Repeat("#", node.Level) + " " + t,
		}, t != ""

	case *extast.Table:
		info := tableInfo(node, src)
		return LayoutElement{
			Type:      TypeTable,
			Text:      tableText(info),
			MdText:    tableMarkdown(info),
			TableInfo: info,
		}, info.RowCount > 0 || len(info.Headers) > 0

	case *ast.List:
		var md, plain strings.Builder
		i := node.Start
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			t := inlineText(item, src)
			if node.IsOrdered() {
				fmt.Fprintf(&md, "%d. %s\n", i, t)
				i++
			} else {
				md.WriteString("- " + t + "\n")
			}
			plain.WriteString(t + "\n")
		}
		return LayoutElement{
			Type:   TypeList,
			Text:   strings.TrimSpace(plain.String()),
			MdText: strings.TrimSpace(md.String()),
		}, plain.Len() > 0

	case *ast.FencedCodeBlock:
		code := rawLines(node, src)
		e := LayoutElement{Type: TypeCode, Text: code, MdText: "```" + string(node.Language(src)) + "\n" + code + "\n```"}
		if lang := node.Language(src); len(lang) > 0 {
			e.Attributes = map[string]any{"language": string(lang)}
		}
		return e, code != ""

	case *ast.CodeBlock:
		code := rawLines(node, src)
		return LayoutElement{Type: TypeCode, Text: code, MdText: "```\n" + code + "\n```"}, code != ""

	case *ast.Blockquote:
		t := inlineText(node, src)
		return LayoutElement{Type: TypeQuote, Text: t, MdText: "> " + strings.ReplaceAll(t, "\n", "\n> ")}, t != ""

	case *ast.Paragraph:
		raw := rawLines(node, src)
		if img, ok := soleImage(node); ok {
			alt := inlineText(img, src)
			return LayoutElement{
				Type:       TypeImage,
				Text:       alt,
				MdText:     raw,
				Attributes: map[string]any{"src": string(img.Destination)},
			}, true
		}
		if strings.HasPrefix(raw, "$$") || (strings.HasPrefix(raw, `\[`) && strings.HasSuffix(raw, `\]`)) {
			return LayoutElement{Type: TypeFormula, Text: strings.Trim(raw, "$ \n"), MdText: raw}, true
		}
		t := inlineText(node, src)
		return LayoutElement{Type: TypeText, Text: t, MdText: raw}, t != ""

	case *ast.HTMLBlock:
		raw := rawLines(node, src)
		return LayoutElement{Type: TypeText, Text: raw, MdText: raw}, strings.TrimSpace(raw) != ""
	}
	return LayoutElement{}, false
}

func soleImage(p *ast.Paragraph) (*ast.Image, bool) {
	if p.ChildCount() != 1 {
		return nil, false
	}
	img, ok := p.FirstChild().(*ast.Image)
	return img, ok
}

// rawLines returns the source lines backing a block node.
func rawLines(n ast.Node, src []byte) string {
	var b bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return strings.TrimRight(b.String(), "\n")
}

// inlineText concatenates the text leaves under n. Soft breaks and block
// boundaries become newlines.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	var walk func(ast.Node)
	walk = func(node ast.Node) {
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				b.Write(t.Segment.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					b.WriteByte('\n')
				}
			case *ast.String:
				b.Write(t.Value)
			default:
				if c.Type() == ast.TypeBlock && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteByte('\n')
				}
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func tableInfo(t *extast.Table, src []byte) *TableInfo {
	info := &TableInfo{}
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, inlineText(cell, src))
		}
		if _, ok := row.(*extast.TableHeader); ok {
			info.Headers = cells
			continue
		}
		info.Rows = append(info.Rows, cells)
	}
	info.RowCount = len(info.Rows)
	info.ColumnCount = len(info.Headers)
	for _, r := range info.Rows {
		info.ColumnCount = max(info.ColumnCount, len(r))
	}
	return info
}

func tableMarkdown(info *TableInfo) string {
	lines := make([]string, 0, len(info.Rows)+2)
	if len(info.Headers) > 0 {
		lines = append(lines, pipeRow(info.Headers), separatorRow(len(info.Headers)))
	}
	for _, r := range info.Rows {
		lines = append(lines, pipeRow(r))
	}
	return strings.Join(lines, "\n")
}

func tableText(info *TableInfo) string {
	lines := make([]string, 0, len(info.Rows)+1)
	if len(info.Headers) > 0 {
		lines = append(lines, strings.Join(info.Headers, "\t"))
	}
	for _, r := range info.Rows {
		lines = append(lines, strings.Join(r, "\t"))
	}
	return strings.Join(lines, "\n")
}
