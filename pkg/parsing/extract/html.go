package extract

import (
	"bytes"
	"os"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// htmlConverter sanitises HTML and converts it to markdown, keeping
// tables as pipe tables.
type htmlConverter struct {
	policy *bluemonday.Policy
	conv   *converter.Converter
}

func newHTMLConverter() *htmlConverter {
	return &htmlConverter{
		policy: bluemonday.UGCPolicy(),
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

func (h *htmlConverter) extract(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, ErrRegistry.NewWithCause(ErrRead, err).WithDetail("path", path)
	}

	title := ""
	if doc, err := html.Parse(bytes.NewReader(data)); err == nil {
		title = htmlTitle(doc)
	}

	md, err := h.conv.ConvertString(h.policy.Sanitize(string(data)))
	if err != nil {
		return Result{}, ErrRegistry.NewWithCause(ErrMalformed, err).WithDetail("path", path)
	}
	md = strings.TrimSpace(md)
	return Result{Text: md, Pages: []string{md}, Title: title}, nil
}

func htmlTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title && n.FirstChild != nil {
		return strings.TrimSpace(n.FirstChild.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := htmlTitle(c); t != "" {
			return t
		}
	}
	return ""
}
