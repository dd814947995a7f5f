package extract

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"
)

// extractDOCX reads word/document.xml. Paragraphs become lines; table
// cells are tab separated so table detection sees the columns.
func extractDOCX(path string) (Result, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return Result{}, ErrRegistry.NewWithCause(ErrMalformed, err).WithDetail("path", path)
	}
	defer zr.Close()

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return Result{}, ErrRegistry.NewWithMessage(ErrMalformed, "word/document.xml not found").WithDetail("path", path)
	}

	rc, err := doc.Open()
	if err != nil {
		return Result{}, ErrRegistry.NewWithCause(ErrRead, err).WithDetail("path", path)
	}
	defer rc.Close()

	text, title, err := docxText(rc)
	if err != nil {
		return Result{}, ErrRegistry.NewWithCause(ErrMalformed, err).WithDetail("path", path)
	}
	return Result{Text: text, Pages: []string{text}, Title: title}, nil
}

func docxText(r io.Reader) (text, title string, err error) {
	dec := xml.NewDecoder(r)
	var (
		b         strings.Builder
		para      strings.Builder
		inText    bool
		tableRow  []string
		inCell    bool
		cell      strings.Builder
		paraStyle string
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				para.Reset()
				paraStyle = ""
			case "pStyle":
				for _, a := range t.Attr {
					if a.Name.Local == "val" {
						paraStyle = a.Value
					}
				}
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "tr":
				tableRow = tableRow[:0]
			case "tc":
				inCell = true
				cell.Reset()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				line := strings.TrimSpace(para.String())
				if inCell {
					if cell.Len() > 0 && line != "" {
						cell.WriteByte(' ')
					}
					cell.WriteString(line)
					continue
				}
				if line == "" {
					continue
				}
				if title == "" && isHeadingStyle(paraStyle) {
					title = line
				}
				b.WriteString(line)
				b.WriteByte('\n')
			case "tc":
				inCell = false
				tableRow = append(tableRow, strings.TrimSpace(cell.String()))
			case "tr":
				b.WriteString(strings.Join(tableRow, "\t"))
				b.WriteByte('\n')
			}
		}
	}
	return strings.TrimSpace(b.String()), title, nil
}

func isHeadingStyle(style string) bool {
	s := strings.ToLower(style)
	return s == "title" || strings.HasPrefix(s, "heading")
}
