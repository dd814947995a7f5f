package extract

import "testing"

func TestTextFromContentStream(t *testing.T) {
	stream := []byte(`BT
/F1 12 Tf
72 712 Td
(Invoice \(draft\)) Tj
T*
[(Total) -250 (: 42)] TJ
ET`)

	got := textFromContentStream(stream)
	want := "Invoice (draft)\nTotal: 42"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestUnescapePDFStringOctal(t *testing.T) {
	if got := unescapePDFString([]byte(`A\101\tB`)); got != "AA\tB" {
		t.Fatalf("got %q", got)
	}
}
