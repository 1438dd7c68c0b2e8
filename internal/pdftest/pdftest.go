// Package pdftest builds small, structurally valid PDF files for tests, so
// extraction and derivation code paths run against real bytes instead of
// fixtures checked in as binaries.
package pdftest

import (
	"fmt"
	"strings"
)

// PDF returns a document with one page per element of pageTexts, rendered in
// Helvetica at a fixed position. An empty string produces a blank page.
func PDF(pageTexts ...string) []byte {
	var body strings.Builder
	offsets := []int{0} // object 0 is the free-list head

	writeObj := func(num int, content string) {
		offsets = append(offsets, body.Len())
		fmt.Fprintf(&body, "%d 0 obj\n%s\nendobj\n", num, content)
	}

	header := "%PDF-1.7\n"
	n := len(pageTexts)

	var kids []string
	for i := range pageTexts {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+2*i))
	}

	// Offsets are relative to the start of body; the header length is
	// added when the xref table is emitted.
	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))
	writeObj(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	for i, text := range pageTexts {
		pageNum := 4 + 2*i
		contentNum := 5 + 2*i
		writeObj(pageNum, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			contentNum))

		var stream string
		if text != "" {
			stream = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", escape(text))
		}
		writeObj(contentNum, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	total := 3 + 2*n + 1 // objects 0..3+2n
	var out strings.Builder
	out.WriteString(header)
	out.WriteString(body.String())

	xrefOffset := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n", total)
	out.WriteString("0000000000 65535 f \n")
	for _, off := range offsets[1:] {
		fmt.Fprintf(&out, "%010d 00000 n \n", off+len(header))
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", total, xrefOffset)
	return []byte(out.String())
}

// Corrupt returns bytes that start like a PDF but cannot be parsed as one.
func Corrupt() []byte {
	return []byte("%PDF-1.7\nthis is not a real cross-reference table\n%%EOF\n")
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
