package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// pdfDamage selects a structural defect for a generated test PDF. MuPDF
// repairs all of them.
type pdfDamage int

const (
	pdfIntact pdfDamage = iota
	pdfNoXref
	pdfNoEOF
	pdfNoMediaBox
)

// writeTestPDF writes a minimal PDF with the given number of blank pages.
func writeTestPDF(t *testing.T, pages int) string {
	t.Helper()
	return writePDF(t, fmt.Sprintf("deck-%d.pdf", pages), buildTestPDF(pages, pdfIntact))
}

func writePDF(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func buildTestPDF(pages int, damage pdfDamage) []byte {
	page := "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 100] /Resources << >> >>"
	if damage == pdfNoMediaBox {
		page = "<< /Type /Page /Parent 2 0 R /Resources << >> >>"
	}

	var objects []string
	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+i)
	}
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))
	for i := 0; i < pages; i++ {
		objects = append(objects, page)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	if damage == pdfNoXref {
		buf.WriteString("%%EOF\n")
		return buf.Bytes()
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n", len(objects)+1, xref)
	if damage != pdfNoEOF {
		buf.WriteString("%%EOF\n")
	}
	return buf.Bytes()
}
