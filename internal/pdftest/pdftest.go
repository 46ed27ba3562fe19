// Package pdftest builds small, well-formed PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// Letter is a US Letter page in points
var Letter = [2]float64{612, 792}

// A4 is an ISO A4 page in points
var A4 = [2]float64{595, 842}

// Build returns a PDF with one page per size. Each page carries a filled square so
// renders are not blank. Cross-reference offsets are computed, not hand-written.
func Build(sizes ...[2]float64) []byte {
	if len(sizes) == 0 {
		sizes = [][2]float64{Letter}
	}

	var (
		buf     bytes.Buffer
		offsets []int
	)
	object := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	object("<< /Type /Catalog /Pages 2 0 R >>")

	kids := ""
	for i := range sizes {
		kids += fmt.Sprintf("%d 0 R ", 3+2*i)
	}
	object(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(sizes)))

	for i, size := range sizes {
		object(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Contents %d 0 R /Resources << >> >>",
			size[0], size[1], 4+2*i))
		content := fmt.Sprintf("0.2 0.4 0.8 rg\n%d %d 40 40 re\nf\n", 20+i*5, 20+i*5)
		object(fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	return buf.Bytes()
}

// WriteFile writes Build(sizes...) into a temp dir and returns its path
func WriteFile(t *testing.T, name string, sizes ...[2]float64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, Build(sizes...), 0644); err != nil {
		t.Fatalf("failed to write test PDF: %v", err)
	}
	return path
}
