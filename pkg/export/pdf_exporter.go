package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfFont       = "Helvetica"
	pdfBodyWidth  = 190.0
	pdfRowHeight  = 7.0
	pdfEmptyTable = "No entries yet."
)

// PDFExporter lays a Dataset out as a single-column report on A4 portrait.
type PDFExporter struct{}

func NewPDFExporter() *PDFExporter { return &PDFExporter{} }

func (*PDFExporter) ContentType() string { return "application/pdf" }

func (*PDFExporter) Extension() string { return "pdf" }

// Render draws the title block, then a grid with a shaded header row. Columns share the
// page width evenly.
func (*PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, errNoColumns
	}

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetMargins(10, 12, 10)
	doc.SetAutoPageBreak(true, 12)
	doc.AddPage()
	latin := doc.UnicodeTranslatorFromDescriptor("")

	if data.Title != "" {
		doc.SetFont(pdfFont, "B", 16)
		doc.CellFormat(0, 9, latin(data.Title), "", 1, "L", false, 0, "")
	}
	if data.Subtitle != "" {
		doc.SetFont(pdfFont, "I", 11)
		doc.CellFormat(0, 6, latin(data.Subtitle), "", 1, "L", false, 0, "")
	}
	doc.Ln(3)

	width := pdfBodyWidth / float64(len(data.Headers))
	doc.SetFont(pdfFont, "B", 9)
	doc.SetFillColor(225, 230, 240)
	for _, h := range data.Headers {
		doc.CellFormat(width, pdfRowHeight+1, latin(h), "1", 0, "L", true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont(pdfFont, "", 9)
	if len(data.Rows) == 0 {
		doc.CellFormat(pdfBodyWidth, pdfRowHeight, pdfEmptyTable, "1", 1, "C", false, 0, "")
	}
	for _, row := range data.Rows {
		for _, cell := range data.record(row) {
			doc.CellFormat(width, pdfRowHeight, latin(cell), "1", 0, "L", false, 0, "")
		}
		doc.Ln(-1)
	}

	var out bytes.Buffer
	if err := doc.Output(&out); err != nil {
		return nil, fmt.Errorf("export: pdf output: %w", err)
	}
	return out.Bytes(), nil
}
