package certificate

import (
	"fmt"
	"io"
	"time"

	"spaceshop-server/internal/purchase"

	"github.com/go-pdf/fpdf"
)

// Renderer produces ownership certificate documents. The PDF renderer
// is optional wiring; when absent the service reports the feature as
// unavailable instead of failing requests outright.
type Renderer interface {
	Purchase(w io.Writer, item purchase.CertificateItem) error
	Batch(w io.Writer, items []purchase.CertificateItem) error
}

// PDFRenderer renders certificates with fpdf on A4 portrait pages.
type PDFRenderer struct {
	issuer string
}

func NewPDFRenderer(issuer string) *PDFRenderer {
	return &PDFRenderer{issuer: issuer}
}

func (r *PDFRenderer) newDocument() *fpdf.Fpdf {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle("Certificate of Planetary Ownership", false)
	doc.SetAuthor(r.issuer, false)
	doc.SetMargins(20, 20, 20)
	return doc
}

func (r *PDFRenderer) header(doc *fpdf.Fpdf) {
	doc.SetFont("Helvetica", "B", 24)
	doc.SetTextColor(30, 30, 80)
	doc.CellFormat(0, 14, r.issuer, "", 1, "C", false, 0, "")

	doc.SetFont("Helvetica", "", 14)
	doc.SetTextColor(90, 90, 90)
	doc.CellFormat(0, 8, "Certificate of Planetary Ownership", "", 1, "C", false, 0, "")
	doc.Ln(6)

	doc.SetDrawColor(30, 30, 80)
	doc.SetLineWidth(0.6)
	x, y := doc.GetXY()
	doc.Line(x, y, x+170, y)
	doc.Ln(8)
}

func (r *PDFRenderer) planetCard(doc *fpdf.Fpdf, item purchase.CertificateItem) {
	p := item.Planet

	doc.SetFont("Helvetica", "B", 18)
	doc.SetTextColor(20, 20, 20)
	doc.CellFormat(0, 10, p.Name, "", 1, "L", false, 0, "")

	doc.SetFont("Helvetica", "", 11)
	doc.SetTextColor(60, 60, 60)

	row := func(label, value string) {
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(45, 7, label, "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 11)
		doc.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
	}

	row("Type", p.Type)
	row("Diameter", p.Diameter)
	row("Distance", p.Distance)
	row("Moons", fmt.Sprintf("%d", p.Moons))
	row("Purchase price", fmt.Sprintf("%.2f credits", item.Purchase.Price))
	row("Purchase date", item.Purchase.CreatedAt.Format("2 January 2006"))
	row("Reference", item.Purchase.ID.String())

	if p.Description != "" {
		doc.Ln(3)
		doc.SetFont("Helvetica", "I", 10)
		doc.SetTextColor(100, 100, 100)
		doc.MultiCell(0, 5, p.Description, "", "L", false)
	}

	doc.Ln(6)
}

func (r *PDFRenderer) signature(doc *fpdf.Fpdf) {
	doc.Ln(14)
	doc.SetDrawColor(120, 120, 120)
	doc.SetLineWidth(0.3)
	x, y := doc.GetXY()
	doc.Line(x, y, x+70, y)
	doc.Ln(2)

	doc.SetFont("Helvetica", "", 9)
	doc.SetTextColor(120, 120, 120)
	doc.CellFormat(70, 5, "Registrar of Planetary Deeds", "", 1, "L", false, 0, "")
	doc.CellFormat(70, 5, fmt.Sprintf("Issued %s", time.Now().Format("2 January 2006")), "", 1, "L", false, 0, "")
}

// Purchase renders a single-planet certificate.
func (r *PDFRenderer) Purchase(w io.Writer, item purchase.CertificateItem) error {
	doc := r.newDocument()
	doc.AddPage()
	r.header(doc)
	r.planetCard(doc, item)
	r.signature(doc)

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("failed to render certificate: %w", err)
	}
	return nil
}

// Batch renders one certificate document covering several purchases,
// with a grand total at the end.
func (r *PDFRenderer) Batch(w io.Writer, items []purchase.CertificateItem) error {
	doc := r.newDocument()
	doc.AddPage()
	r.header(doc)

	var total float64
	for _, item := range items {
		// Keep each card intact on a page.
		if doc.GetY() > 220 {
			doc.AddPage()
		}
		r.planetCard(doc, item)
		total += item.Purchase.Price
	}

	doc.SetFont("Helvetica", "B", 12)
	doc.SetTextColor(20, 20, 20)
	doc.CellFormat(0, 8, fmt.Sprintf("Total: %.2f credits across %d planets", total, len(items)), "", 1, "L", false, 0, "")

	r.signature(doc)

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("failed to render certificate batch: %w", err)
	}
	return nil
}
