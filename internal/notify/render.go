package notify

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// Renderer turns a notification into an attachable document.
type Renderer interface {
	Render(n Notification) ([]byte, error)
}

// PDFRenderer draws one A4 page per ticket with a QR image of its
// redemption code.
type PDFRenderer struct {
	Brand string
}

func NewPDFRenderer(brand string) *PDFRenderer {
	if brand == "" {
		brand = "Poli Eventos"
	}
	return &PDFRenderer{Brand: brand}
}

func (r *PDFRenderer) Render(n Notification) ([]byte, error) {
	if err := n.validate(); err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for i, code := range n.Codes {
		pdf.AddPage()

		// Header band
		pdf.SetFillColor(37, 99, 235)
		pdf.Rect(0, 0, 210, 35, "F")
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Helvetica", "B", 24)
		pdf.SetXY(0, 10)
		pdf.CellFormat(210, 15, tr(r.Brand), "", 0, "C", false, 0, "")

		pdf.SetTextColor(0, 0, 0)
		pdf.SetXY(15, 50)
		pdf.SetFont("Helvetica", "B", 20)
		pdf.MultiCell(180, 10, tr(n.Event.Name), "", "C", false)
		pdf.Ln(6)

		drawField(pdf, tr, "VENUE:", n.Event.Venue)
		drawField(pdf, tr, "DATE:", n.Event.StartsAt.Format("2006-01-02 15:04 MST"))
		drawField(pdf, tr, "ZONE:", n.Zone.Name)
		drawField(pdf, tr, "PRICE:", formatAmount(n.Zone.UnitPrice))
		drawField(pdf, tr, "HOLDER:", n.Buyer.Name)
		drawField(pdf, tr, "TICKET:", fmt.Sprintf("%d of %d", i+1, len(n.Codes)))

		png, err := qrcode.Encode(code, qrcode.Medium, 512)
		if err != nil {
			return nil, fmt.Errorf("encode qr for ticket %d: %w", i+1, err)
		}
		name := fmt.Sprintf("qr-%d", i)
		pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "png"}, bytes.NewReader(png))
		pdf.ImageOptions(name, 60, 140, 90, 90, false, gofpdf.ImageOptions{ImageType: "png"}, 0, "")

		pdf.SetXY(15, 235)
		pdf.SetFont("Courier", "", 11)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(180, 8, code, "", 0, "C", false, 0, "")

		pdf.SetXY(15, 280)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(180, 6, tr(fmt.Sprintf("Purchase %s. Admits one. Valid for a single entry.", n.Purchase.ID)), "", 0, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func drawField(pdf *gofpdf.Fpdf, tr func(string) string, label, value string) {
	if value == "" {
		return
	}
	pdf.SetX(40)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(68, 68, 68)
	pdf.CellFormat(30, 9, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(100, 9, tr(value), "", 1, "L", false, 0, "")
}
